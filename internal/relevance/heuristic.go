// Package relevance implements the keyword gate that decides whether content
// is plausibly about autonomous vehicles before a paid model call is spent.
// The gate is deliberately conservative: the model is the authoritative
// relevance check, this one only filters out the clearly irrelevant.
package relevance

import (
	"regexp"
	"strings"
)

// Terms is one versioned rule set. Tier membership is data so it can be
// tuned without touching the matching logic.
type Terms struct {
	// Strong anchors are unambiguous: any single hit passes immediately.
	Strong []string
	// Weak anchors can appear in non-AV contexts and need corroboration.
	Weak []string
	// Boosters are generic industry terms that only count alongside a
	// weak anchor.
	Boosters []string
}

// DefaultTerms is the canonical tier set.
var DefaultTerms = Terms{
	Strong: []string{
		"robotaxi",
		"robo-taxi",
		"driverless",
		"self-driving",
		"self driving",
		"autonomous vehicle",
		"autonomous vehicles",
		"automated driving",
		"autonomous trucking",
		"autonomous truck",
		"waymo",
		"cruise",
		"zoox",
		"mobileye",
		"aurora",
		"kodiak",
		"wayve",
		"pony.ai",
		"pony ai",
		"tusimple",
		"plusai",
		"plus ai",
		"fsd",
		"full self-driving",
		"full self driving",
	},
	Weak: []string{
		"adas",
		"autonomy",
		"lidar",
		"disengagement",
		"safety driver",
		"automated vehicle",
		"baidu apollo",
		"apollo",
	},
	Boosters: []string{
		"nhtsa",
		"unece",
		"regulation",
		"ride-hailing",
		"autonomous fleet",
		"v2x",
		"v2v",
		"perception",
		"path planning",
		"localization",
		"hd map",
		"hd maps",
		"sensor fusion",
		"radar",
		"camera",
		"autopilot",
		"tesla",
		"uber",
		"lyft",
	},
}

// Matcher evaluates texts against one term set. Word-boundary patterns are
// compiled once up front.
type Matcher struct {
	terms    Terms
	patterns map[string]*regexp.Regexp
}

// NewMatcher compiles a matcher for the given term set.
func NewMatcher(terms Terms) *Matcher {
	m := &Matcher{terms: terms, patterns: map[string]*regexp.Regexp{}}
	for _, tier := range [][]string{terms.Strong, terms.Weak, terms.Boosters} {
		for _, term := range tier {
			if isCleanToken(term) {
				m.patterns[term] = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
			}
		}
	}
	return m
}

// LooksRelevant reports whether the text plausibly concerns autonomous
// vehicles. Decision rule: any strong anchor passes; otherwise at least one
// weak anchor is required, plus either a second weak anchor or any booster.
func (m *Matcher) LooksRelevant(text string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)

	for _, term := range m.terms.Strong {
		if m.hasTerm(t, term) {
			return true
		}
	}

	weakCount := 0
	for _, term := range m.terms.Weak {
		if m.hasTerm(t, term) {
			weakCount++
		}
	}
	if weakCount == 0 {
		return false
	}
	if weakCount >= 2 {
		return true
	}

	for _, term := range m.terms.Boosters {
		if m.hasTerm(t, term) {
			return true
		}
	}
	return false
}

// Multi-word phrases and terms with punctuation use substring containment;
// clean single tokens use word boundaries so "av" never matches inside
// "average".
func (m *Matcher) hasTerm(lowered, term string) bool {
	if re, ok := m.patterns[term]; ok {
		return re.MatchString(lowered)
	}
	return strings.Contains(lowered, term)
}

func isCleanToken(term string) bool {
	for _, r := range term {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(term) > 0
}
