package domain

import "fmt"

// Classification enums. The model is constrained to these values by the
// structured-output schema; NormalizeAnalysis falls back to the zero-risk
// member when a response slips through with something else.
const (
	CategoryOther    = "other"
	SentimentNeutral = "neutral"
	ImpactLow        = "low"
)

// Categories accepted from the classification model.
var Categories = []string{
	"safety", "regulation", "hardware", "software", "partnerships",
	"incidents", "business", "stocks", "markets", "other",
}

// Sentiments accepted from the classification model.
var Sentiments = []string{"positive", "neutral", "negative"}

// Impacts accepted from the classification model.
var Impacts = []string{"low", "medium", "high"}

const (
	maxCompanies = 25
	maxThemes    = 10
	maxSummary   = 5
)

// Analysis is the typed form of the model's structured output.
type Analysis struct {
	AVRelevance         bool     `json:"av_relevance"`
	RelevanceScore      float64  `json:"relevance_score"`
	Summary             []string `json:"summary"`
	Companies           []string `json:"companies"`
	Category            string   `json:"category"`
	Sentiment           string   `json:"sentiment"`
	Impact              string   `json:"impact"`
	RegulatoryRelevance bool     `json:"regulatory_relevance"`
	Themes              []string `json:"themes"`
}

// NormalizeAnalysis coerces a freshly decoded model response into one
// canonical value: nil slices become empty, list caps are enforced, enum
// fields outside their allowed set fall back to defaults and the score is
// clamped to [0,1]. Every persistence branch sees only normalized values.
func NormalizeAnalysis(a Analysis) Analysis {
	a.Summary = clampList(a.Summary, maxSummary)
	a.Companies = clampList(a.Companies, maxCompanies)
	a.Themes = clampList(a.Themes, maxThemes)

	if !contains(Categories, a.Category) {
		a.Category = CategoryOther
	}
	if !contains(Sentiments, a.Sentiment) {
		a.Sentiment = SentimentNeutral
	}
	if !contains(Impacts, a.Impact) {
		a.Impact = ImpactLow
	}

	if a.RelevanceScore < 0 {
		a.RelevanceScore = 0
	}
	if a.RelevanceScore > 1 {
		a.RelevanceScore = 1
	}

	return a
}

// Resolution is the persisted outcome of analyzing one claimed article.
type Resolution struct {
	Status        AIStatus // done or skipped
	SkippedReason string
	Analysis      Analysis
}

// HeuristicSkip builds the synthetic resolution saved when the keyword gate
// rejects an article before any model call. Downstream handling is uniform
// with model-produced results.
func HeuristicSkip(reason string) Resolution {
	return Resolution{
		Status:        StatusSkipped,
		SkippedReason: reason,
		Analysis: NormalizeAnalysis(Analysis{
			Category:  CategoryOther,
			Sentiment: SentimentNeutral,
			Impact:    ImpactLow,
		}),
	}
}

// Resolve applies the relevance gate to a normalized model analysis. The
// article is done only when the model says relevant and the score clears the
// threshold; otherwise it is skipped with a reason distinguishing the two
// rejection paths. Model outputs are kept either way for audit.
func Resolve(a Analysis, threshold float64) Resolution {
	if !a.AVRelevance {
		return Resolution{Status: StatusSkipped, SkippedReason: "Model: not AV relevant", Analysis: a}
	}
	if a.RelevanceScore < threshold {
		return Resolution{
			Status:        StatusSkipped,
			SkippedReason: fmt.Sprintf("Model: relevance_score < %g", threshold),
			Analysis:      a,
		}
	}
	return Resolution{Status: StatusDone, Analysis: a}
}

func clampList(in []string, max int) []string {
	if in == nil {
		return []string{}
	}
	if len(in) > max {
		return in[:max]
	}
	return in
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
