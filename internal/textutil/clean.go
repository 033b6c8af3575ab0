// Package textutil normalizes raw feed content into plain text suitable for
// storage and classification.
package textutil

import (
	"regexp"
	"strings"
)

// Results shorter than this are treated as no usable content.
const minCleanedChars = 20

var (
	scriptExpr     = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	styleExpr      = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	tagExpr        = regexp.MustCompile(`</?[^>]+(>|$)`)
	whitespaceExpr = regexp.MustCompile(`\s+`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&lt;", "<",
	"&gt;", ">",
)

// Clean strips markup and entities from raw feed content and collapses
// whitespace. It returns nil when the result is shorter than 20 characters;
// callers must treat nil as "no usable content", not as an error.
func Clean(raw *string) *string {
	if raw == nil || *raw == "" {
		return nil
	}

	text := scriptExpr.ReplaceAllString(*raw, " ")
	text = styleExpr.ReplaceAllString(text, " ")
	text = tagExpr.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	text = whitespaceExpr.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if len(text) < minCleanedChars {
		return nil
	}

	return &text
}
