package llm

// articleAnalysisSchemaName labels the structured-output format.
const articleAnalysisSchemaName = "article_analysis"

// articleAnalysisSchema constrains the model response to exactly the fields
// the pipeline persists. Strict mode: no extra fields.
var articleAnalysisSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"av_relevance":    map[string]any{"type": "boolean"},
		"relevance_score": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"summary": map[string]any{
			"type":     "array",
			"minItems": 3,
			"maxItems": 5,
			"items":    map[string]any{"type": "string"},
		},
		"companies": map[string]any{
			"type":     "array",
			"maxItems": 25,
			"items":    map[string]any{"type": "string"},
		},
		"category": map[string]any{
			"type": "string",
			"enum": []string{
				"safety", "regulation", "hardware", "software", "partnerships",
				"incidents", "business", "stocks", "markets", "other",
			},
		},
		"sentiment":            map[string]any{"type": "string", "enum": []string{"positive", "neutral", "negative"}},
		"impact":               map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
		"regulatory_relevance": map[string]any{"type": "boolean"},
		"themes": map[string]any{
			"type":     "array",
			"maxItems": 10,
			"items":    map[string]any{"type": "string"},
		},
	},
	"required": []string{
		"av_relevance",
		"relevance_score",
		"summary",
		"companies",
		"category",
		"sentiment",
		"impact",
		"regulatory_relevance",
		"themes",
	},
}
