package gemini

import "google.golang.org/genai"

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func strList(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

func performers(desc string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: desc,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":        str("Name of the ad item, channel or product."),
				"metric":      str("The metric used for ranking, as named in the input."),
				"value":       str("The value of the metric as it appears in the input."),
				"description": str("A brief explanation grounded in the input."),
			},
			Required: []string{"name", "metric", "value", "description"},
		},
	}
}

// AnalysisSchema is the structured output shape for report analysis.
// Descriptions avoid naming KPIs so the schema never introduces vocabulary.
func AnalysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"executiveSummary": str("A high-level summary (2-3 sentences) of overall performance for the identified brand."),
			"kpiHighlights": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"positive": strList("2-4 key positive performance indicators or trends."),
					"negative": strList("2-4 key areas for improvement or negative trends."),
				},
				Required: []string{"positive", "negative"},
			},
			"benchmarkComparison": str("A paragraph comparing performance against any benchmarks present in the input."),
			"kpiTrends": {
				Type:        genai.TypeArray,
				Description: "Time-series data for key metrics, using the periods present in the input.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"metric": str("The name of the KPI exactly as it appears in the input."),
						"data": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"period": str("The period label, e.g. '202506'."),
									"value":  {Type: genai.TypeNumber, Description: "The numeric value for that period."},
								},
								Required: []string{"period", "value"},
							},
						},
					},
					Required: []string{"metric", "data"},
				},
			},
			"topPerformers":             performers("Up to 3 best performing items from the input."),
			"bottomPerformers":          performers("Up to 3 worst performing items from the input."),
			"actionableRecommendations": strList("3-5 specific, actionable steps for the identified brand."),
			"petcoContextualization":    str("A paragraph placing performance in the context of the pet retail category."),
		},
		Required: []string{
			"executiveSummary", "kpiHighlights", "benchmarkComparison", "kpiTrends",
			"topPerformers", "bottomPerformers", "actionableRecommendations", "petcoContextualization",
		},
	}
}
