package report

import (
	"fmt"
	"strings"
)

// PromptVersion is part of every cache key. Bump it whenever prompt text changes.
const PromptVersion = "v2-onsite-guardrails-2025-09-18"

const (
	onsiteDirective  = "For ONSITE documents, analyze by ad item types present in input (e.g., SPA, Catapult, Banner) and KPIs such as Attributed Sales and ROAS. Do NOT use offsite-specific terms unless they appear verbatim in the input."
	offsiteDirective = "For OFFSITE documents, analyze by channel types present in input (e.g., Paid Social, Paid Search) and KPIs such as Brand Revenues and Brand ROAS. Do NOT use onsite-specific terms unless they appear verbatim in the input."
	mixedDirective   = "For MIXED content, only use terms that appear verbatim in the input; do not introduce any unseen terminology."
)

const hardConstraints = `Hard constraints:
- Ground every statement strictly in the provided input only. No assumptions.
- Use only terms from the Allowed list above.
- Quantify all claims with exact values and percentage deltas shown in the input (e.g., vs LM, vs benchmark).
- Call out week/campaign specifics where present with exact values and deltas vs benchmark.
- Provide concrete, tactical recommendations grounded in the observed data (budget reallocation, creative, targeting, bidding, keywords).
- Return strictly valid JSON only (no markdown). Use the exact key names shown in the schema below.`

const resultShape = `JSON schema (shape only):
{
  "executiveSummary": string,
  "kpiHighlights": { "positive": string[], "negative": string[] },
  "benchmarkComparison": string,
  "kpiTrends": [
    { "metric": string, "data": [ { "period": string, "value": number } ] }
  ],
  "topPerformers": [
    { "name": string, "metric": string, "value": string, "description": string }
  ],
  "bottomPerformers": [
    { "name": string, "metric": string, "value": string, "description": string }
  ],
  "actionableRecommendations": string[],
  "petcoContextualization": string
}`

func channelDirective(docType DocumentType) string {
	switch docType {
	case DocumentOnsite:
		return onsiteDirective
	case DocumentOffsite:
		return offsiteDirective
	default:
		return mixedDirective
	}
}

// BuildPrompt assembles the grounded analysis prompt. The combined input is
// always the final section, verbatim.
func BuildPrompt(brand string, docType DocumentType, vocab Vocabulary, combined string) string {
	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "You are a senior retail media analyst. Analyze Petco Retail Media Network performance for the brand %s. Do NOT refer to Petco as the brand.\n\n", brand)
	fmt.Fprintf(&b, "Document type: %s\nAllowed terms detected: %s\nInstruction: Only use terms in Allowed list. Do not introduce any other vocabulary.\n\n", docType, vocab.AllowedList())
	b.WriteString(channelDirective(docType))
	b.WriteString("\n\n")
	b.WriteString(hardConstraints)
	b.WriteString("\n\n")
	b.WriteString(resultShape)
	b.WriteString("\n\nInput reports (analyze only the following text; do not use external knowledge):\n")
	b.WriteString(combined)
	return b.String()
}

// BuildRetryPrompt restates prompt with the forbidden terms spelled out.
func BuildRetryPrompt(prompt string, forbidden []string) string {
	return prompt + "\n\nCritical rule: Do not use any of the following terms unless they appear verbatim in the input: " +
		strings.Join(forbidden, ", ") +
		"\nIf any forbidden terms appear in your JSON, your response is invalid. Regenerate strictly using only allowed terms."
}
