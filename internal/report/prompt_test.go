package report

import (
	"strings"
	"testing"
)

func TestBuildPromptSections(t *testing.T) {
	combined := "Reporting Vendor Name is Acme Pets\nImpressions: 1000\nCTR: 2.5%"
	vocab := NewVocabulary(combined)
	prompt := BuildPrompt("Acme Pets", DocumentMixed, vocab, combined)

	wants := []string{
		"Analyze Petco Retail Media Network performance for the brand Acme Pets. Do NOT refer to Petco as the brand.",
		"Document type: MIXED\nAllowed terms detected: Impressions, CTR\nInstruction: Only use terms in Allowed list.",
		mixedDirective,
		"Hard constraints:",
		`"kpiHighlights": { "positive": string[], "negative": string[] }`,
	}
	for _, want := range wants {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(prompt, "do not use external knowledge):\n"+combined) {
		t.Fatalf("prompt must end with the verbatim input")
	}
}

func TestBuildPromptDirectivePerType(t *testing.T) {
	vocab := NewVocabulary("")
	if p := BuildPrompt(DefaultBrand, DocumentOnsite, vocab, "x"); !strings.Contains(p, onsiteDirective) {
		t.Fatalf("expected onsite directive")
	}
	if p := BuildPrompt(DefaultBrand, DocumentOffsite, vocab, "x"); !strings.Contains(p, offsiteDirective) {
		t.Fatalf("expected offsite directive")
	}
	if p := BuildPrompt(DefaultBrand, DocumentOffsite, vocab, "x"); !strings.Contains(p, "Allowed terms detected: none") {
		t.Fatalf("expected none when nothing is allowed")
	}
}

func TestBuildRetryPrompt(t *testing.T) {
	retry := BuildRetryPrompt("BASE", []string{"Paid Social", "ROAS"})
	want := "BASE\n\nCritical rule: Do not use any of the following terms unless they appear verbatim in the input: Paid Social, ROAS\n" +
		"If any forbidden terms appear in your JSON, your response is invalid. Regenerate strictly using only allowed terms."
	if retry != want {
		t.Fatalf("unexpected retry prompt:\n%s", retry)
	}
}
