package report

import (
	"regexp"
	"strings"
)

var (
	onsiteTerms = []string{
		"SPA (Product)",
		"Catapult (Native-Fixed)",
		"Banner (Display)",
		"Attributed Sales",
		"Featured ROAS",
		"Halo ROAS",
		"rdROAS",
		"Total Customers",
		"% NTB Customers",
		"AOV",
	}
	offsiteTerms = []string{
		"Paid Social",
		"Paid Search",
		"PLA",
		"DPA",
		"DABA",
		"Brand Revenues",
		"Brand ROAS",
		"NTB%",
	}
	genericTerms = []string{
		"Impressions",
		"Clicks",
		"CTR",
		"CPM",
		"CPC",
		"Orders",
		"Ad Spend",
		"Spend",
		"Revenue",
		"ROAS",
	}
)

type candidate struct {
	term    string
	pattern *regexp.Regexp
}

var candidates = buildCandidates(onsiteTerms, offsiteTerms, genericTerms)

func buildCandidates(lists ...[]string) []candidate {
	var out []candidate
	for _, list := range lists {
		for _, term := range list {
			out = append(out, candidate{
				term:    term,
				pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term)),
			})
		}
	}
	return out
}

// CandidateTerms returns every vocabulary term in list order.
func CandidateTerms() []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.term
	}
	return out
}

// Vocabulary splits the candidate terms into those present in the input and
// the rest. Both lists keep candidate order.
type Vocabulary struct {
	Allowed   []string
	Forbidden []string

	forbidden []candidate
}

// NewVocabulary matches every candidate as a literal, case-insensitive substring of text.
func NewVocabulary(text string) Vocabulary {
	v := Vocabulary{Allowed: []string{}, Forbidden: []string{}}
	for _, c := range candidates {
		if c.pattern.MatchString(text) {
			v.Allowed = append(v.Allowed, c.term)
			continue
		}
		v.Forbidden = append(v.Forbidden, c.term)
		v.forbidden = append(v.forbidden, c)
	}
	return v
}

// AllowedList renders the allowed terms for a prompt.
func (v Vocabulary) AllowedList() string {
	if len(v.Allowed) == 0 {
		return "none"
	}
	return strings.Join(v.Allowed, ", ")
}

// Violations returns the forbidden terms that occur in s.
func (v Vocabulary) Violations(s string) []string {
	var found []string
	for _, c := range v.forbidden {
		if c.pattern.MatchString(s) {
			found = append(found, c.term)
		}
	}
	return found
}
