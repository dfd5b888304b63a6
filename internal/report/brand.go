package report

import (
	"regexp"
	"strings"
)

// DefaultBrand is used when the input names no brand.
const DefaultBrand = "the brand"

var (
	brandNamePattern  = regexp.MustCompile(`(?i)Brand\s+Name\s+is\s+([A-Za-z0-9\-&_ ]+)`)
	vendorNamePattern = regexp.MustCompile(`(?i)Reporting\s+Vendor\s+Name\s+is\s+([A-Za-z0-9\-&_ ]+)`)
	capitalizedToken  = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9\-&_]+\b`)
	brandROASMarker   = regexp.MustCompile(`Brand\s+ROAS`)
)

// ExtractBrand finds the advertised brand: an explicit "Brand Name is X",
// then "Reporting Vendor Name is X", then the first capitalised token that
// precedes "Brand ROAS" on the same line.
func ExtractBrand(text string) string {
	for _, p := range []*regexp.Regexp{brandNamePattern, vendorNamePattern} {
		if m := p.FindStringSubmatch(text); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				return name
			}
		}
	}
	if name := tokenBeforeBrandROAS(text); name != "" {
		return name
	}
	return DefaultBrand
}

func tokenBeforeBrandROAS(text string) string {
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	for _, line := range lines {
		markers := brandROASMarker.FindAllStringIndex(line, -1)
		if len(markers) == 0 {
			continue
		}
		lastStart := markers[len(markers)-1][0]
		for _, loc := range capitalizedToken.FindAllStringIndex(line, -1) {
			if loc[1] > lastStart {
				break
			}
			return line[loc[0]:loc[1]]
		}
	}
	return ""
}
