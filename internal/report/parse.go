package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("```json\n([\\s\\S]*?)\n```")

// extractJSON prefers a fenced json block, then the span from the first
// opening brace to the last closing brace.
func extractJSON(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseAnalysis decodes model text into an Analysis. Only a missing or
// undecodable JSON object is an error. Fields of the wrong shape are coerced
// or dropped, and the placeholder flag is never taken from model output.
func ParseAnalysis(text string) (Analysis, error) {
	candidate, ok := extractJSON(text)
	if !ok {
		return Analysis{}, ErrUnparseable
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if fields == nil {
		return Analysis{}, fmt.Errorf("%w: null document", ErrUnparseable)
	}
	a := Analysis{
		ExecutiveSummary:          textOf(fields["executiveSummary"]),
		KPIHighlights:             highlightsOf(fields["kpiHighlights"]),
		BenchmarkComparison:       textOf(fields["benchmarkComparison"]),
		KPITrends:                 trendsOf(fields["kpiTrends"]),
		TopPerformers:             performersOf(fields["topPerformers"]),
		BottomPerformers:          performersOf(fields["bottomPerformers"]),
		ActionableRecommendations: listOf(fields["actionableRecommendations"]),
		PetcoContextualization:    textOf(fields["petcoContextualization"]),
	}
	a.normalize()
	return a, nil
}

// textOf renders a scalar as text. Objects and arrays yield "".
func textOf(raw json.RawMessage) string {
	s, err := flexString(raw)
	if err != nil {
		return ""
	}
	return s
}

// listOf accepts a list of scalars or a single scalar, which becomes a one-item list.
func listOf(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] != '[' {
		if s := textOf(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range rawArray(raw) {
		if s := textOf(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func highlightsOf(raw json.RawMessage) KPIHighlights {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return KPIHighlights{}
	}
	return KPIHighlights{Positive: listOf(m["positive"]), Negative: listOf(m["negative"])}
}

// trendsOf keeps well-formed trends and drops points whose value is not a number.
func trendsOf(raw json.RawMessage) []KPITrend {
	var out []KPITrend
	for _, item := range rawArray(raw) {
		var t struct {
			Metric json.RawMessage `json:"metric"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		trend := KPITrend{Metric: textOf(t.Metric), Data: []TrendPoint{}}
		for _, p := range rawArray(t.Data) {
			var pt TrendPoint
			if err := json.Unmarshal(p, &pt); err != nil {
				continue
			}
			trend.Data = append(trend.Data, pt)
		}
		out = append(out, trend)
	}
	return out
}

func performersOf(raw json.RawMessage) []Performer {
	var out []Performer
	for _, item := range rawArray(raw) {
		var p Performer
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// rawArray splits a JSON array into its elements. Anything else yields nil.
func rawArray(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// serialize renders a the way it is checked for vocabulary, without HTML escaping.
func serialize(a Analysis) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
