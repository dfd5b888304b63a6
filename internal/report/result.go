package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxPerformers caps the top and bottom performer lists.
const maxPerformers = 3

// Analysis is the structured result cached and returned for a report set.
type Analysis struct {
	ExecutiveSummary          string        `json:"executiveSummary"`
	KPIHighlights             KPIHighlights `json:"kpiHighlights"`
	BenchmarkComparison       string        `json:"benchmarkComparison"`
	KPITrends                 []KPITrend    `json:"kpiTrends"`
	TopPerformers             []Performer   `json:"topPerformers"`
	BottomPerformers          []Performer   `json:"bottomPerformers"`
	ActionableRecommendations []string      `json:"actionableRecommendations"`
	PetcoContextualization    string        `json:"petcoContextualization"`
	// Degraded marks the placeholder returned when the model output could not be parsed.
	Degraded bool `json:"degraded,omitempty"`
}

type KPIHighlights struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

type KPITrend struct {
	Metric string       `json:"metric"`
	Data   []TrendPoint `json:"data"`
}

type TrendPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

type Performer struct {
	Name        string `json:"name"`
	Metric      string `json:"metric"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Result is an Analysis annotated with its cache id.
type Result struct {
	Analysis
	CacheID string `json:"cacheId"`

	DocumentType DocumentType `json:"-"`
	Cached       bool         `json:"-"`
}

// UnmarshalJSON accepts periods and values written as either numbers or
// strings, since models round-trip fiscal periods like 202506 as numbers and
// values like "$1,204.50" as strings.
func (p *TrendPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Period json.RawMessage `json:"period"`
		Value  json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	period, err := flexString(raw.Period)
	if err != nil {
		return fmt.Errorf("trend period: %w", err)
	}
	value, err := flexNumber(raw.Value)
	if err != nil {
		return fmt.Errorf("trend value: %w", err)
	}
	p.Period = period
	p.Value = value
	return nil
}

// UnmarshalJSON accepts a numeric value where a label is expected.
func (p *Performer) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        json.RawMessage `json:"name"`
		Metric      json.RawMessage `json:"metric"`
		Value       json.RawMessage `json:"value"`
		Description json.RawMessage `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := []struct {
		src json.RawMessage
		dst *string
	}{
		{raw.Name, &p.Name},
		{raw.Metric, &p.Metric},
		{raw.Value, &p.Value},
		{raw.Description, &p.Description},
	}
	for _, f := range fields {
		s, err := flexString(f.src)
		if err != nil {
			return fmt.Errorf("performer: %w", err)
		}
		*f.dst = s
	}
	return nil
}

func flexString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)

// flexNumber reads a JSON number or a numeric string such as "$1,204.50",
// "2.5%", "4.2x" or "1.2M". A string with no leading number is an error.
func flexNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] != '"' {
		var f float64
		err := json.Unmarshal(raw, &f)
		return f, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	cleaned := strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	num := leadingNumber.FindString(cleaned)
	if num == "" {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	switch strings.ToLower(cleaned[len(num):]) {
	case "k":
		f *= 1e3
	case "m", "mm":
		f *= 1e6
	case "b", "bn":
		f *= 1e9
	}
	return f, nil
}

// normalize replaces nil slices with empty ones and caps performer lists.
func (a *Analysis) normalize() {
	if a.KPIHighlights.Positive == nil {
		a.KPIHighlights.Positive = []string{}
	}
	if a.KPIHighlights.Negative == nil {
		a.KPIHighlights.Negative = []string{}
	}
	if a.KPITrends == nil {
		a.KPITrends = []KPITrend{}
	}
	for i := range a.KPITrends {
		if a.KPITrends[i].Data == nil {
			a.KPITrends[i].Data = []TrendPoint{}
		}
	}
	if a.TopPerformers == nil {
		a.TopPerformers = []Performer{}
	}
	if len(a.TopPerformers) > maxPerformers {
		a.TopPerformers = a.TopPerformers[:maxPerformers]
	}
	if a.BottomPerformers == nil {
		a.BottomPerformers = []Performer{}
	}
	if len(a.BottomPerformers) > maxPerformers {
		a.BottomPerformers = a.BottomPerformers[:maxPerformers]
	}
	if a.ActionableRecommendations == nil {
		a.ActionableRecommendations = []string{}
	}
}

// degradedAnalysis is returned when the first model response holds no parseable JSON.
func degradedAnalysis() Analysis {
	return Analysis{
		ExecutiveSummary: "We encountered an issue processing the AI analysis. Please try again or contact support.",
		KPIHighlights: KPIHighlights{
			Positive: []string{"Unable to process data"},
			Negative: []string{"Analysis error occurred"},
		},
		BenchmarkComparison:       "Unable to compare due to processing error",
		KPITrends:                 []KPITrend{},
		TopPerformers:             []Performer{},
		BottomPerformers:          []Performer{},
		ActionableRecommendations: []string{"Please try uploading your files again"},
		PetcoContextualization:    "Unable to provide context due to processing error",
		Degraded:                  true,
	}
}
