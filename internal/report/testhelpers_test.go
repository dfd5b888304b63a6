package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"rmn-analyst/internal/cache"
)

type scriptedReply struct {
	text string
	err  error
}

// scriptedLLM replays canned replies in order and records every prompt.
type scriptedLLM struct {
	mu      sync.Mutex
	model   string
	replies []scriptedReply
	prompts []string
}

func newScriptedLLM(replies ...scriptedReply) *scriptedLLM {
	return &scriptedLLM{model: "gemini-2.5-flash", replies: replies}
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return "", errors.New("scriptedLLM: no reply left")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func (s *scriptedLLM) Model() string { return s.model }

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// countingStore wraps a MemoryStore and can inject backend failures.
type countingStore struct {
	*cache.MemoryStore
	mu     sync.Mutex
	gets   int
	sets   int
	getErr error
	setErr error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: cache.NewMemoryStore(nil)}
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	c.gets++
	err := c.getErr
	c.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return c.MemoryStore.Get(ctx, key)
}

func (c *countingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	err := c.setErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.MemoryStore.Set(ctx, key, value, ttl)
}

func (c *countingStore) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.sets
}

const acmeInput = "Reporting Vendor Name is Acme Pets ... Impressions: 1000 ... CTR: 2.5% ..."

// cleanReply uses only Impressions and CTR from the candidate vocabulary.
const cleanReply = `{
  "executiveSummary": "Acme Pets delivered 1000 Impressions with a CTR of 2.5%.",
  "kpiHighlights": {
    "positive": ["CTR of 2.5% is healthy for the period"],
    "negative": ["Impressions volume is modest at 1000"]
  },
  "benchmarkComparison": "No benchmark is present in the input.",
  "kpiTrends": [{"metric": "Impressions", "data": [{"period": "202506", "value": 1000}]}],
  "topPerformers": [{"name": "Acme Pets", "metric": "CTR", "value": "2.5%", "description": "Strongest engagement in the input."}],
  "bottomPerformers": [],
  "actionableRecommendations": ["Test new creative to lift CTR beyond 2.5%"],
  "petcoContextualization": "Pet category context is limited to the input."
}`

// unavailableValueReply is grounded but carries a trend value the model could not compute.
var unavailableValueReply = strings.Replace(cleanReply,
	`"kpiTrends": [{"metric": "Impressions", "data": [{"period": "202506", "value": 1000}]}]`,
	`"kpiTrends": [{"metric": "Impressions", "data": [{"period": "202506", "value": 1000}]}, {"metric": "CTR", "data": [{"period": "202506", "value": "N/A"}]}]`,
	1)

// violatingReply mentions ROAS, which acmeInput never does.
const violatingReply = `{
  "executiveSummary": "ROAS improved for Acme Pets.",
  "kpiHighlights": {"positive": ["ROAS up"], "negative": ["CTR flat"]},
  "benchmarkComparison": "n/a",
  "kpiTrends": [],
  "topPerformers": [],
  "bottomPerformers": [],
  "actionableRecommendations": ["Shift budget"],
  "petcoContextualization": "n/a"
}`
