package report

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"rmn-analyst/internal/cache"
	"rmn-analyst/internal/llm"
)

func TestAnalyzeEndToEndMixed(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: cleanReply})
	store := newCountingStore()
	svc := NewService(model, store, 0)

	res, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if model.calls() != 1 {
		t.Fatalf("expected one model call, got %d", model.calls())
	}
	if res.DocumentType != DocumentMixed {
		t.Fatalf("expected MIXED, got %s", res.DocumentType)
	}
	wantID := CacheID(acmeInput, DocumentMixed, "gemini-2.5-flash", PromptVersion)
	if res.CacheID != wantID {
		t.Fatalf("cacheId = %s, want %s", res.CacheID, wantID)
	}
	if len(res.KPIHighlights.Positive) == 0 || len(res.KPIHighlights.Negative) == 0 {
		t.Fatalf("expected non-empty highlights, got %+v", res.KPIHighlights)
	}

	prompt := model.prompts[0]
	if !strings.Contains(prompt, "for the brand Acme Pets.") {
		t.Fatalf("expected brand in prompt")
	}
	if !strings.Contains(prompt, "Allowed terms detected: Impressions, CTR\n") {
		t.Fatalf("expected Impressions and CTR allowed in prompt")
	}

	if _, sets := store.counts(); sets != 1 {
		t.Fatalf("expected result cached once, got %d sets", sets)
	}

	encoded, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var body map[string]any
	_ = json.Unmarshal(encoded, &body)
	if body["cacheId"] != wantID || body["executiveSummary"] == nil {
		t.Fatalf("expected flat result with cacheId, got %s", encoded)
	}
	if _, ok := body["degraded"]; ok {
		t.Fatalf("clean result must not carry degraded flag")
	}
}

func TestAnalyzeCacheHitIsIdempotent(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: cleanReply})
	svc := NewService(model, cache.NewMemoryStore(nil), 0)

	first, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	second, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if model.calls() != 1 {
		t.Fatalf("expected cache hit without a second model call, got %d calls", model.calls())
	}
	if !second.Cached || first.Cached {
		t.Fatalf("expected only the second result to be cached: first=%v second=%v", first.Cached, second.Cached)
	}
	if !reflect.DeepEqual(first.Analysis, second.Analysis) || first.CacheID != second.CacheID {
		t.Fatalf("cached result differs from original")
	}
}

func TestAnalyzeInvalidInputTouchesNothing(t *testing.T) {
	model := newScriptedLLM()
	store := newCountingStore()
	svc := NewService(model, store, 0)

	for _, in := range [][]string{nil, {}} {
		if _, err := svc.Analyze(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	}
	gets, sets := store.counts()
	if model.calls() != 0 || gets != 0 || sets != 0 {
		t.Fatalf("invalid input must not touch model or cache: calls=%d gets=%d sets=%d", model.calls(), gets, sets)
	}
}

func TestAnalyzeRetryAcceptsCleanOutput(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: violatingReply}, scriptedReply{text: "```json\n" + cleanReply + "\n```"})
	store := newCountingStore()
	svc := NewService(model, store, 0)

	res, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if model.calls() != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", model.calls())
	}
	if !strings.HasPrefix(model.prompts[1], model.prompts[0]) {
		t.Fatalf("retry prompt must extend the original prompt")
	}
	if !strings.Contains(model.prompts[1], "Critical rule: Do not use any of the following terms") ||
		!strings.Contains(model.prompts[1], "ROAS") {
		t.Fatalf("retry prompt must list forbidden terms: %s", model.prompts[1][len(model.prompts[0]):])
	}
	if strings.Contains(res.ExecutiveSummary, "ROAS") {
		t.Fatalf("expected retried output adopted")
	}
	if _, sets := store.counts(); sets != 1 {
		t.Fatalf("expected clean retry cached, got %d sets", sets)
	}
}

func TestAnalyzeRetryStillViolatingReturnsGroundingError(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: violatingReply}, scriptedReply{text: violatingReply})
	store := newCountingStore()
	svc := NewService(model, store, 0)

	_, err := svc.Analyze(context.Background(), []string{acmeInput})
	var groundErr *GroundingError
	if !errors.As(err, &groundErr) {
		t.Fatalf("expected GroundingError, got %v", err)
	}
	if groundErr.Message != MsgGroundingViolation {
		t.Fatalf("unexpected message %q", groundErr.Message)
	}
	if groundErr.DocumentType != DocumentMixed || !reflect.DeepEqual(groundErr.Allowed, []string{"Impressions", "CTR"}) {
		t.Fatalf("unexpected grounding payload %+v", groundErr)
	}
	if groundErr.CacheID != CacheID(acmeInput, DocumentMixed, "gemini-2.5-flash", PromptVersion) {
		t.Fatalf("unexpected cache id %s", groundErr.CacheID)
	}
	if model.calls() != 2 {
		t.Fatalf("retry budget is exactly one, got %d calls", model.calls())
	}
	if _, sets := store.counts(); sets != 0 {
		t.Fatalf("grounding failures must not be cached")
	}
}

func TestAnalyzeRetryUnparseableReturnsGroundingError(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: violatingReply}, scriptedReply{text: "not json"})
	store := newCountingStore()
	svc := NewService(model, store, 0)

	_, err := svc.Analyze(context.Background(), []string{acmeInput})
	var groundErr *GroundingError
	if !errors.As(err, &groundErr) {
		t.Fatalf("expected GroundingError, got %v", err)
	}
	if groundErr.Message != MsgGroundingUnparsed {
		t.Fatalf("unexpected message %q", groundErr.Message)
	}
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected cause to unwrap to ErrUnparseable")
	}
	if _, sets := store.counts(); sets != 0 {
		t.Fatalf("grounding failures must not be cached")
	}
}

func TestAnalyzeUnavailableTrendValueIsNotDegraded(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: unavailableValueReply})
	store := newCountingStore()
	svc := NewService(model, store, 0)

	res, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Degraded {
		t.Fatalf("a non-numeric trend value must not degrade the analysis")
	}
	if len(res.KPITrends) != 2 || res.KPITrends[0].Metric != "Impressions" || len(res.KPITrends[1].Data) != 0 {
		t.Fatalf("expected the unavailable point dropped, got %+v", res.KPITrends)
	}
	if model.calls() != 1 {
		t.Fatalf("expected a single model call, got %d", model.calls())
	}
	if _, sets := store.counts(); sets != 1 {
		t.Fatalf("expected result cached, got %d sets", sets)
	}
}

func TestAnalyzeRetryUnavailableTrendValueSucceeds(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: violatingReply}, scriptedReply{text: unavailableValueReply})
	store := newCountingStore()
	svc := NewService(model, store, 0)

	res, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Degraded || strings.Contains(res.ExecutiveSummary, "ROAS") {
		t.Fatalf("expected retried output adopted, got %+v", res)
	}
	if model.calls() != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", model.calls())
	}
	if _, sets := store.counts(); sets != 1 {
		t.Fatalf("expected clean retry cached, got %d sets", sets)
	}
}

func TestAnalyzeFirstParseFailureDegrades(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: "Sorry, I can't produce JSON today."})
	store := newCountingStore()
	svc := NewService(model, store, 0)

	res, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Degraded {
		t.Fatalf("expected degraded placeholder")
	}
	if res.ExecutiveSummary != degradedAnalysis().ExecutiveSummary || res.CacheID == "" {
		t.Fatalf("unexpected placeholder %+v", res)
	}
	if model.calls() != 1 {
		t.Fatalf("placeholder must not trigger a retry, got %d calls", model.calls())
	}
	if _, sets := store.counts(); sets != 0 {
		t.Fatalf("degraded placeholder must not be cached")
	}
}

func TestAnalyzeModelFailures(t *testing.T) {
	model := newScriptedLLM(scriptedReply{err: llm.ErrSafetyBlocked})
	svc := NewService(model, newCountingStore(), 0)
	if _, err := svc.Analyze(context.Background(), []string{acmeInput}); !errors.Is(err, llm.ErrSafetyBlocked) {
		t.Fatalf("expected safety error, got %v", err)
	}

	boom := errors.New("quota exceeded")
	model = newScriptedLLM(scriptedReply{text: violatingReply}, scriptedReply{err: boom})
	svc = NewService(model, newCountingStore(), 0)
	if _, err := svc.Analyze(context.Background(), []string{acmeInput}); !errors.Is(err, boom) {
		t.Fatalf("expected transport error from retry, got %v", err)
	}
}

func TestAnalyzeCacheFailuresAreNonFatal(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: cleanReply})
	store := newCountingStore()
	store.getErr = errors.New("kv unavailable")
	store.setErr = errors.New("kv read only")
	svc := NewService(model, store, 0)

	res, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("cache failures must not fail the request: %v", err)
	}
	if res.CacheID == "" || model.calls() != 1 {
		t.Fatalf("expected a computed result despite cache failures")
	}
}

func TestAnalyzeCorruptCacheEntryRecomputes(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: cleanReply})
	store := cache.NewMemoryStore(nil)
	id := CacheID(acmeInput, DocumentMixed, "gemini-2.5-flash", PromptVersion)
	_ = store.Set(context.Background(), cache.Key(id), []byte("{not json"), 0)

	svc := NewService(model, store, 0)
	if _, err := svc.Analyze(context.Background(), []string{acmeInput}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if model.calls() != 1 {
		t.Fatalf("expected recompute on corrupt entry")
	}
}

func TestCacheIDChangesWithEachInput(t *testing.T) {
	base := CacheID("content", DocumentMixed, "gemini-2.5-flash", PromptVersion)
	if base != CacheID("content", DocumentMixed, "gemini-2.5-flash", PromptVersion) {
		t.Fatalf("cache id must be deterministic")
	}
	variants := []string{
		CacheID("content!", DocumentMixed, "gemini-2.5-flash", PromptVersion),
		CacheID("content", DocumentOnsite, "gemini-2.5-flash", PromptVersion),
		CacheID("content", DocumentMixed, "gemini-2.5-pro", PromptVersion),
		CacheID("content", DocumentMixed, "gemini-2.5-flash", "v3"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d must change the cache id", i)
		}
	}
	if len(base) != 64 {
		t.Fatalf("expected hex sha256, got %q", base)
	}
}

func TestCombineContentsOrder(t *testing.T) {
	if got := CombineContents([]string{"a", "b"}); got != "a\n\nb" {
		t.Fatalf("unexpected combined %q", got)
	}
	if CacheID(CombineContents([]string{"a", "b"}), DocumentMixed, "m", "v") ==
		CacheID(CombineContents([]string{"b", "a"}), DocumentMixed, "m", "v") {
		t.Fatalf("file order must affect the cache id")
	}
}

func TestGet(t *testing.T) {
	model := newScriptedLLM(scriptedReply{text: cleanReply})
	svc := NewService(model, cache.NewMemoryStore(nil), 0)
	res, err := svc.Analyze(context.Background(), []string{acmeInput})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	got, err := svc.Get(context.Background(), res.CacheID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got.Analysis, res.Analysis) || got.CacheID != res.CacheID {
		t.Fatalf("Get returned a different analysis")
	}

	missing := strings.Repeat("a", 64)
	if _, err := svc.Get(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "../etc"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestGetBackendFailure(t *testing.T) {
	store := newCountingStore()
	store.getErr = errors.New("db down")
	svc := NewService(newScriptedLLM(), store, 0)
	_, err := svc.Get(context.Background(), strings.Repeat("b", 64))
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
