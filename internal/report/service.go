package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rmn-analyst/internal/cache"
	"rmn-analyst/internal/llm"
	"rmn-analyst/internal/shared/metrics"
	"rmn-analyst/internal/shared/telemetry"
	"rmn-analyst/internal/shared/util"
)

// DefaultTTL is how long analyses stay cached when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// maxModelCalls bounds each analysis to the first call plus one grounding retry.
const maxModelCalls = 2

// Service runs the grounded analysis pipeline against an injected model and cache.
type Service struct {
	LLM   llm.Client
	Cache cache.Store
	TTL   time.Duration
}

// NewService constructs a Service. A nil store gets a private in-memory cache.
func NewService(client llm.Client, store cache.Store, ttl time.Duration) *Service {
	if store == nil {
		store = cache.NewMemoryStore(nil)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{LLM: client, Cache: store, TTL: ttl}
}

// Analyze returns the analysis for fileContents, from cache when possible.
func (s *Service) Analyze(ctx context.Context, fileContents []string) (Result, error) {
	if len(fileContents) == 0 {
		return Result{}, ErrInvalidInput
	}
	start := time.Now()
	res, outcome, err := s.analyze(ctx, fileContents)
	metrics.IncAnalysis(outcome)
	metrics.ObserveAnalysisDuration(time.Since(start))
	return res, err
}

func (s *Service) analyze(ctx context.Context, fileContents []string) (Result, string, error) {
	combined := CombineContents(fileContents)
	docType := Classify(combined)
	vocab := NewVocabulary(combined)
	model := s.LLM.Model()
	cacheID := CacheID(combined, docType, model, PromptVersion)
	key := cache.Key(cacheID)

	if cached, ok := s.lookup(ctx, key); ok {
		telemetry.Info("analysis.cache_hit", map[string]any{
			"cache_id":      cacheID,
			"document_type": string(docType),
			"backend":       s.Cache.Name(),
		})
		return Result{Analysis: cached, CacheID: cacheID, DocumentType: docType, Cached: true}, metrics.OutcomeCached, nil
	}

	brand := ExtractBrand(combined)
	prompt := BuildPrompt(brand, docType, vocab, combined)
	telemetry.Info("analysis.start", map[string]any{
		"cache_id":      cacheID,
		"document_type": string(docType),
		"brand":         brand,
		"model":         model,
		"allowed_terms": len(vocab.Allowed),
		"input_bytes":   len(combined),
		"files":         len(fileContents),
	})

	groundingErr := func(msg string, violations []string, cause error) *GroundingError {
		return &GroundingError{
			Message:      msg,
			DocumentType: docType,
			Allowed:      vocab.Allowed,
			CacheID:      cacheID,
			Violations:   violations,
			Err:          cause,
		}
	}

	var final Analysis
	for attempt := 1; attempt <= maxModelCalls; attempt++ {
		p := prompt
		if attempt > 1 {
			metrics.IncGroundingRetry()
			p = BuildRetryPrompt(prompt, vocab.Forbidden)
		}

		text, err := s.generate(ctx, p)
		if err != nil {
			return Result{}, metrics.OutcomeFailed, fmt.Errorf("generate analysis attempt=%d: %w", attempt, err)
		}

		parsed, err := ParseAnalysis(text)
		if err != nil {
			if attempt == 1 {
				telemetry.Warn("analysis.parse_failed", map[string]any{
					"cache_id": cacheID,
					"error":    err,
					"raw_len":  len(text),
				})
				final = degradedAnalysis()
				break
			}
			return Result{}, metrics.OutcomeUngrounded, groundingErr(MsgGroundingUnparsed, nil, err)
		}

		encoded, err := serialize(parsed)
		if err != nil {
			return Result{}, metrics.OutcomeFailed, fmt.Errorf("serialize analysis: %w", err)
		}
		violations := vocab.Violations(string(encoded))
		if len(violations) == 0 {
			final = parsed
			break
		}
		telemetry.Warn("analysis.vocabulary_violation", map[string]any{
			"cache_id":   cacheID,
			"attempt":    attempt,
			"violations": violations,
		})
		if attempt == maxModelCalls {
			return Result{}, metrics.OutcomeUngrounded, groundingErr(MsgGroundingViolation, violations, nil)
		}
	}

	outcome := metrics.OutcomeCompleted
	if final.Degraded {
		outcome = metrics.OutcomeDegraded
	} else {
		s.store(ctx, key, final)
	}
	return Result{Analysis: final, CacheID: cacheID, DocumentType: docType}, outcome, nil
}

// Get returns a previously stored analysis by cache id.
func (s *Service) Get(ctx context.Context, cacheID string) (Result, error) {
	if !util.IsSHA256Hex(cacheID) {
		return Result{}, ErrInvalidID
	}
	raw, found, err := s.Cache.Get(ctx, cache.Key(cacheID))
	if err != nil {
		return Result{}, fmt.Errorf("read analysis: %w", err)
	}
	if !found {
		return Result{}, ErrNotFound
	}
	var a Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return Result{}, fmt.Errorf("decode analysis: %w", err)
	}
	return Result{Analysis: a, CacheID: cacheID, Cached: true}, nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	text, err := s.LLM.Generate(ctx, prompt)
	switch {
	case err == nil:
		metrics.IncModelCall("ok")
	case errors.Is(err, llm.ErrSafetyBlocked):
		metrics.IncModelCall("safety")
	default:
		metrics.IncModelCall("error")
	}
	return text, err
}

// lookup treats backend failures and undecodable entries as misses.
func (s *Service) lookup(ctx context.Context, key string) (Analysis, bool) {
	raw, found, err := s.Cache.Get(ctx, key)
	if err != nil {
		metrics.IncCacheLookup("error")
		telemetry.Warn("cache.lookup_failed", map[string]any{
			"key":     key,
			"backend": s.Cache.Name(),
			"error":   err,
		})
		return Analysis{}, false
	}
	if !found {
		metrics.IncCacheLookup("miss")
		return Analysis{}, false
	}
	var a Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		metrics.IncCacheLookup("error")
		telemetry.Warn("cache.decode_failed", map[string]any{"key": key, "error": err})
		return Analysis{}, false
	}
	metrics.IncCacheLookup("hit")
	return a, true
}

// store is best effort; failures are logged and never reach the caller.
func (s *Service) store(ctx context.Context, key string, a Analysis) {
	payload, err := json.Marshal(a)
	if err != nil {
		telemetry.Error("cache.encode_failed", map[string]any{"key": key, "error": err})
		return
	}
	if err := s.Cache.Set(ctx, key, payload, s.TTL); err != nil {
		telemetry.Error("cache.store_failed", map[string]any{
			"key":     key,
			"backend": s.Cache.Name(),
			"error":   err,
		})
	}
}
