package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes recorded on report_analysis_total.
const (
	OutcomeCompleted  = "completed"
	OutcomeCached     = "cached"
	OutcomeDegraded   = "degraded"
	OutcomeUngrounded = "ungrounded"
	OutcomeFailed     = "failed"
)

var (
	analysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_analysis_total",
		Help: "Analyses handled, by outcome.",
	}, []string{"outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_cache_lookups_total",
		Help: "Cache lookups, by result (hit, miss, error).",
	}, []string{"result"})

	groundingRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "report_grounding_retries_total",
		Help: "Model calls retried because the output used forbidden vocabulary.",
	})

	modelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_model_calls_total",
		Help: "Model calls, by outcome (ok, error, safety).",
	}, []string{"outcome"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_analysis_duration_seconds",
		Help:    "Analysis duration in seconds, cache hits included.",
		Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
	})
)

// IncAnalysis records a finished analysis with the given outcome.
func IncAnalysis(outcome string) {
	analysisTotal.WithLabelValues(outcome).Inc()
}

// IncCacheLookup records a cache lookup result: "hit", "miss" or "error".
func IncCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// IncGroundingRetry records a vocabulary-triggered retry.
func IncGroundingRetry() {
	groundingRetries.Inc()
}

// IncModelCall records a model call outcome: "ok", "error" or "safety".
func IncModelCall(outcome string) {
	modelCalls.WithLabelValues(outcome).Inc()
}

// ObserveAnalysisDuration records how long an analysis took.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
