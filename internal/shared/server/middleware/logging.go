package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rmn-analyst/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	CacheIDKey      = "cacheId"
	DocumentTypeKey = "documentType"
	CacheHitKey     = "cacheHit"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		cacheID, _ := c.Get(CacheIDKey)
		documentType, _ := c.Get(DocumentTypeKey)
		cacheHit, _ := c.Get(CacheHitKey)

		telemetry.Info("request.complete", map[string]any{
			"request_id":    RequestIDFromContext(c),
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"status":        c.Writer.Status(),
			"duration_ms":   float64(latency.Microseconds()) / 1000.0,
			"cache_id":      cacheID,
			"document_type": documentType,
			"cache_hit":     cacheHit,
			"body_bytes":    c.Writer.Size(),
			"client_ip":     c.ClientIP(),
			"user_agent":    c.Request.UserAgent(),
		})
	}
}
