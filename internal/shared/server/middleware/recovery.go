package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"rmn-analyst/internal/shared/server/respond"
	"rmn-analyst/internal/shared/telemetry"
)

// Recovery turns a handler panic into a logged 500 with the error envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		telemetry.Error("panic", map[string]any{
			"request_id": RequestIDFromContext(c),
			"error":      rec,
			"stack":      string(debug.Stack()),
			"path":       c.Request.URL.Path,
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
	})
}
