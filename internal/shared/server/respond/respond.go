// Package respond writes JSON bodies and the flat error envelope.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rmn-analyst/internal/shared/telemetry"
)

// ErrorResponse is the flat error object returned to clients. The bundled
// front end reads the error field as plain text.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// JSON writes payload with status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error aborts the request with the error envelope. Server faults log at
// error level and client mistakes at warn.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
