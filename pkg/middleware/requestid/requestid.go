// Package requestid tags every request with a correlation ID so log lines
// from one PATCH or login round-trip can be stitched together. An inbound
// X-Request-ID from a trusted proxy is kept; otherwise a fresh UUID is
// issued and echoed back in the response header.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the correlation ID on both request and response.
	Header = "X-Request-ID"

	contextKey = "request_id"
)

// Middleware ensures every request carries a correlation ID.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Header(Header, id)

		c.Next()
	}
}

// Value returns the correlation ID stored in the Gin context, or "" when
// the middleware did not run.
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
