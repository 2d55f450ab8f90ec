package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/nextbud/premium/pkg/tool"
)

const maxTraceIDLength = 128

// TraceMiddleware stores a trace ID under "traceID" in both gin.Context and
// the request context. A client-supplied X-Request-ID is reused when sane.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Request-ID")
		if traceID == "" || len(traceID) > maxTraceIDLength {
			traceID = tool.GenerateUUIDV7()
		}

		c.Set("traceID", traceID)
		ctx := context.WithValue(c.Request.Context(), "traceID", traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
