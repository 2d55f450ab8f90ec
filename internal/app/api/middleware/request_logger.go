package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextbud/premium/pkg/logctx"
)

// RequestLoggerMiddleware attaches a logger carrying trace_id and the route
// to gin.Context and the request context, for logctx.FromGin / FromCtx.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetString("traceID")

		reqLogger := base.With("trace_id", traceID, "route", c.FullPath())
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(logctx.With(c.Request.Context(), reqLogger))

		if traceID != "" {
			c.Writer.Header().Set("X-Request-ID", traceID)
		}
		c.Next()
	}
}
