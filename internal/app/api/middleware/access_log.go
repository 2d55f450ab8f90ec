package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextbud/premium/pkg/logctx"
)

// AccessLogMiddleware writes one http_access line per request with the
// request-scoped logger. Admin and partner callers are tagged.
func AccessLogMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if by := c.GetString("performed_by"); by != "" {
			fields = append(fields, "performed_by", by)
		}
		if p, ok := PartnerFromGin(c); ok {
			fields = append(fields, "partner_id", p.ID)
		}
		logctx.FromGin(c, base).Infow("http_access", fields...)
	}
}
