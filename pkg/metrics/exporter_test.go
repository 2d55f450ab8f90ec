package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestExporter_RecordsRequestsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	exp := NewExporter(ExporterOptions{
		Metrics:    JobMetrics,
		Registry:   reg,
		RouteLabel: func(c *gin.Context) string { return c.FullPath() },
	})

	r := gin.New()
	r.Use(exp.Middleware())
	r.GET("/admin/partners/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	for _, id := range []string{"acme", "globex"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/partners/"+id, nil))
	}

	ObserveBusinessProcess("sweep", "auto_deactivated", time.Now())
	CountSweepRecords("expired_premium_sweep", "deactivated", 3)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	exp.Handler()(c)
	body := rec.Body.String()
	require.Contains(t, body, `req_total{code="200",method="GET",url="/admin/partners/:id"} 2`)
	require.Contains(t, body, `sweep_records_total{job="expired_premium_sweep",outcome="deactivated"} 3`)
	require.Contains(t, body, "bp_dur_bucket")
}

func TestExporter_SecondExporterSharesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewExporter(ExporterOptions{Metrics: JobMetrics, Registry: reg})
	second := NewExporter(ExporterOptions{Metrics: JobMetrics, Registry: reg})
	require.Same(t, first.reqCnt, second.reqCnt)
}
