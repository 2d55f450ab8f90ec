package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultMetricsPath = "/metrics"

var httpLabels = []string{"code", "method", "url"}

var (
	reqCnt = &Metric{ID: "reqCnt", Name: "req_total", Description: "HTTP requests processed, partitioned by status code, method and route.", Type: "counter_vec", Args: httpLabels}
	reqDur = &Metric{ID: "reqDur", Name: "req_dur_ms", Description: "HTTP request latencies in milliseconds.", Type: "histogram_vec", Args: httpLabels}
	reqSz  = &Metric{ID: "reqSz", Name: "req_sz_bytes", Description: "HTTP request sizes in bytes.", Type: "summary_vec", Args: httpLabels}
	resSz  = &Metric{ID: "resSz", Name: "resp_sz_bytes", Description: "HTTP response sizes in bytes.", Type: "summary_vec", Args: httpLabels}
)

type ExporterOptions struct {
	// Metrics are registered in addition to the HTTP request metrics.
	Metrics []*Metric
	// RouteLabel maps a request to its "url" label. Defaults to the raw path.
	RouteLabel func(c *gin.Context) string
	// Registry defaults to the process-wide prometheus registry.
	Registry *prometheus.Registry
	Path     string
	Logger   *zap.SugaredLogger
}

// Exporter records gin request metrics and the business metrics in
// JobMetrics, and serves them on a listener separate from the API.
type Exporter struct {
	reqCnt       *prometheus.CounterVec
	reqDur       *prometheus.HistogramVec
	reqSz, resSz *prometheus.SummaryVec

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	path       string
	routeLabel func(c *gin.Context) string
	log        *zap.SugaredLogger
}

func NewExporter(opts ExporterOptions) *Exporter {
	e := &Exporter{
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
		path:       opts.Path,
		routeLabel: opts.RouteLabel,
		log:        opts.Logger,
	}
	if opts.Registry != nil {
		e.registerer, e.gatherer = opts.Registry, opts.Registry
	}
	if e.path == "" {
		e.path = defaultMetricsPath
	}
	if e.routeLabel == nil {
		e.routeLabel = func(c *gin.Context) string { return c.Request.URL.Path }
	}
	if e.log == nil {
		e.log = zap.NewNop().Sugar()
	}

	for _, m := range opts.Metrics {
		e.register(m)
	}
	e.reqCnt = e.register(reqCnt).(*prometheus.CounterVec)
	e.reqDur = e.register(reqDur).(*prometheus.HistogramVec)
	e.reqSz = e.register(reqSz).(*prometheus.SummaryVec)
	e.resSz = e.register(resSz).(*prometheus.SummaryVec)
	return e
}

// register adopts an already registered collector so a second exporter in
// the same process shares the first one's series.
func (e *Exporter) register(m *Metric) prometheus.Collector {
	c := NewMetric(m)
	if err := e.registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			e.log.Errorf("%s could not be registered in Prometheus, err=%v", m.Name, err)
		} else {
			c = already.ExistingCollector
		}
	}
	m.MetricCollector = c
	return c
}

// Middleware records count, latency and sizes for every request it wraps.
func (e *Exporter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		in := computeApproximateRequestSize(c.Request)

		c.Next()

		labels := []string{strconv.Itoa(c.Writer.Status()), c.Request.Method, e.routeLabel(c)}
		e.reqDur.WithLabelValues(labels...).Observe(MillisecondsSince(start))
		e.reqCnt.WithLabelValues(labels...).Inc()
		e.reqSz.WithLabelValues(labels...).Observe(float64(in))
		e.resSz.WithLabelValues(labels...).Observe(float64(c.Writer.Size()))
	}
}

// Handler serves the registry in the prometheus text format.
func (e *Exporter) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Serve exposes Handler on addr in the background.
func (e *Exporter) Serve(addr string) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(e.path, e.Handler())
	go func() {
		if err := r.Run(addr); err != nil {
			e.log.Errorw("metrics listener stopped", "addr", addr, "err", err)
		}
	}()
}
