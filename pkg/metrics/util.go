package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MillisecondsSince returns the elapsed time since start in fractional milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// From https://github.com/DanielHeckrath/gin-prometheus/blob/master/gin_prometheus.go
func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}

	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)

	// N.B. r.Form and r.MultipartForm are assumed to be included in r.URL.

	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}

// ObserveBusinessProcess records the latency of a named business process into
// the bp_dur histogram. It is a no-op until an Exporter has registered it.
func ObserveBusinessProcess(typ, subtype string, start time.Time) {
	h, ok := MetricsBusinessProcess.MetricCollector.(*prometheus.HistogramVec)
	if !ok || h == nil {
		return
	}
	h.WithLabelValues(typ, subtype).Observe(MillisecondsSince(start))
}

// CountSweepRecords adds n to the sweep_records_total counter. It is a no-op
// until an Exporter has registered it.
func CountSweepRecords(job, outcome string, n int) {
	c, ok := MetricsSweepRecords.MetricCollector.(*prometheus.CounterVec)
	if !ok || c == nil || n <= 0 {
		return
	}
	c.WithLabelValues(job, outcome).Add(float64(n))
}
