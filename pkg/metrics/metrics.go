package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var HistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Medium responses around 700ms (500ms - 2s) ---
	750, 1000, 1250, 1500, 1750, 2000,

	// --- Slow responses (2s - 15s) ---
	2500, 3000, 4000, 5000, 7500, 10000, 15000,

	// --- Extended range: covers 60000ms+ (15s - 75s) ---
	20000,  // 20s
	30000,  // 30s
	45000,  // 45s
	60000,  // 60s
	75000,  // 75s
	90000,  // 90s
	120000, // 120s
}

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric builds the collector named by m.Type. Only the vector kinds are
// used here.
func NewMetric(m *Metric) prometheus.Collector {
	switch m.Type {
	case "counter_vec":
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: m.Name, Help: m.Description}, m.Args)
	case "histogram_vec":
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: m.Name, Help: m.Description, Buckets: HistogramBuckets}, m.Args)
	case "summary_vec":
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{Name: m.Name, Help: m.Description}, m.Args)
	default:
		panic("metrics: unsupported metric type " + m.Type)
	}
}

// MetricsBusinessProcess times approvals, referrals and sweep runs.
var MetricsBusinessProcess = &Metric{
	ID:          "bpDur",
	Name:        "bp_dur",
	Description: "process latency in milliseconds",
	Type:        "histogram_vec",
	Args:        []string{"type", "subtype"},
}

// MetricsSweepRecords counts sweep records by outcome (activated, expired,
// deactivated, still_pending, still_active, error).
var MetricsSweepRecords = &Metric{
	ID:          "sweepRecords",
	Name:        "sweep_records_total",
	Description: "records visited by reconciliation sweeps, partitioned by outcome",
	Type:        "counter_vec",
	Args:        []string{"job", "outcome"},
}

// JobMetrics lists the business metrics registered next to the HTTP ones.
var JobMetrics = []*Metric{MetricsBusinessProcess, MetricsSweepRecords}
