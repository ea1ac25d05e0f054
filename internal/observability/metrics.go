package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emissions_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RowsRead      prometheus.Counter
	RowsKept      prometheus.Counter
	RowsDropped   prometheus.Counter
	ParseWarnings prometheus.Counter
	PipelineRuns  *prometheus.CounterVec // labels: outcome={success,empty,error}

	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram

	// Load cache and sink metrics.
	LoadCache        *prometheus.CounterVec // labels: result={hit,miss}
	RecordsPublished prometheus.Counter
	PublishRetries   prometheus.Counter
}

// Outcome labels for PipelineRuns.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all pipeline metrics and registers them with reg.
// One-shot commands pass a private registry that is never scraped.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RowsRead,
		m.RowsKept,
		m.RowsDropped,
		m.ParseWarnings,
		m.PipelineRuns,
		m.PipelineRunning,
		m.RunDuration,
		m.LoadCache,
		m.RecordsPublished,
		m.PublishRetries,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from input files.",
		}),
		RowsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_kept_total",
			Help:      "Rows that survived year filtering.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped for a missing or unparsable year.",
		}),
		ParseWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Numeric cells that could not be parsed and were read as zero.",
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-derive-load run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		LoadCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_cache_total",
			Help:      "Raw table cache lookups by result.",
		}, []string{"result"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Derived records written to the sink topic.",
		}),
		PublishRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_retries_total",
			Help:      "Sink writes retried after a failure.",
		}),
	}
}
