package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	Registry *prometheus.Registry

	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram
	ExecutionErrors   *prometheus.CounterVec
	ActiveExecutions  prometheus.Gauge
	AnalysesTotal     *prometheus.CounterVec
	ReportsTotal      *prometheus.CounterVec
	RequestsInFlight  prometheus.Gauge
	OutputSizeBytes   prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scriptflow",
				Name:      "executions_total",
				Help:      "Total number of script executions by status.",
			},
			[]string{"status"},
		),

		ExecutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "scriptflow",
				Name:      "execution_duration_seconds",
				Help:      "Duration of script executions in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
		),

		ExecutionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scriptflow",
				Name:      "execution_errors_total",
				Help:      "Total execution failures by kind.",
			},
			[]string{"kind"},
		),

		ActiveExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "scriptflow",
				Name:      "active_executions",
				Help:      "Number of currently running script executions.",
			},
		),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scriptflow",
				Name:      "analyses_total",
				Help:      "Total analyses performed by type.",
			},
			[]string{"type"},
		),

		ReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scriptflow",
				Name:      "reports_generated_total",
				Help:      "Total reports generated by format.",
			},
			[]string{"format"},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "scriptflow",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),

		OutputSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "scriptflow",
				Name:      "output_size_bytes",
				Help:      "Size of captured execution output in bytes.",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
			},
		),
	}

	reg.MustRegister(
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.ExecutionErrors,
		m.ActiveExecutions,
		m.AnalysesTotal,
		m.ReportsTotal,
		m.RequestsInFlight,
		m.OutputSizeBytes,
	)

	return m
}

// RecordExecution records metrics for a finished execution.
func (m *Metrics) RecordExecution(status string, durationSec float64) {
	m.ExecutionsTotal.WithLabelValues(status).Inc()
	m.ExecutionDuration.Observe(durationSec)
}

// RecordError records an execution failure by kind.
func (m *Metrics) RecordError(kind string) {
	m.ExecutionErrors.WithLabelValues(kind).Inc()
}

// RecordAnalysis records a completed analysis by type.
func (m *Metrics) RecordAnalysis(analysisType string) {
	m.AnalysesTotal.WithLabelValues(analysisType).Inc()
}

// RecordReport records a generated report by format.
func (m *Metrics) RecordReport(format string) {
	m.ReportsTotal.WithLabelValues(format).Inc()
}
