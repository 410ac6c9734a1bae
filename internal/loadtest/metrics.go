package loadtest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds load-test Prometheus metrics.
type Metrics struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Run metrics
	RunsTotal      *prometheus.CounterVec
	LastRunAvgMs   prometheus.Gauge
	LastRunP99Ms   prometheus.Gauge
	LastRunRPS     prometheus.Gauge
	RunsInProgress prometheus.Gauge
}

// NewMetrics creates load-test metrics registered with reg. A nil reg
// yields unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netload_loadtest_requests_total",
				Help: "Total number of load-test requests by outcome",
			},
			[]string{"status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netload_loadtest_request_duration_seconds",
				Help:    "Load-test request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "netload_loadtest_requests_in_flight",
				Help: "Number of load-test requests currently in flight",
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netload_loadtest_runs_total",
				Help: "Total number of load-test runs by method",
			},
			[]string{"method"},
		),
		LastRunAvgMs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "netload_loadtest_last_run_avg_ms",
				Help: "Average request duration of the last completed run in milliseconds",
			},
		),
		LastRunP99Ms: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "netload_loadtest_last_run_p99_ms",
				Help: "99th percentile request duration of the last completed run in milliseconds",
			},
		),
		LastRunRPS: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "netload_loadtest_last_run_rps",
				Help: "Achieved requests per second of the last completed run",
			},
		),
		RunsInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "netload_loadtest_runs_in_progress",
				Help: "Number of load-test runs currently executing",
			},
		),
	}
}

// RecordRequest records one request with its outcome and duration.
func (m *Metrics) RecordRequest(ok bool, durationSeconds float64) {
	status := "success"
	if !ok {
		status = "failure"
	}
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordRun updates the last-run gauges from a finished result.
func (m *Metrics) RecordRun(r Result) {
	m.RunsTotal.WithLabelValues(r.Method).Inc()
	m.LastRunAvgMs.Set(r.AvgTimeMs)
	m.LastRunP99Ms.Set(r.P99TimeMs)
	m.LastRunRPS.Set(r.RequestsPerSecond)
}
