package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds network monitor Prometheus metrics.
type Metrics struct {
	SamplesTotal    prometheus.Counter
	AnomaliesTotal  prometheus.Counter
	SamplingErrors  prometheus.Counter
	LatencyMs       prometheus.Gauge
	PacketLoss      prometheus.Gauge
	AnomalyScore    prometheus.Gauge
	WindowSize      prometheus.Gauge
	WindowFill      prometheus.Gauge
	Threshold       prometheus.Gauge
	SamplingRunning prometheus.Gauge
}

// NewMetrics creates monitor metrics registered with reg. A nil reg yields
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SamplesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netload_monitor_samples_total",
			Help: "Total number of samples scored",
		}),
		AnomaliesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netload_monitor_anomalies_total",
			Help: "Total number of samples flagged as anomalies",
		}),
		SamplingErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "netload_monitor_sampling_errors_total",
			Help: "Total number of background sampling failures",
		}),
		LatencyMs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netload_monitor_latency_ms",
			Help: "Latency of the most recent sample in milliseconds",
		}),
		PacketLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netload_monitor_packet_loss_percent",
			Help: "Packet loss of the most recent sample in percent",
		}),
		AnomalyScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netload_monitor_anomaly_score",
			Help: "Anomaly score of the most recent sample",
		}),
		WindowSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netload_monitor_window_size",
			Help: "Configured sliding window capacity",
		}),
		WindowFill: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netload_monitor_window_samples",
			Help: "Number of samples currently in the window",
		}),
		Threshold: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netload_monitor_anomaly_threshold",
			Help: "Configured anomaly score threshold",
		}),
		SamplingRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netload_monitor_sampling_running",
			Help: "Whether background sampling is running (1) or stopped (0)",
		}),
	}
}

// RecordResult updates sample gauges and counters from a scored sample.
func (m *Metrics) RecordResult(r AnomalyDetectionResult, windowFill int) {
	m.SamplesTotal.Inc()
	if r.Metrics.IsAnomaly {
		m.AnomaliesTotal.Inc()
	}
	m.LatencyMs.Set(r.Metrics.Latency)
	m.PacketLoss.Set(r.Metrics.PacketLoss)
	m.AnomalyScore.Set(r.AnomalyScore)
	m.WindowFill.Set(float64(windowFill))
}

// RecordSettings updates the configuration gauges.
func (m *Metrics) RecordSettings(windowSize int, threshold float64) {
	m.WindowSize.Set(float64(windowSize))
	m.Threshold.Set(threshold)
	m.WindowFill.Set(0)
}
