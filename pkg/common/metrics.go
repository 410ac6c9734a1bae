package common

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics shared by every component.
type Metrics struct {
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	ComponentReady    prometheus.Gauge
}

// NewMetrics creates component metrics registered with reg. A nil reg
// yields unregistered collectors.
func NewMetrics(component string, reg prometheus.Registerer) *Metrics {
	labels := prometheus.Labels{"component": component}
	factory := promauto.With(reg)

	return &Metrics{
		APIRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "netload_api_requests_total",
			Help:        "Total number of API requests handled",
			ConstLabels: labels,
		}, []string{"method", "route", "status"}),
		APIRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "netload_api_request_duration_seconds",
			Help:        "API request latency in seconds",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ComponentReady: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "netload_component_ready",
			Help:        "Whether the component is ready (1) or not (0)",
			ConstLabels: labels,
		}),
	}
}

// SetReady marks the component as ready.
func (m *Metrics) SetReady() {
	m.ComponentReady.Set(1)
}

// SetNotReady marks the component as not ready.
func (m *Metrics) SetNotReady() {
	m.ComponentReady.Set(0)
}
