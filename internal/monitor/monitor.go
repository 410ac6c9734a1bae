package monitor

import (
	"log"
	"sync"
)

// Monitor owns the anomaly window. Update and Reset share one exclusive
// lock so scoring and appending are atomic with respect to each other.
type Monitor struct {
	mu      sync.Mutex
	state   *state
	metrics *Metrics
}

// New creates a Monitor with the given window size and threshold. metrics
// may be nil.
func New(windowSize int, threshold float64, metrics *Metrics) (*Monitor, error) {
	if err := validateSettings(windowSize, threshold); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	metrics.RecordSettings(windowSize, threshold)
	return &Monitor{
		state:   newState(windowSize, threshold),
		metrics: metrics,
	}, nil
}

// NewDefault creates a Monitor with DefaultWindowSize and
// DefaultAnomalyThreshold.
func NewDefault(metrics *Metrics) *Monitor {
	m, _ := New(DefaultWindowSize, DefaultAnomalyThreshold, metrics)
	return m
}

// Reset replaces the whole state; no samples survive.
func (m *Monitor) Reset(windowSize int, threshold float64) error {
	if err := validateSettings(windowSize, threshold); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = newState(windowSize, threshold)
	m.metrics.RecordSettings(windowSize, threshold)
	m.mu.Unlock()

	log.Printf("[monitor] Reset: window_size=%d, anomaly_threshold=%.3f", windowSize, threshold)
	return nil
}

// Update scores sample against the window and stores it.
func (m *Monitor) Update(sample NetworkMetrics) (AnomalyDetectionResult, error) {
	if err := sample.Validate(); err != nil {
		return AnomalyDetectionResult{}, err
	}

	m.mu.Lock()
	result := m.state.detect(sample)
	m.metrics.RecordResult(result, len(m.state.history))
	m.mu.Unlock()

	if result.Metrics.IsAnomaly {
		log.Printf("[monitor] Anomaly: latency=%.2fms, score=%.2f, threshold=%.2f",
			result.Metrics.Latency, result.AnomalyScore, result.Threshold)
	}
	return result, nil
}

// Snapshot returns a copy of the window, oldest first.
func (m *Monitor) Snapshot() []NetworkMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.snapshot()
}

// Settings returns the current window size and threshold.
func (m *Monitor) Settings() (windowSize int, threshold float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.windowSize, m.state.threshold
}
