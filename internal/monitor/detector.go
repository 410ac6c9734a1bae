package monitor

import "math"

// epsilon keeps the score finite when every window sample has the same
// latency.
const epsilon = 1e-10

// state is the sliding window and its scoring threshold. It is not safe for
// concurrent use; Monitor serializes access.
type state struct {
	history    []NetworkMetrics
	windowSize int
	threshold  float64
}

// maxPrealloc bounds the initial window allocation; larger windows grow on
// demand.
const maxPrealloc = 1024

func newState(windowSize int, threshold float64) *state {
	return &state{
		history:    make([]NetworkMetrics, 0, min(windowSize, maxPrealloc)),
		windowSize: windowSize,
		threshold:  threshold,
	}
}

// detect scores sample against the current window, resolves its anomaly
// flag and appends it, evicting the oldest entry when full.
func (s *state) detect(sample NetworkMetrics) AnomalyDetectionResult {
	score := s.score(sample.Latency)
	sample.IsAnomaly = score > s.threshold

	if len(s.history) >= s.windowSize {
		copy(s.history, s.history[1:])
		s.history = s.history[:len(s.history)-1]
	}
	s.history = append(s.history, sample)

	return AnomalyDetectionResult{
		Metrics:      sample,
		AnomalyScore: score,
		Threshold:    s.threshold,
	}
}

// score returns |latency - mean| / (stddev + epsilon) over the window, using
// the population standard deviation. An empty window scores 0.
func (s *state) score(latency float64) float64 {
	if len(s.history) == 0 {
		return 0
	}

	mean := s.meanLatency()
	var variance float64
	for _, m := range s.history {
		diff := m.Latency - mean
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(len(s.history)))

	return math.Abs(latency-mean) / (stdDev + epsilon)
}

func (s *state) meanLatency() float64 {
	if len(s.history) == 0 {
		return 0
	}
	var sum float64
	for _, m := range s.history {
		sum += m.Latency
	}
	return sum / float64(len(s.history))
}

func (s *state) snapshot() []NetworkMetrics {
	out := make([]NetworkMetrics, len(s.history))
	copy(out, s.history)
	return out
}
