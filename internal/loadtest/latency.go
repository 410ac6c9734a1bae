package loadtest

import (
	"math"
	"sort"
)

// latencyTracker summarizes the durations of one load-test run.
type latencyTracker struct {
	values []float64
	total  float64
}

func newLatencyTracker(capacity int) *latencyTracker {
	return &latencyTracker{values: make([]float64, 0, capacity)}
}

// Add records a duration in milliseconds.
func (t *latencyTracker) Add(latencyMs float64) {
	t.values = append(t.values, latencyMs)
	t.total += latencyMs
}

// Count returns the number of recorded durations.
func (t *latencyTracker) Count() int {
	return len(t.values)
}

// Average returns the mean duration, or 0 when nothing was recorded.
func (t *latencyTracker) Average() float64 {
	if len(t.values) == 0 {
		return 0
	}
	return t.total / float64(len(t.values))
}

// Min returns the smallest duration, or 0 when nothing was recorded.
func (t *latencyTracker) Min() float64 {
	if len(t.values) == 0 {
		return 0
	}
	m := math.Inf(1)
	for _, v := range t.values {
		m = math.Min(m, v)
	}
	return m
}

// Max returns the largest duration, or 0 when nothing was recorded.
func (t *latencyTracker) Max() float64 {
	m := 0.0
	for _, v := range t.values {
		m = math.Max(m, v)
	}
	return m
}

// Percentile returns the nearest-rank percentile p (0-100): the smallest
// value with at least p percent of samples at or below it.
func (t *latencyTracker) Percentile(p int) float64 {
	if len(t.values) == 0 {
		return 0
	}

	sorted := make([]float64, len(t.values))
	copy(sorted, t.values)
	sort.Float64s(sorted)

	rank := (p*len(sorted) + 99) / 100
	rank = max(1, min(rank, len(sorted)))
	return sorted[rank-1]
}
