// Package storage keeps recent load-test runs in memory.
package storage

import (
	"sync"
	"time"

	"github.com/container-resource-predictor/netload/internal/loadtest"
)

// DefaultMaxRuns is the number of runs kept when no limit is given.
const DefaultMaxRuns = 100

// RunHistory stores the most recent load-test results, oldest first.
type RunHistory struct {
	mu      sync.RWMutex
	results []loadtest.Result
	maxRuns int
}

// NewRunHistory creates a RunHistory holding at most maxRuns results.
func NewRunHistory(maxRuns int) *RunHistory {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &RunHistory{
		results: make([]loadtest.Result, 0),
		maxRuns: maxRuns,
	}
}

// Add appends a result, dropping the oldest when full.
func (h *RunHistory) Add(result loadtest.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append(h.results, result)
	if len(h.results) > h.maxRuns {
		h.results = h.results[len(h.results)-h.maxRuns:]
	}
}

// GetResults returns a copy of all stored results.
func (h *RunHistory) GetResults() []loadtest.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	results := make([]loadtest.Result, len(h.results))
	copy(results, h.results)
	return results
}

// GetResultsSince returns results started after since.
func (h *RunHistory) GetResultsSince(since time.Time) []loadtest.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	results := make([]loadtest.Result, 0)
	for _, r := range h.results {
		if r.StartedAt.After(since) {
			results = append(results, r)
		}
	}
	return results
}

// Get returns the result with the given run id.
func (h *RunHistory) Get(runID string) (loadtest.Result, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.results {
		if r.RunID == runID {
			return r, true
		}
	}
	return loadtest.Result{}, false
}

// Latest returns the most recent result.
func (h *RunHistory) Latest() (loadtest.Result, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.results) == 0 {
		return loadtest.Result{}, false
	}
	return h.results[len(h.results)-1], true
}
