package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/container-resource-predictor/netload/internal/loadtest"
)

func TestRunHistoryBounded(t *testing.T) {
	h := NewRunHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(loadtest.Result{RunID: fmt.Sprintf("run-%d", i)})
	}

	results := h.GetResults()
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		want := fmt.Sprintf("run-%d", i+2)
		if r.RunID != want {
			t.Errorf("results[%d] = %s, want %s", i, r.RunID, want)
		}
	}

	latest, ok := h.Latest()
	if !ok || latest.RunID != "run-4" {
		t.Errorf("Expected latest run-4, got %s (%v)", latest.RunID, ok)
	}
}

func TestRunHistoryDefaults(t *testing.T) {
	h := NewRunHistory(0)
	if h.maxRuns != DefaultMaxRuns {
		t.Errorf("Expected default max %d, got %d", DefaultMaxRuns, h.maxRuns)
	}
	if _, ok := h.Latest(); ok {
		t.Error("Expected no latest result for empty history")
	}
}

func TestRunHistoryLookup(t *testing.T) {
	h := NewRunHistory(10)
	base := time.Now()
	h.Add(loadtest.Result{RunID: "old", StartedAt: base.Add(-time.Hour)})
	h.Add(loadtest.Result{RunID: "new", StartedAt: base})

	if _, ok := h.Get("missing"); ok {
		t.Error("Expected missing run not to be found")
	}
	if r, ok := h.Get("old"); !ok || r.RunID != "old" {
		t.Error("Expected to find run 'old'")
	}

	since := h.GetResultsSince(base.Add(-time.Minute))
	if len(since) != 1 || since[0].RunID != "new" {
		t.Errorf("Expected only 'new' since a minute ago, got %+v", since)
	}
	if n := len(h.GetResults()); n != 2 {
		t.Errorf("Expected length 2, got %d", n)
	}
}

func TestGetResultsReturnsCopy(t *testing.T) {
	h := NewRunHistory(10)
	h.Add(loadtest.Result{RunID: "a"})

	results := h.GetResults()
	results[0].RunID = "mutated"

	if r, _ := h.Latest(); r.RunID != "a" {
		t.Error("Expected stored results to be unaffected by caller mutation")
	}
}
