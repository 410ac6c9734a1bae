// Package loadtest runs fixed-size HTTP load tests under a concurrency cap.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/container-resource-predictor/netload/internal/httpclient"
)

// ErrInvalidConfig is returned for load-test configurations that cannot run.
var ErrInvalidConfig = errors.New("invalid load test config")

// MaxTotalRequests is the largest accepted total_requests for one run.
const MaxTotalRequests = 1_000_000

// Config describes one load-test run.
type Config struct {
	URL           string `json:"url"`
	Method        string `json:"method"`
	Concurrency   int    `json:"concurrency"`
	TotalRequests int    `json:"total_requests"`
}

// Validate checks the config. Unknown methods are not an error; they run
// as GET.
func (c Config) Validate() error {
	if c.TotalRequests < 0 || c.TotalRequests > MaxTotalRequests {
		return fmt.Errorf("%w: total_requests must be within 0-%d, got %d", ErrInvalidConfig, MaxTotalRequests, c.TotalRequests)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	u, err := url.ParseRequestURI(c.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.URL)
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	RunID             string    `json:"run_id"`
	URL               string    `json:"url"`
	Method            string    `json:"method"`
	Concurrency       int       `json:"concurrency"`
	Total             int       `json:"total"`
	Success           int       `json:"success"`
	Fail              int       `json:"fail"`
	AvgTimeMs         float64   `json:"avg_time_ms"`
	MinTimeMs         float64   `json:"min_time_ms"`
	MaxTimeMs         float64   `json:"max_time_ms"`
	P50TimeMs         float64   `json:"p50_time_ms"`
	P95TimeMs         float64   `json:"p95_time_ms"`
	P99TimeMs         float64   `json:"p99_time_ms"`
	ElapsedMs         float64   `json:"elapsed_ms"`
	RequestsPerSecond float64   `json:"requests_per_second"`
	StartedAt         time.Time `json:"started_at"`
}

// slot holds the outcome of one dispatched request.
type slot struct {
	joined     bool
	ok         bool
	durationMs float64
}

// Engine executes load tests through a shared HTTP client.
type Engine struct {
	client  *httpclient.Client
	metrics *Metrics
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(client *httpclient.Client, metrics *Metrics) *Engine {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Engine{client: client, metrics: metrics}
}

// Run issues cfg.TotalRequests requests with at most cfg.Concurrency in
// flight and waits for all of them. If ctx is cancelled while dispatching,
// the undispatched requests are counted in Total only.
func (e *Engine) Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	limiter, err := NewLimiter(cfg.Concurrency)
	if err != nil {
		return Result{}, err
	}

	method, recognized := httpclient.ParseMethod(cfg.Method)
	if !recognized {
		log.Printf("[loadtest] Unrecognized method %q, using %s", cfg.Method, method)
	}

	runID := uuid.New().String()
	log.Printf("[loadtest] Run %s starting: method=%s, url=%s, concurrency=%d, total=%d",
		runID, method, cfg.URL, limiter.Size(), cfg.TotalRequests)

	e.metrics.RunsInProgress.Inc()
	defer e.metrics.RunsInProgress.Dec()

	slots := make([]slot, cfg.TotalRequests)
	start := time.Now()

	var g errgroup.Group
	for i := range slots {
		permit, err := limiter.Acquire(ctx)
		if err != nil {
			log.Printf("[loadtest] Run %s stopped dispatching after %d of %d requests: %v",
				runID, i, cfg.TotalRequests, err)
			break
		}
		s := &slots[i]
		g.Go(func() error {
			e.execute(ctx, method, cfg.URL, permit, s)
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	result := e.aggregate(slots, elapsed)
	result.RunID = runID
	result.URL = cfg.URL
	result.Method = string(method)
	result.Concurrency = cfg.Concurrency
	result.Total = cfg.TotalRequests
	result.StartedAt = start.UTC()

	e.metrics.RecordRun(result)
	log.Printf("[loadtest] Run %s finished: success=%d, fail=%d, avg=%.2fms, rps=%.1f",
		runID, result.Success, result.Fail, result.AvgTimeMs, result.RequestsPerSecond)

	return result, nil
}

// execute performs one request. The permit is released as soon as the HTTP
// call returns. A panic is recorded as a failed request.
func (e *Engine) execute(ctx context.Context, method httpclient.Method, target string, permit *Permit, s *slot) {
	start := time.Now()
	inFlight := true
	e.metrics.RequestsInFlight.Inc()
	defer func() {
		if r := recover(); r != nil {
			if inFlight {
				e.metrics.RequestsInFlight.Dec()
			}
			permit.Release()
			log.Printf("[loadtest] Request panicked: %v", r)
			if !s.joined {
				*s = slot{joined: true, durationMs: msSince(start)}
			}
		}
	}()

	out := e.client.Do(ctx, method, target)
	inFlight = false
	e.metrics.RequestsInFlight.Dec()
	permit.Release()

	*s = slot{joined: true, ok: out.OK(), durationMs: out.ElapsedMs()}
	e.metrics.RecordRequest(out.OK(), out.Elapsed.Seconds())
}

func (e *Engine) aggregate(slots []slot, elapsed time.Duration) Result {
	var r Result
	tracker := newLatencyTracker(len(slots))
	for _, s := range slots {
		if !s.joined {
			continue
		}
		tracker.Add(s.durationMs)
		if s.ok {
			r.Success++
		} else {
			r.Fail++
		}
	}

	r.AvgTimeMs = tracker.Average()
	r.MinTimeMs = tracker.Min()
	r.MaxTimeMs = tracker.Max()
	r.P50TimeMs = tracker.Percentile(50)
	r.P95TimeMs = tracker.Percentile(95)
	r.P99TimeMs = tracker.Percentile(99)
	r.ElapsedMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && tracker.Count() > 0 {
		r.RequestsPerSecond = float64(tracker.Count()) / elapsed.Seconds()
	}
	return r
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
