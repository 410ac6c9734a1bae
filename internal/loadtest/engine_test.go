package loadtest

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/container-resource-predictor/netload/internal/httpclient"
)

// fakeTransport counts concurrent calls and answers after a fixed delay.
type fakeTransport struct {
	delay     time.Duration
	status    int
	failEvery int64
	panicOn   int64

	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64

	mu      sync.Mutex
	methods map[string]int
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	n := f.calls.Add(1)

	f.mu.Lock()
	if f.methods == nil {
		f.methods = make(map[string]int)
	}
	f.methods[req.Method]++
	f.mu.Unlock()

	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if cur <= old || f.peak.CompareAndSwap(old, cur) {
			break
		}
	}

	time.Sleep(f.delay)

	if f.panicOn > 0 && n == f.panicOn {
		panic("transport exploded")
	}
	if f.failEvery > 0 && n%f.failEvery == 0 {
		return nil, errors.New("connection reset")
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("ok"))}, nil
}

func newTestEngine(tr *fakeTransport) *Engine {
	return NewEngine(httpclient.NewWithDoer(tr, nil), nil)
}

func TestRunAllSucceed(t *testing.T) {
	tr := &fakeTransport{delay: 10 * time.Millisecond}
	e := newTestEngine(tr)

	result, err := e.Run(context.Background(), Config{
		URL:           "http://example.test",
		Method:        "GET",
		Concurrency:   5,
		TotalRequests: 20,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Total != 20 || result.Success != 20 || result.Fail != 0 {
		t.Errorf("Expected 20/20/0, got total=%d success=%d fail=%d", result.Total, result.Success, result.Fail)
	}
	if result.AvgTimeMs < 10 || result.AvgTimeMs > 100 {
		t.Errorf("Expected avg_time_ms around 10, got %f", result.AvgTimeMs)
	}
	if result.RunID == "" {
		t.Error("Expected a run id")
	}
	if tr.peak.Load() > 5 {
		t.Errorf("Expected at most 5 in flight, saw %d", tr.peak.Load())
	}
}

func TestRunRespectsConcurrencyCap(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		total       int
	}{
		{"serial", 1, 10},
		{"small pool", 3, 30},
		{"pool larger than total", 50, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{delay: 5 * time.Millisecond}
			result, err := newTestEngine(tr).Run(context.Background(), Config{
				URL:           "http://example.test/work",
				Method:        "GET",
				Concurrency:   tt.concurrency,
				TotalRequests: tt.total,
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := tr.peak.Load(); got > int64(tt.concurrency) {
				t.Errorf("Peak in-flight %d exceeds concurrency %d", got, tt.concurrency)
			}
			if int(tr.calls.Load()) != tt.total {
				t.Errorf("Expected %d calls, got %d", tt.total, tr.calls.Load())
			}
			if result.Success+result.Fail > result.Total || result.Total != tt.total {
				t.Errorf("Invariant violated: %+v", result)
			}
		})
	}
}

func TestRunCountsTransportErrorsAsFailures(t *testing.T) {
	tr := &fakeTransport{failEvery: 2}
	result, err := newTestEngine(tr).Run(context.Background(), Config{
		URL:           "http://example.test",
		Method:        "GET",
		Concurrency:   4,
		TotalRequests: 10,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success != 5 || result.Fail != 5 {
		t.Errorf("Expected 5 success and 5 fail, got %d/%d", result.Success, result.Fail)
	}
	if result.AvgTimeMs <= 0 {
		t.Errorf("Expected failed requests to contribute to avg_time_ms, got %f", result.AvgTimeMs)
	}
}

func TestRunCountsErrorStatusAsSuccess(t *testing.T) {
	tr := &fakeTransport{status: http.StatusServiceUnavailable}
	result, err := newTestEngine(tr).Run(context.Background(), Config{
		URL:           "http://example.test",
		Method:        "GET",
		Concurrency:   2,
		TotalRequests: 6,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success != 6 || result.Fail != 0 {
		t.Errorf("Expected non-2xx to count as success, got %d/%d", result.Success, result.Fail)
	}
}

func TestRunZeroRequests(t *testing.T) {
	tr := &fakeTransport{}
	result, err := newTestEngine(tr).Run(context.Background(), Config{
		URL:           "http://example.test",
		Method:        "GET",
		Concurrency:   1,
		TotalRequests: 0,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Total != 0 || result.Success != 0 || result.Fail != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
	if result.AvgTimeMs != 0 {
		t.Errorf("Expected avg_time_ms 0 with nothing joined, got %f", result.AvgTimeMs)
	}
}

func TestRunMethodSelection(t *testing.T) {
	tests := []struct {
		method   string
		expected string
	}{
		{"POST", http.MethodPost},
		{"GET", http.MethodGet},
		{"DELETE", http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			tr := &fakeTransport{}
			result, err := newTestEngine(tr).Run(context.Background(), Config{
				URL:           "http://example.test",
				Method:        tt.method,
				Concurrency:   2,
				TotalRequests: 4,
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if tr.methods[tt.expected] != 4 {
				t.Errorf("Expected 4 %s requests, got %v", tt.expected, tr.methods)
			}
			if result.Method != tt.expected {
				t.Errorf("Expected result method %s, got %s", tt.expected, result.Method)
			}
		})
	}
}

func TestRunRecoversPanickingRequest(t *testing.T) {
	tr := &fakeTransport{panicOn: 3}
	result, err := newTestEngine(tr).Run(context.Background(), Config{
		URL:           "http://example.test",
		Method:        "GET",
		Concurrency:   1,
		TotalRequests: 5,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success != 4 || result.Fail != 1 {
		t.Errorf("Expected panicking request recorded as failure, got %d/%d", result.Success, result.Fail)
	}
}

func TestRunKeepsCompletedRequestWhenMetricsPanic(t *testing.T) {
	metrics := NewMetrics(nil)
	metrics.RequestsTotal = nil

	engine := NewEngine(httpclient.NewWithDoer(&fakeTransport{}, nil), metrics)
	result, err := engine.Run(context.Background(), Config{
		URL:           "http://example.test",
		Method:        "GET",
		Concurrency:   2,
		TotalRequests: 4,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success != 4 || result.Fail != 0 {
		t.Errorf("Expected completed requests to stay successful, got %d/%d", result.Success, result.Fail)
	}
}

func TestRunCancelledContext(t *testing.T) {
	tr := &fakeTransport{delay: 50 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := newTestEngine(tr).Run(ctx, Config{
		URL:           "http://example.test",
		Method:        "GET",
		Concurrency:   1,
		TotalRequests: 10,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Total != 10 {
		t.Errorf("Expected total 10, got %d", result.Total)
	}
	if result.Success+result.Fail > result.Total {
		t.Errorf("Invariant violated: %+v", result)
	}
	if result.Success+result.Fail == result.Total {
		t.Errorf("Expected undispatched requests after cancellation, got %+v", result)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero concurrency", Config{URL: "http://example.test", Concurrency: 0, TotalRequests: 1}},
		{"negative total", Config{URL: "http://example.test", Concurrency: 1, TotalRequests: -1}},
		{"missing url", Config{Concurrency: 1, TotalRequests: 1}},
		{"relative url", Config{URL: "/work", Concurrency: 1, TotalRequests: 1}},
		{"ftp url", Config{URL: "ftp://example.test", Concurrency: 1, TotalRequests: 1}},
		{"total above max", Config{URL: "http://example.test", Concurrency: 1, TotalRequests: MaxTotalRequests + 1}},
		{"total max int", Config{URL: "http://example.test", Concurrency: 1, TotalRequests: math.MaxInt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEngine(&fakeTransport{}).Run(context.Background(), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRunAgainstRealServer(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := NewEngine(httpclient.New(httpclient.Options{Timeout: time.Second}), nil)
	result, err := e.Run(context.Background(), Config{
		URL:           server.URL,
		Method:        "POST",
		Concurrency:   8,
		TotalRequests: 40,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if hits.Load() != 40 || result.Success != 40 {
		t.Errorf("Expected 40 hits and successes, got hits=%d success=%d", hits.Load(), result.Success)
	}
	if result.P50TimeMs > result.P99TimeMs || result.MinTimeMs > result.MaxTimeMs {
		t.Errorf("Inconsistent latency summary: %+v", result)
	}
}
