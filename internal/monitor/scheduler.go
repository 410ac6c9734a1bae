package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Status describes the background sampling loop.
type Status struct {
	Running          bool    `json:"running"`
	TargetURL        string  `json:"target_url,omitempty"`
	SamplingInterval int64   `json:"sampling_interval"`
	WindowSize       int     `json:"window_size"`
	AnomalyThreshold float64 `json:"anomaly_threshold"`
	Samples          int     `json:"samples"`
	LastError        string  `json:"last_error,omitempty"`
	LastSampleAt     int64   `json:"last_sample_at,omitempty"`
}

// Scheduler periodically samples a target URL and feeds the Monitor.
type Scheduler struct {
	lifecycle sync.Mutex // serializes Start and Stop

	mu       sync.RWMutex
	sampler  *Sampler
	monitor  *Monitor
	metrics  *Metrics
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	target   string
	interval time.Duration
	lastErr  error
	lastAt   int64
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(sampler *Sampler, monitor *Monitor, metrics *Metrics) *Scheduler {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Scheduler{sampler: sampler, monitor: monitor, metrics: metrics}
}

// Start begins sampling target every interval, replacing any running loop.
// The loop lives until Stop or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, target string, interval time.Duration) error {
	if target == "" {
		return fmt.Errorf("%w: target url is required", ErrInvalidConfig)
	}
	if interval <= 0 {
		return fmt.Errorf("%w: sampling interval must be positive, got %v", ErrInvalidConfig, interval)
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.target = target
	s.interval = interval
	s.lastErr = nil
	s.lastAt = 0
	s.metrics.SamplingRunning.Set(1)

	go s.runLoop(loopCtx, target, interval, s.done)

	log.Printf("[monitor] Sampling started: target=%s, interval=%v", target, interval)
	return nil
}

// Stop halts the sampling loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.metrics.SamplingRunning.Set(0)
	log.Printf("[monitor] Sampling stopped")
}

// Status reports the loop state together with the monitor settings.
func (s *Scheduler) Status() Status {
	windowSize, threshold := s.monitor.Settings()
	samples := len(s.monitor.Snapshot())

	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Running:          s.running,
		TargetURL:        s.target,
		SamplingInterval: s.interval.Milliseconds(),
		WindowSize:       windowSize,
		AnomalyThreshold: threshold,
		Samples:          samples,
		LastSampleAt:     s.lastAt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Scheduler) runLoop(ctx context.Context, target string, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sampleOnce(ctx, target)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx, target)
		}
	}
}

func (s *Scheduler) sampleOnce(ctx context.Context, target string) {
	sample, err := s.sampler.MeasureMetrics(ctx, target)
	if err == nil {
		_, err = s.monitor.Update(sample)
	}
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		s.metrics.SamplingErrors.Inc()
		log.Printf("[monitor] Sampling %s failed: %v", target, err)
		return
	}
	s.lastErr = nil
	s.lastAt = sample.Timestamp
}
