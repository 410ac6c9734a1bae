// Package service exposes the load-test and network-monitoring operations
// as a request/response API used by the HTTP server and the CLI.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/container-resource-predictor/netload/internal/loadtest"
	"github.com/container-resource-predictor/netload/internal/monitor"
	"github.com/container-resource-predictor/netload/internal/storage"
)

// Service wires the engine, monitor and scheduler together.
type Service struct {
	engine    *loadtest.Engine
	history   *storage.RunHistory
	sampler   *monitor.Sampler
	monitor   *monitor.Monitor
	scheduler *monitor.Scheduler

	// base outlives individual requests; background sampling runs under it.
	base   context.Context
	cancel context.CancelFunc

	// session serializes monitoring reconfiguration.
	session  sync.Mutex
	interval int64
}

// Deps holds the components a Service is built from.
type Deps struct {
	Engine    *loadtest.Engine
	History   *storage.RunHistory
	Sampler   *monitor.Sampler
	Monitor   *monitor.Monitor
	Scheduler *monitor.Scheduler
}

// New creates a Service. Close stops background sampling.
func New(d Deps) *Service {
	if d.History == nil {
		d.History = storage.NewRunHistory(0)
	}
	if d.Monitor == nil {
		d.Monitor = monitor.NewDefault(nil)
	}
	if d.Scheduler == nil {
		d.Scheduler = monitor.NewScheduler(d.Sampler, d.Monitor, nil)
	}
	base, cancel := context.WithCancel(context.Background())
	return &Service{
		engine:    d.Engine,
		history:   d.History,
		sampler:   d.Sampler,
		monitor:   d.Monitor,
		scheduler: d.Scheduler,
		base:      base,
		cancel:    cancel,
		interval:  monitor.DefaultConfig().SamplingInterval,
	}
}

// RunLoadTest runs one load test and records it in the run history.
func (s *Service) RunLoadTest(ctx context.Context, cfg loadtest.Config) (loadtest.Result, error) {
	result, err := s.engine.Run(ctx, cfg)
	if err != nil {
		return loadtest.Result{}, err
	}
	s.history.Add(result)
	return result, nil
}

// ListRuns returns the recorded load-test runs, oldest first.
func (s *Service) ListRuns() []loadtest.Result {
	return s.history.GetResults()
}

// ListRunsSince returns the recorded runs started after since, oldest first.
func (s *Service) ListRunsSince(since time.Time) []loadtest.Result {
	return s.history.GetResultsSince(since)
}

// GetRun returns one recorded run.
func (s *Service) GetRun(runID string) (loadtest.Result, bool) {
	return s.history.Get(runID)
}

// LatestRun returns the most recently recorded run.
func (s *Service) LatestRun() (loadtest.Result, bool) {
	return s.history.Latest()
}

// StartNetworkMonitoring replaces the monitor state wholesale. When
// cfg.TargetURL is set, background sampling restarts against it;
// otherwise any running sampling loop is stopped.
func (s *Service) StartNetworkMonitoring(cfg monitor.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.session.Lock()
	defer s.session.Unlock()

	s.scheduler.Stop()
	if err := s.monitor.Reset(cfg.WindowSize, cfg.AnomalyThreshold); err != nil {
		return err
	}
	s.interval = cfg.SamplingInterval

	if cfg.TargetURL == "" {
		log.Printf("[service] Monitoring reconfigured without background sampling")
		return nil
	}
	if err := s.scheduler.Start(s.base, cfg.TargetURL, cfg.Interval()); err != nil {
		return fmt.Errorf("start sampling: %w", err)
	}
	return nil
}

// StopNetworkMonitoring stops background sampling. The window is kept.
func (s *Service) StopNetworkMonitoring() {
	s.session.Lock()
	defer s.session.Unlock()
	s.scheduler.Stop()
}

// MonitoringStatus reports the sampling loop and monitor settings.
func (s *Service) MonitoringStatus() monitor.Status {
	s.session.Lock()
	interval := s.interval
	s.session.Unlock()

	st := s.scheduler.Status()
	if !st.Running {
		st.SamplingInterval = interval
	}
	return st
}

// GetNetworkMetrics returns the monitor window, oldest first.
func (s *Service) GetNetworkMetrics() []monitor.NetworkMetrics {
	return s.monitor.Snapshot()
}

// UpdateMetrics scores a caller-supplied sample and stores it.
func (s *Service) UpdateMetrics(sample monitor.NetworkMetrics) (monitor.AnomalyDetectionResult, error) {
	return s.monitor.Update(sample)
}

// MeasureNetworkMetrics takes one unscored sample of url.
func (s *Service) MeasureNetworkMetrics(ctx context.Context, url string) (monitor.NetworkMetrics, error) {
	if err := monitor.ValidateTargetURL(url); err != nil {
		return monitor.NetworkMetrics{}, err
	}
	return s.sampler.MeasureMetrics(ctx, url)
}

// MeasurePacketLoss runs n loss probes against url.
func (s *Service) MeasurePacketLoss(ctx context.Context, url string, n int) (float64, error) {
	if err := monitor.ValidateTargetURL(url); err != nil {
		return 0, err
	}
	return s.sampler.MeasurePacketLoss(ctx, url, n)
}

// Close stops background work.
func (s *Service) Close() {
	s.scheduler.Stop()
	s.cancel()
}
