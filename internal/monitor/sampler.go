package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/container-resource-predictor/netload/internal/httpclient"
)

// Sampler measures latency and packet loss against a URL.
type Sampler struct {
	client        *httpclient.Client
	probeCount    int
	probeInterval time.Duration
	now           func() time.Time
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithProbes sets the number of loss probes per sample and their spacing.
func WithProbes(count int, interval time.Duration) SamplerOption {
	return func(s *Sampler) {
		if count > 0 {
			s.probeCount = count
		}
		if interval >= 0 {
			s.probeInterval = interval
		}
	}
}

// NewSampler creates a Sampler using client.
func NewSampler(client *httpclient.Client, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		client:        client,
		probeCount:    DefaultProbeCount,
		probeInterval: DefaultProbeInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MeasureLatency issues one GET and returns its elapsed time in
// milliseconds. A transport error is returned as an error; any status code
// is accepted.
func (s *Sampler) MeasureLatency(ctx context.Context, url string) (float64, error) {
	out := s.client.Get(ctx, url)
	if !out.OK() {
		return 0, fmt.Errorf("measure latency for %s: %w", url, out.Err)
	}
	return out.ElapsedMs(), nil
}

// MeasurePacketLoss sends n sequential GET probes, spaced by the probe
// interval, and returns the percentage that failed or returned a non-2xx
// status.
func (s *Sampler) MeasurePacketLoss(ctx context.Context, url string, n int) (float64, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: probe count must be at least 1, got %d", ErrInvalidConfig, n)
	}

	lost := 0
	for i := 0; i < n; i++ {
		if !s.client.Get(ctx, url).Success() {
			lost++
		}
		if i == n-1 {
			break
		}
		if err := sleep(ctx, s.probeInterval); err != nil {
			return 0, err
		}
	}
	return float64(lost) / float64(n) * 100, nil
}

// MeasureMetrics builds an unscored sample: latency from a single GET and
// packet loss from the configured number of probes. Bandwidth is not
// measured.
func (s *Sampler) MeasureMetrics(ctx context.Context, url string) (NetworkMetrics, error) {
	latency, err := s.MeasureLatency(ctx, url)
	if err != nil {
		return NetworkMetrics{}, err
	}

	loss, err := s.MeasurePacketLoss(ctx, url, s.probeCount)
	if err != nil {
		return NetworkMetrics{}, fmt.Errorf("measure packet loss for %s: %w", url, err)
	}

	return NetworkMetrics{
		Timestamp:  s.now().UnixMilli(),
		Latency:    latency,
		PacketLoss: loss,
		Bandwidth:  0,
		IsAnomaly:  false,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
