// Package monitor samples network health for a URL and flags latency
// anomalies against a sliding window of recent samples.
package monitor

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"
)

// Defaults applied at process start and when a field is omitted.
const (
	DefaultWindowSize       = 100
	DefaultAnomalyThreshold = 2.0
	DefaultProbeCount       = 10
	DefaultProbeInterval    = 100 * time.Millisecond

	// MaxWindowSize is the largest accepted window_size.
	MaxWindowSize = 1_000_000
)

var (
	// ErrInvalidConfig is returned for unusable monitor settings.
	ErrInvalidConfig = errors.New("invalid monitor config")
	// ErrInvalidSample is returned for samples that cannot be scored.
	ErrInvalidSample = errors.New("invalid network metrics sample")
)

// NetworkMetrics is one network health sample.
type NetworkMetrics struct {
	Timestamp  int64   `json:"timestamp"`   // epoch milliseconds
	Latency    float64 `json:"latency"`     // milliseconds
	PacketLoss float64 `json:"packet_loss"` // percent, 0-100
	Bandwidth  float64 `json:"bandwidth"`   // not measured, always 0
	IsAnomaly  bool    `json:"is_anomaly"`
}

// Validate rejects samples that would corrupt the window statistics.
func (m NetworkMetrics) Validate() error {
	if math.IsNaN(m.Latency) || math.IsInf(m.Latency, 0) || m.Latency < 0 {
		return fmt.Errorf("%w: latency must be a non-negative finite number, got %v", ErrInvalidSample, m.Latency)
	}
	if math.IsNaN(m.PacketLoss) || m.PacketLoss < 0 || m.PacketLoss > 100 {
		return fmt.Errorf("%w: packet_loss must be within 0-100, got %v", ErrInvalidSample, m.PacketLoss)
	}
	return nil
}

// AnomalyDetectionResult is the scored outcome for one sample. Threshold is
// the value in force when the sample was scored.
type AnomalyDetectionResult struct {
	Metrics      NetworkMetrics `json:"metrics"`
	AnomalyScore float64        `json:"anomaly_score"`
	Threshold    float64        `json:"threshold"`
}

// Config is the monitoring session configuration.
type Config struct {
	WindowSize       int     `json:"window_size"`
	AnomalyThreshold float64 `json:"anomaly_threshold"`
	SamplingInterval int64   `json:"sampling_interval"` // milliseconds
	TargetURL        string  `json:"target_url,omitempty"`
}

// DefaultConfig returns the monitor configuration used at process start.
func DefaultConfig() Config {
	return Config{
		WindowSize:       DefaultWindowSize,
		AnomalyThreshold: DefaultAnomalyThreshold,
		SamplingInterval: 5000,
	}
}

// Validate checks window and threshold settings, and the sampling interval
// when a target is set.
func (c Config) Validate() error {
	if err := validateSettings(c.WindowSize, c.AnomalyThreshold); err != nil {
		return err
	}
	if c.SamplingInterval < 0 {
		return fmt.Errorf("%w: sampling_interval must not be negative, got %d", ErrInvalidConfig, c.SamplingInterval)
	}
	if c.TargetURL != "" {
		if err := ValidateTargetURL(c.TargetURL); err != nil {
			return err
		}
		if c.SamplingInterval == 0 {
			return fmt.Errorf("%w: sampling_interval is required when target_url is set", ErrInvalidConfig)
		}
	}
	return nil
}

// ValidateTargetURL requires an absolute http or https URL.
func ValidateTargetURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL, got %q", ErrInvalidConfig, raw)
	}
	return nil
}

// Interval returns the sampling interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.SamplingInterval) * time.Millisecond
}

func validateSettings(windowSize int, threshold float64) error {
	if windowSize < 1 || windowSize > MaxWindowSize {
		return fmt.Errorf("%w: window_size must be within 1-%d, got %d", ErrInvalidConfig, MaxWindowSize, windowSize)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return fmt.Errorf("%w: anomaly_threshold must be a non-negative finite number, got %v", ErrInvalidConfig, threshold)
	}
	return nil
}
