// Package config loads netload configuration from defaults, an optional
// YAML file and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/container-resource-predictor/netload/internal/monitor"
	"github.com/container-resource-predictor/netload/internal/storage"
	"github.com/container-resource-predictor/netload/pkg/common"
)

// Config holds the application configuration.
type Config struct {
	// HTTP server port
	Port int `yaml:"port"`

	// Per-request timeout for every outbound request
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Idle connection pool size per host
	MaxIdleConns int `yaml:"max_idle_conns"`

	Monitor  MonitorConfig  `yaml:"monitor"`
	LoadTest LoadTestConfig `yaml:"load_test"`
}

// MonitorConfig holds network monitor configuration.
type MonitorConfig struct {
	WindowSize       int           `yaml:"window_size"`
	AnomalyThreshold float64       `yaml:"anomaly_threshold"`
	ProbeCount       int           `yaml:"probe_count"`
	ProbeInterval    time.Duration `yaml:"probe_interval"`
	// Background sampling; disabled when TargetURL is empty
	TargetURL        string        `yaml:"target_url"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
}

// LoadTestConfig holds load engine configuration.
type LoadTestConfig struct {
	// Number of completed runs kept in memory
	HistorySize int `yaml:"history_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:           8080,
		RequestTimeout: 10 * time.Second,
		MaxIdleConns:   100,
		Monitor: MonitorConfig{
			WindowSize:       monitor.DefaultWindowSize,
			AnomalyThreshold: monitor.DefaultAnomalyThreshold,
			ProbeCount:       monitor.DefaultProbeCount,
			ProbeInterval:    monitor.DefaultProbeInterval,
			SamplingInterval: 5 * time.Second,
		},
		LoadTest: LoadTestConfig{
			HistorySize: storage.DefaultMaxRuns,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// CONFIG_FILE is consulted.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = common.GetEnvInt("PORT", cfg.Port)
	cfg.RequestTimeout = common.GetEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxIdleConns = common.GetEnvInt("MAX_IDLE_CONNS", cfg.MaxIdleConns)

	cfg.Monitor.WindowSize = common.GetEnvInt("MONITOR_WINDOW_SIZE", cfg.Monitor.WindowSize)
	cfg.Monitor.AnomalyThreshold = common.GetEnvFloat("MONITOR_ANOMALY_THRESHOLD", cfg.Monitor.AnomalyThreshold)
	cfg.Monitor.ProbeCount = common.GetEnvInt("MONITOR_PROBE_COUNT", cfg.Monitor.ProbeCount)
	cfg.Monitor.ProbeInterval = common.GetEnvDuration("MONITOR_PROBE_INTERVAL", cfg.Monitor.ProbeInterval)
	cfg.Monitor.TargetURL = common.GetEnv("MONITOR_TARGET_URL", cfg.Monitor.TargetURL)
	cfg.Monitor.SamplingInterval = common.GetEnvDuration("MONITOR_SAMPLING_INTERVAL", cfg.Monitor.SamplingInterval)

	cfg.LoadTest.HistorySize = common.GetEnvInt("LOADTEST_HISTORY_SIZE", cfg.LoadTest.HistorySize)
}

// Validate checks the configuration for values the components reject.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be within 1-65535, got %d", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.Monitor.ProbeCount < 1 {
		return fmt.Errorf("monitor.probe_count must be at least 1, got %d", c.Monitor.ProbeCount)
	}
	if c.Monitor.ProbeInterval < 0 {
		return fmt.Errorf("monitor.probe_interval must not be negative, got %v", c.Monitor.ProbeInterval)
	}
	return c.MonitoringSession().Validate()
}

// MonitoringSession converts the monitor settings into the session config
// used at startup.
func (c Config) MonitoringSession() monitor.Config {
	return monitor.Config{
		WindowSize:       c.Monitor.WindowSize,
		AnomalyThreshold: c.Monitor.AnomalyThreshold,
		SamplingInterval: c.Monitor.SamplingInterval.Milliseconds(),
		TargetURL:        c.Monitor.TargetURL,
	}
}
