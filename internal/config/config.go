// Package config loads and validates the populated configuration struct
// the core pipeline is built from. File parsing mechanics are a thin
// flag+JSON layer; the core itself only ever sees a Config value.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// FusionConfig controls the fusion engine's warm-up, thresholds, and
// confidence floor.
type FusionConfig struct {
	AnomalyThreshold    float64            `json:"anomaly_threshold"`
	MinBaselineSamples  uint64             `json:"min_baseline_samples"`
	CorrelationWindowMs int64              `json:"correlation_window_ms"`
	MinConfidence       float64            `json:"min_confidence"`
	// SensorWeights is reserved for future classification weighting; the
	// live fusion path accepts and validates it but never reads it.
	SensorWeights map[string]float64 `json:"sensor_weights"`

	// DefaultLocationName, if non-empty, is attached as the location of
	// every emitted event.
	DefaultLocationName string `json:"default_location_name"`
	DefaultLocationZone string `json:"default_location_zone"`
}

// RecorderConfig controls where session data is written.
type RecorderConfig struct {
	BaseDir         string `json:"base_dir"`
	AutoRecord      bool   `json:"auto_record"`
	SessionName     string `json:"session_name"`
	SessionLocation string `json:"session_location"`
}

// NotificationsConfig controls the ntfy.sh push notification sink used
// by the Notify trigger action.
type NotificationsConfig struct {
	NtfyTopic string `json:"ntfy_topic"`
}

// MetricsConfig controls the Datadog statsd client used for pipeline
// telemetry.
type MetricsConfig struct {
	Enabled    bool   `json:"enabled"`
	StatsdAddr string `json:"statsd_addr"`
}

// LiveFeedConfig controls the optional WebSocket broadcast of dispatched
// events.
type LiveFeedConfig struct {
	Enabled       bool     `json:"enabled"`
	ListenAddr    string   `json:"listen_addr"`
	AllowedOrigin []string `json:"allowed_origins"`
}

// BaselineStoreConfig controls the SQLite checkpoint of the baseline
// registry used to skip warm-up after a restart.
type BaselineStoreConfig struct {
	Enabled         bool   `json:"enabled"`
	DBPath          string `json:"db_path"`
	CheckpointEvery string `json:"checkpoint_every"` // parsed as time.Duration
}

// Config is the fully populated configuration the core pipeline is
// constructed from.
type Config struct {
	ConfigFile string
	LogFile    string
	LogLevel   zerolog.Level

	EventChannelCapacity int `json:"event_channel_capacity"`
	TriggerHistoryLimit  int `json:"trigger_history_limit"`

	Fusion        FusionConfig        `json:"fusion"`
	Recorder      RecorderConfig      `json:"recorder"`
	LiveFeed      LiveFeedConfig      `json:"live_feed"`
	BaselineStore BaselineStoreConfig `json:"baseline_store"`
	Notifications NotificationsConfig `json:"notifications"`
	Metrics       MetricsConfig       `json:"metrics"`
}

// Load parses command-line flags and the referenced JSON config file
// into a Config, applying defaults and validating the result. Panics on
// a malformed or structurally invalid configuration, mirroring the
// teacher's fail-fast startup checks.
func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to pipeline config file")
	flag.StringVar(&cfg.LogFile, "log-file", "/var/log/glowbarn.log", "Path to log file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	applyDefaults(&cfg)
	cfg.validate()
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Fusion.AnomalyThreshold == 0 {
		cfg.Fusion.AnomalyThreshold = 2.5
	}
	if cfg.Fusion.MinBaselineSamples == 0 {
		cfg.Fusion.MinBaselineSamples = 100
	}
	if cfg.Fusion.CorrelationWindowMs == 0 {
		cfg.Fusion.CorrelationWindowMs = 5000
	}
	if cfg.Fusion.MinConfidence == 0 {
		cfg.Fusion.MinConfidence = 0.4
	}
	if cfg.EventChannelCapacity == 0 {
		cfg.EventChannelCapacity = 100
	}
	if cfg.TriggerHistoryLimit == 0 {
		cfg.TriggerHistoryLimit = 1000
	}
	if cfg.Recorder.BaseDir == "" {
		cfg.Recorder.BaseDir = "data/sessions"
	}
	if cfg.BaselineStore.CheckpointEvery == "" {
		cfg.BaselineStore.CheckpointEvery = "30s"
	}
	if cfg.Metrics.Enabled && cfg.Metrics.StatsdAddr == "" {
		cfg.Metrics.StatsdAddr = "127.0.0.1:8125"
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	var problems []string

	if cfg.Fusion.AnomalyThreshold <= 0 {
		problems = append(problems, "fusion.anomaly_threshold must be positive")
	}
	if cfg.Fusion.MinConfidence < 0 || cfg.Fusion.MinConfidence > 1 {
		problems = append(problems, "fusion.min_confidence must be in [0,1]")
	}
	if cfg.Fusion.CorrelationWindowMs <= 0 {
		problems = append(problems, "fusion.correlation_window_ms must be positive")
	}
	for sensorType, weight := range cfg.Fusion.SensorWeights {
		if weight < 0 {
			problems = append(problems, fmt.Sprintf("fusion.sensor_weights.%s must be non-negative", sensorType))
		}
	}
	if cfg.EventChannelCapacity <= 0 {
		problems = append(problems, "event_channel_capacity must be positive")
	}
	if cfg.LiveFeed.Enabled && cfg.LiveFeed.ListenAddr == "" {
		problems = append(problems, "live_feed.listen_addr is required when live_feed.enabled is true")
	}

	if len(problems) > 0 {
		panic("invalid configuration: " + strings.Join(problems, "; "))
	}
}
