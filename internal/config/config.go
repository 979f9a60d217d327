// Package config holds the go-gesture runtime configuration.
//
// Values are layered: Default() < YAML file < environment < CLI flags.
// The CLI layer lives in each command's main package.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Defaults for the sampling cycle and the classifier endpoint.
const (
	DefaultSamplePeriodMs   = 20   // 50 Hz
	DefaultWindowLength     = 130  // samples per window
	DefaultCooldownMs       = 1000 // pause after each window
	DefaultEventBuffer      = 256
	DefaultEndpointURL      = "http://127.0.0.1:5000/predict"
	DefaultRequestTimeoutMs = 5000
	DefaultPort             = 8080
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the root configuration document.
type Config struct {
	Sampling   SamplingConfig   `yaml:"sampling"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Server     ServerConfig     `yaml:"server"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Log        LogConfig        `yaml:"log"`
}

// SamplingConfig controls the sampling clock and window shape.
type SamplingConfig struct {
	SamplePeriodMs int `yaml:"sample_period_ms"`
	WindowLength   int `yaml:"window_length"`
	CooldownMs     int `yaml:"cooldown_ms"`

	// EventBuffer bounds the queue between device connections and the engine.
	EventBuffer int `yaml:"event_buffer"`

	// HoldDuringCooldown drops device events while idle so the cache keeps
	// the values seen when the last window closed.
	HoldDuringCooldown bool `yaml:"hold_during_cooldown"`
}

// ClassifierConfig points at the remote gesture classifier.
type ClassifierConfig struct {
	EndpointURL      string   `yaml:"endpoint_url"`
	FallbackURLs     []string `yaml:"fallback_urls"`
	RequestTimeoutMs int      `yaml:"request_timeout_ms"`
}

// ServerConfig configures the dashboard and device ingest listener.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	Debug     bool   `yaml:"debug"`
	StaticDir string `yaml:"static_dir"`
}

// RecorderConfig enables CSV capture of completed windows.
type RecorderConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Dir          string `yaml:"dir"`
	BufferSizeKB int    `yaml:"buffer_size_kb"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the reference cadence: 20 ms sampling, 130-sample
// windows and a one second cooldown.
func Default() *Config {
	return &Config{
		Sampling: SamplingConfig{
			SamplePeriodMs: DefaultSamplePeriodMs,
			WindowLength:   DefaultWindowLength,
			CooldownMs:     DefaultCooldownMs,
			EventBuffer:    DefaultEventBuffer,
		},
		Classifier: ClassifierConfig{
			EndpointURL:      DefaultEndpointURL,
			RequestTimeoutMs: DefaultRequestTimeoutMs,
		},
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Recorder: RecorderConfig{
			Dir:          "recordings",
			BufferSizeKB: 256,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SamplePeriod returns the sampling interval.
func (s SamplingConfig) SamplePeriod() time.Duration {
	return time.Duration(s.SamplePeriodMs) * time.Millisecond
}

// Cooldown returns the pause between a completed window and the next one.
func (s SamplingConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownMs) * time.Millisecond
}

// RequestTimeout returns the per-request classifier deadline.
func (c ClassifierConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Endpoints returns the primary endpoint followed by any fallbacks.
func (c ClassifierConfig) Endpoints() []string {
	out := make([]string, 0, 1+len(c.FallbackURLs))
	if c.EndpointURL != "" {
		out = append(out, c.EndpointURL)
	}
	return append(out, c.FallbackURLs...)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Sampling.SamplePeriodMs <= 0 {
		invalid("sampling.sample_period_ms must be positive, got %d", c.Sampling.SamplePeriodMs)
	}
	if c.Sampling.WindowLength <= 0 {
		invalid("sampling.window_length must be positive, got %d", c.Sampling.WindowLength)
	}
	if c.Sampling.CooldownMs < 0 {
		invalid("sampling.cooldown_ms must not be negative, got %d", c.Sampling.CooldownMs)
	}
	if c.Sampling.EventBuffer <= 0 {
		invalid("sampling.event_buffer must be positive, got %d", c.Sampling.EventBuffer)
	}
	if c.Classifier.RequestTimeoutMs <= 0 {
		invalid("classifier.request_timeout_ms must be positive, got %d", c.Classifier.RequestTimeoutMs)
	}
	if len(c.Classifier.Endpoints()) == 0 {
		invalid("classifier.endpoint_url is required")
	}
	for _, raw := range c.Classifier.Endpoints() {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			invalid("classifier endpoint %q is not an absolute URL", raw)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		invalid("server.port %d out of range", c.Server.Port)
	}
	if c.Recorder.Enabled && c.Recorder.Dir == "" {
		invalid("recorder.dir is required when the recorder is enabled")
	}

	return errors.Join(errs...)
}
