package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, applies environment
// overrides and validates the result. An empty path yields the defaults
// plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()

		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of Default() and
// validates the result. Environment variables are not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up via getenv.
//
//	GESTURE_ENDPOINT_URL      classifier.endpoint_url
//	GESTURE_SAMPLE_PERIOD_MS  sampling.sample_period_ms
//	GESTURE_WINDOW_LENGTH     sampling.window_length
//	GESTURE_COOLDOWN_MS       sampling.cooldown_ms
//	GESTURE_TIMEOUT_MS        classifier.request_timeout_ms
//	GESTURE_RECORD_DIR        recorder.dir (and enables the recorder)
//	PORT                      server.port
//	LOG_LEVEL                 log.level
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("GESTURE_ENDPOINT_URL"); v != "" {
		c.Classifier.EndpointURL = v
	}
	if v := getenv("GESTURE_RECORD_DIR"); v != "" {
		c.Recorder.Dir = v
		c.Recorder.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"GESTURE_SAMPLE_PERIOD_MS", &c.Sampling.SamplePeriodMs},
		{"GESTURE_WINDOW_LENGTH", &c.Sampling.WindowLength},
		{"GESTURE_COOLDOWN_MS", &c.Sampling.CooldownMs},
		{"GESTURE_TIMEOUT_MS", &c.Classifier.RequestTimeoutMs},
		{"PORT", &c.Server.Port},
	}
	for _, e := range ints {
		v := getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, e.key, v)
		}
		*e.dst = n
	}
	return nil
}
