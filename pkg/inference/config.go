package inference

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Config holds classifier client configuration.
type Config struct {
	// Endpoint is the full URL of the predict route.
	Endpoint string

	// Timeout bounds a single request, including retries.
	Timeout time.Duration

	// Retry configuration for transport failures. The reference
	// behavior is a single attempt.
	MaxRetries int
	RetryDelay time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithEndpoint sets the predict URL.
// Example: "http://127.0.0.1:5000/predict"
func WithEndpoint(endpoint string) Option {
	return func(c *Config) { c.Endpoint = endpoint }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retry behavior for transport failures.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithHTTPClient supplies the HTTP client to use.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Config) { c.HTTPClient = h }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for a classifier on localhost.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:   "http://127.0.0.1:5000/predict",
		Timeout:    5 * time.Second,
		MaxRetries: 0,
		RetryDelay: 100 * time.Millisecond,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("inference: endpoint %q is not an absolute URL", c.Endpoint)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("inference: timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
