package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-gesture/internal/httpc"
	"github.com/teslashibe/go-gesture/pkg/window"
)

// maxResponseBytes caps how much of a classifier response is read.
const maxResponseBytes = 1 << 20

// Client is the HTTP classifier client.
type Client struct {
	endpoint string
	config   *Config
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a new classifier client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := cfg.HTTPClient
	if h == nil {
		h = httpc.NewClient(cfg.Timeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint: cfg.Endpoint,
		config:   cfg,
		http:     h,
		logger:   logger.With("component", "inference.client", "endpoint", cfg.Endpoint),
	}, nil
}

// Endpoint returns the predict URL this client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict posts the flattened window and decodes the classifier's answer.
func (c *Client) Predict(ctx context.Context, w *window.Window) (*Prediction, error) {
	if w == nil || w.Len() == 0 {
		return nil, ErrEmptyWindow
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(predictRequest{SensorData: w.Flatten()})
	if err != nil {
		return nil, c.transport(fmt.Errorf("marshal payload: %w", err))
	}

	status, raw, err := c.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}

	label, err := c.decode(status, raw)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start)
	c.logger.Debug("prediction received",
		"window", w.ID,
		"label", label,
		"latency_ms", latency.Milliseconds(),
	)
	return &Prediction{
		Label:    label,
		Endpoint: c.endpoint,
		Latency:  latency,
	}, nil
}

// Health checks that the endpoint answers HTTP at all. The predict route
// usually rejects GET, so any status counts as reachable.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return c.transport(fmt.Errorf("create request: %w", err))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transport(fmt.Errorf("health check: %w", err))
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// doWithRetry performs the POST, retrying transport failures only. A
// response from the classifier, whatever its status, is never retried.
func (c *Client) doWithRetry(ctx context.Context, body []byte) (int, []byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, nil, c.transport(ctx.Err())
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return 0, nil, c.transport(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = c.transport(err)
			if attempt < c.config.MaxRetries {
				c.logger.Warn("request failed, retrying",
					"attempt", attempt+1,
					"error", err,
				)
			}
			continue
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = c.transport(fmt.Errorf("read response: %w", err))
			continue
		}
		return resp.StatusCode, raw, nil
	}

	return 0, nil, lastErr
}

// predictResponse is either {"prediction": ...} or {"error": ...}.
type predictResponse struct {
	Prediction json.RawMessage `json:"prediction"`
	Error      json.RawMessage `json:"error"`
}

// decode interprets a classifier response. The HTTP status is informational;
// the body decides between prediction and error, prediction first.
func (c *Client) decode(status int, raw []byte) (string, error) {
	var resp predictResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", c.transport(fmt.Errorf("%w: status %d: %v", ErrMalformedResponse, status, err))
	}

	// An empty label is treated as absent.
	if label := rawText(resp.Prediction); label != "" {
		return label, nil
	}
	if present(resp.Error) {
		return "", &ServerError{
			Endpoint:   c.endpoint,
			StatusCode: status,
			Message:    rawText(resp.Error),
		}
	}
	return "", c.transport(fmt.Errorf("%w: status %d: no prediction or error field", ErrMalformedResponse, status))
}

func (c *Client) transport(err error) *TransportError {
	return &TransportError{Endpoint: c.endpoint, Err: err}
}

// present reports whether a JSON field was set to something other than null.
func present(m json.RawMessage) bool {
	return len(m) > 0 && string(m) != "null"
}

// rawText renders a JSON value as display text. Strings are unquoted,
// other values keep their JSON form, and null or missing is empty.
func rawText(m json.RawMessage) string {
	if !present(m) {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(m))
}

// Verify Client implements Classifier at compile time.
var _ Classifier = (*Client)(nil)
