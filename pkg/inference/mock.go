package inference

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-gesture/pkg/window"
)

// Mock implements Classifier for testing.
type Mock struct {
	// PredictFunc is called when Predict is invoked.
	PredictFunc func(ctx context.Context, w *window.Window) (*Prediction, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time

	// Window is set for Predict calls.
	Window *window.Window
}

// NewMock creates a mock classifier that always predicts label.
func NewMock(label string) *Mock {
	return &Mock{
		PredictFunc: func(ctx context.Context, w *window.Window) (*Prediction, error) {
			return &Prediction{Label: label, Endpoint: "mock"}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Predict calls PredictFunc and records the call.
func (m *Mock) Predict(ctx context.Context, w *window.Window) (*Prediction, error) {
	m.record("Predict", w)
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, w)
	}
	return nil, &TransportError{Endpoint: "mock", Err: ErrNoClassifier}
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", nil)
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close", nil)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) record(method string, w *window.Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Time:   time.Now(),
		Window: w,
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock whose Predict and Health always fail with err.
func WithError(err error) *Mock {
	return &Mock{
		PredictFunc: func(ctx context.Context, w *window.Window) (*Prediction, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Verify Mock implements Classifier at compile time.
var _ Classifier = (*Mock)(nil)
