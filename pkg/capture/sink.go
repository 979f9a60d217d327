package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/teslashibe/go-gesture/pkg/inference"
)

// ResultSink renders prediction and status text. The engine calls it from
// its own goroutine as a pure notification; implementations must not block.
type ResultSink interface {
	// ShowPrediction replaces the prediction/status text.
	ShowPrediction(text string)

	// ShowElapsed reports how long the last window took to collect.
	ShowElapsed(seconds float64)
}

// Status lines shown between windows.
const (
	BufferResetText    = "Buffer reset after sending data"
	TransportErrorText = "Error sending data to classifier"
)

// PredictionText is the display form of a successful prediction.
func PredictionText(label string) string {
	return "Predicted Gesture: " + label
}

// ServerErrorText is the display form of an error reported by the classifier.
func ServerErrorText(msg string) string {
	return "Error: " + msg
}

// ResumeText announces that a new window has started after the cooldown.
func ResumeText(cooldown time.Duration) string {
	return "Starting new data accumulation after " + delayText(cooldown) + " delay"
}

// ElapsedText is the display form of a window's collection time.
func ElapsedText(samples int, seconds float64) string {
	return fmt.Sprintf("Time taken to collect %d samples: %.2f seconds", samples, seconds)
}

// ResultText maps a classifier outcome to its display form.
func ResultText(pred *inference.Prediction, err error) string {
	if err == nil && pred != nil {
		return PredictionText(pred.Label)
	}
	var se *inference.ServerError
	if errors.As(err, &se) {
		return ServerErrorText(se.Message)
	}
	return TransportErrorText
}

func delayText(d time.Duration) string {
	if d > 0 && d%time.Second == 0 {
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	}
	return d.String()
}

// TextSink writes each notification as a line of text.
type TextSink struct {
	mu      sync.Mutex
	w       io.Writer
	samples int
}

// NewTextSink creates a sink writing to w. samples is the window length
// shown in elapsed lines.
func NewTextSink(w io.Writer, samples int) *TextSink {
	return &TextSink{w: w, samples: samples}
}

// ShowPrediction implements ResultSink.
func (s *TextSink) ShowPrediction(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, text)
}

// ShowElapsed implements ResultSink.
func (s *TextSink) ShowElapsed(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, ElapsedText(s.samples, seconds))
}

// MultiSink fans notifications out to several sinks in order.
type MultiSink []ResultSink

// ShowPrediction implements ResultSink.
func (m MultiSink) ShowPrediction(text string) {
	for _, s := range m {
		s.ShowPrediction(text)
	}
}

// ShowElapsed implements ResultSink.
func (m MultiSink) ShowElapsed(seconds float64) {
	for _, s := range m {
		s.ShowElapsed(seconds)
	}
}

var (
	_ ResultSink = (*TextSink)(nil)
	_ ResultSink = MultiSink(nil)
)
