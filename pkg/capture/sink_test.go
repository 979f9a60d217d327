package capture

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/teslashibe/go-gesture/pkg/inference"
)

func TestTextForms(t *testing.T) {
	assert.Equal(t, "Predicted Gesture: wave", PredictionText("wave"))
	assert.Equal(t, "Error: bad input", ServerErrorText("bad input"))
	assert.Equal(t, "Time taken to collect 130 samples: 2.60 seconds", ElapsedText(130, 2.6))
	assert.Equal(t, "Starting new data accumulation after 1 second delay", ResumeText(time.Second))
	assert.Equal(t, "Starting new data accumulation after 3 seconds delay", ResumeText(3*time.Second))
	assert.Equal(t, "Starting new data accumulation after 1.5s delay", ResumeText(1500*time.Millisecond))
}

func TestResultTextUnwrapsServerError(t *testing.T) {
	wrapped := fmt.Errorf("chain: %w", &inference.ServerError{Message: "bad input"})
	assert.Equal(t, "Error: bad input", ResultText(nil, wrapped))
	assert.Equal(t, TransportErrorText, ResultText(nil, errors.New("dial tcp: refused")))
	assert.Equal(t, "Predicted Gesture: fist", ResultText(&inference.Prediction{Label: "fist"}, nil))
	assert.Equal(t, TransportErrorText, ResultText(nil, nil))
}

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf, 130)

	sink.ShowElapsed(2.604)
	sink.ShowPrediction(PredictionText("wave"))

	assert.Equal(t,
		"Time taken to collect 130 samples: 2.60 seconds\nPredicted Gesture: wave\n",
		buf.String())
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := MultiSink{a, b}

	m.ShowPrediction("x")
	m.ShowElapsed(1.5)

	for _, s := range []*recordingSink{a, b} {
		assert.Equal(t, []string{"x"}, s.texts)
		assert.Equal(t, []float64{1.5}, s.elapsed)
	}
}
