package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-gesture/pkg/capture"
	"github.com/teslashibe/go-gesture/pkg/window"
)

func newTestServer() *Server {
	return NewServer(Config{Port: 0, WindowLength: 130, Version: "test"}, nil)
}

func getJSON(t *testing.T, s *Server, path string, out any) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	var payload map[string]string
	getJSON(t, s, "/health", &payload)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "test", payload["version"])
}

func TestShowUpdatesView(t *testing.T) {
	s := newTestServer()

	s.ShowElapsed(2.6)
	s.ShowPrediction("Predicted Gesture: wave")

	v := s.View()
	assert.Equal(t, "Predicted Gesture: wave", v.Prediction)
	assert.Equal(t, "Time taken to collect 130 samples: 2.60 seconds", v.Elapsed)
	assert.InDelta(t, 2.6, v.ElapsedSeconds, 1e-9)
	assert.False(t, v.UpdatedAt.IsZero())
}

func TestStatusIncludesCapture(t *testing.T) {
	s := newTestServer()
	s.SetStatusSource(func() capture.Status {
		return capture.Status{State: "collecting", Buffered: 12, Length: 130, Windows: 3}
	})
	s.ShowPrediction(capture.BufferResetText)

	var payload StatusUpdate
	getJSON(t, s, "/api/status", &payload)
	assert.Equal(t, capture.BufferResetText, payload.View.Prediction)
	require.NotNil(t, payload.Capture)
	assert.Equal(t, "collecting", payload.Capture.State)
	assert.Equal(t, 12, payload.Capture.Buffered)
	assert.Equal(t, uint64(3), payload.Capture.Windows)
}

func TestStatusWithoutSource(t *testing.T) {
	s := newTestServer()
	var payload StatusUpdate
	getJSON(t, s, "/api/status", &payload)
	assert.Nil(t, payload.Capture)
}

func TestWindowsNewestFirst(t *testing.T) {
	s := newTestServer()
	for i := 1; i <= 3; i++ {
		s.RecordResult(capture.Result{
			Window:  window.Summary{ID: fmt.Sprintf("w-%d", i), Seq: uint64(i), Samples: 130, StartedAt: time.Now()},
			Label:   "wave",
			Outcome: "success",
			Text:    capture.PredictionText("wave"),
			Latency: 15 * time.Millisecond,
		})
	}
	s.RecordResult(capture.Result{
		Window:  window.Summary{ID: "w-4", Seq: 4, Samples: 130},
		Err:     errors.New("connection refused"),
		Outcome: "transport_error",
		Text:    capture.TransportErrorText,
	})

	var payload struct {
		Windows []WindowEntry `json:"windows"`
		Count   int           `json:"count"`
	}
	getJSON(t, s, "/api/windows", &payload)
	require.Equal(t, 4, payload.Count)
	assert.Equal(t, "w-4", payload.Windows[0].ID)
	assert.Equal(t, "connection refused", payload.Windows[0].Error)
	assert.Equal(t, capture.TransportErrorText, payload.Windows[0].Text)
	assert.Equal(t, "w-1", payload.Windows[3].ID)
	assert.Equal(t, int64(15), payload.Windows[3].LatencyMs)

	getJSON(t, s, "/api/windows?limit=2", &payload)
	assert.Equal(t, 2, payload.Count)
	assert.Equal(t, uint64(4), payload.Windows[0].Seq)
}

func TestWindowsCapped(t *testing.T) {
	s := newTestServer()
	for i := 0; i < maxWindows+10; i++ {
		s.RecordResult(capture.Result{Window: window.Summary{Seq: uint64(i)}})
	}

	var payload struct {
		Windows []WindowEntry `json:"windows"`
		Count   int           `json:"count"`
	}
	getJSON(t, s, "/api/windows", &payload)
	assert.Equal(t, maxWindows, payload.Count)
	assert.Equal(t, uint64(maxWindows+9), payload.Windows[0].Seq)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestStatusWSRequiresUpgrade(t *testing.T) {
	s := newTestServer()
	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}
