package main

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-gesture/pkg/sensor"
	"github.com/teslashibe/go-gesture/pkg/simulator"
)

// simulatedWindow samples a noiseless motion every 20 ms.
func simulatedWindow(t *testing.T, m simulator.Motion, n int) []float64 {
	t.Helper()
	cache := sensor.NewCache()
	out := make([]float64, 0, n*sensor.SampleArity)
	for i := 0; i < n; i++ {
		at := time.Duration(i) * 20 * time.Millisecond
		for _, ch := range sensor.Channels {
			require.NoError(t, cache.Update(ch, simulator.Sample(m, ch, at)))
		}
		out = append(out, cache.Snapshot().Sample()...)
	}
	return out
}

func TestClassifySimulatedMotions(t *testing.T) {
	for _, m := range simulator.Motions {
		t.Run(string(m), func(t *testing.T) {
			assert.Equal(t, string(m), Classify(simulatedWindow(t, m, 130)))
		})
	}
}

func TestClassifyEmpty(t *testing.T) {
	assert.Equal(t, "still", Classify(nil))
}

func post(t *testing.T, body string) (int, map[string]any) {
	t.Helper()
	app := newApp(130*sensor.SampleArity, 0, false)
	req := httptest.NewRequest("POST", "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestPredict(t *testing.T) {
	data, err := json.Marshal(predictRequest{SensorData: simulatedWindow(t, simulator.Circle, 130)})
	require.NoError(t, err)

	status, out := post(t, string(data))
	assert.Equal(t, 200, status)
	assert.Equal(t, "circle", out["prediction"])
	assert.NotContains(t, out, "error")
}

func TestPredictWrongLength(t *testing.T) {
	status, out := post(t, `{"sensor_data":[1,2,3]}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "expected 1560 values, got 3", out["error"])
}

func TestPredictInvalidJSON(t *testing.T) {
	status, out := post(t, `{"sensor_data":`)
	assert.Equal(t, 400, status)
	assert.Contains(t, out["error"], "invalid JSON")
}
