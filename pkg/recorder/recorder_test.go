package recorder

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-gesture/pkg/sensor"
	"github.com/teslashibe/go-gesture/pkg/window"
)

func testWindow(seq uint64, n int) *window.Window {
	w := &window.Window{ID: uuid.New(), Seq: seq, StartedAt: time.Now()}
	for i := 0; i < n; i++ {
		s := make(sensor.Sample, sensor.SampleArity)
		for j := range s {
			s[j] = float64(i) + float64(j)/100
		}
		w.Samples = append(w.Samples, s)
	}
	return w
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestHeader(t *testing.T) {
	assert.Len(t, Header, 3+sensor.SampleArity)
	assert.Equal(t, "window_id", Header[0])
	assert.Equal(t, "acc_x", Header[3])
	assert.Equal(t, "ori_z", Header[len(Header)-1])
}

func TestWriteWindow(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, 0, nil)
	require.NoError(t, err)

	w := testWindow(7, 3)
	require.NoError(t, r.Write(w))

	rows := readRows(t, buf.Bytes())
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, w.ID.String(), rows[1][0])
	assert.Equal(t, "7", rows[1][1])
	assert.Equal(t, "0", rows[1][2])
	assert.Equal(t, "2", rows[3][2])
	assert.Equal(t, "2.05", rows[3][3+5])

	windows, written, dropped := r.Stats()
	assert.Equal(t, uint64(1), windows)
	assert.Equal(t, uint64(3), written)
	assert.Zero(t, dropped)
}

func TestSubmitDropsWhenFull(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, 0, nil)
	require.NoError(t, err)

	for i := 0; i < queueSize; i++ {
		require.True(t, r.Submit(testWindow(uint64(i), 1)))
	}
	assert.False(t, r.Submit(testWindow(99, 1)))

	_, _, dropped := r.Stats()
	assert.Equal(t, uint64(1), dropped)
}

func TestRunDrainsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, 0, nil)
	require.NoError(t, err)

	r.Submit(testWindow(1, 2))
	r.Submit(testWindow(2, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))

	rows := readRows(t, buf.Bytes())
	assert.Len(t, rows, 1+4)
}

func TestOpenCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	r, path, err := Open(dir, 1024, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "windows-"))

	require.NoError(t, r.Write(testWindow(1, 130)))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readRows(t, data), 131)
}
