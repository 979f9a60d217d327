package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-gesture/pkg/sensor"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func sampleN(i int) sensor.Sample {
	s := make(sensor.Sample, sensor.SampleArity)
	s[0] = float64(i)
	return s
}

func TestAssemblerGrowsByOnePerAppend(t *testing.T) {
	a := NewAssembler(130, nil)
	require.Equal(t, Collecting, a.State())

	for i := 0; i < 129; i++ {
		w, ok := a.Append(sampleN(i))
		require.False(t, ok)
		require.Nil(t, w)
		require.Equal(t, i+1, a.Len())
	}

	w, ok := a.Append(sampleN(129))
	require.True(t, ok)
	require.NotNil(t, w)
	assert.Equal(t, 130, w.Len())
	assert.Equal(t, 0, a.Len(), "buffer must reset the instant a window completes")
	assert.Equal(t, Idle, a.State())
}

func TestAssemblerIdleIgnoresAppends(t *testing.T) {
	a := NewAssembler(2, nil)
	a.Append(sampleN(0))
	_, ok := a.Append(sampleN(1))
	require.True(t, ok)

	for i := 0; i < 10; i++ {
		w, ok := a.Append(sampleN(i))
		assert.False(t, ok)
		assert.Nil(t, w)
		assert.Equal(t, 0, a.Len())
	}
	assert.Equal(t, Idle, a.State())
	assert.Equal(t, uint64(1), a.Completed())
}

func TestAssemblerNoSampleLeaksBetweenWindows(t *testing.T) {
	const n = 5
	a := NewAssembler(n, nil)

	var windows []*Window
	next := 0
	for cycle := 0; cycle < 3; cycle++ {
		for {
			w, ok := a.Append(sampleN(next))
			next++
			if ok {
				windows = append(windows, w)
				break
			}
		}
		a.Resume()
	}

	require.Len(t, windows, 3)
	for i, w := range windows {
		require.Len(t, w.Samples, n)
		// First sample of each window is the first sample appended after resume.
		assert.Equal(t, float64(i*n), w.Samples[0][0], "window %d", i)
		assert.Equal(t, uint64(i+1), w.Seq)
	}

	// Mutating a later buffer must not touch an earlier window.
	windows[0].Samples[0][1] = 42
	assert.Zero(t, windows[1].Samples[0][1])
	assert.NotEqual(t, windows[0].ID, windows[1].ID)
}

func TestAssemblerElapsed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0), step: 20 * time.Millisecond}
	a := NewAssembler(130, clock.now)

	var w *Window
	for i := 0; i < 130; i++ {
		w, _ = a.Append(sampleN(i))
	}
	require.NotNil(t, w)

	// First sample at t0, last at t0 + 129 steps.
	assert.Equal(t, time.Unix(1000, 0), w.StartedAt)
	assert.Equal(t, 129*20*time.Millisecond, w.Elapsed)
	assert.InDelta(t, 2.58, w.Summary().ElapsedSeconds, 1e-9)
}

func TestAssemblerResumeStartsFreshWindowTimer(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	a := NewAssembler(2, clock.now)

	a.Append(sampleN(0))
	a.Append(sampleN(1))
	clock.t = clock.t.Add(time.Hour)
	a.Resume()

	a.Append(sampleN(2))
	w, ok := a.Append(sampleN(3))
	require.True(t, ok)
	assert.Equal(t, time.Second, w.Elapsed)
}

func TestFlattenScenario(t *testing.T) {
	c := sensor.NewCache()
	require.NoError(t, c.Update(sensor.Acceleration, sensor.Vector{1, 0, 0}))
	require.NoError(t, c.Update(sensor.Gravity, sensor.Vector{0, -1, 0}))
	require.NoError(t, c.Update(sensor.AngularVelocity, sensor.Vector{0, 0, 1}))
	require.NoError(t, c.Update(sensor.Orientation, sensor.Vector{0, 0, 0, 1}))

	a := NewAssembler(130, nil)
	var w *Window
	for i := 0; i < 130; i++ {
		w, _ = a.Append(c.Snapshot().Sample())
	}
	require.NotNil(t, w)

	flat := w.Flatten()
	require.Len(t, flat, 1560)

	want := []float64{1, 0, 0, 0, -1, 0, 0, 0, 1, 0, 0, 0}
	for i := 0; i < 130; i++ {
		assert.Equal(t, want, flat[i*12:(i+1)*12], "sample %d", i)
	}
}

func TestFlattenSampleMajor(t *testing.T) {
	w := &Window{Samples: []sensor.Sample{{1, 2, 3}, {4, 5, 6}}}
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, w.Flatten())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "collecting", Collecting.String())
}
