package simulator

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-gesture/pkg/sensor"
)

func TestSampleArity(t *testing.T) {
	for _, m := range Motions {
		for _, ch := range sensor.Channels {
			v := Sample(m, ch, 300*time.Millisecond)
			assert.Len(t, v, ch.Arity(), "%s/%s", m, ch)
		}
	}
}

func TestStillIsAtRest(t *testing.T) {
	assert.Equal(t, sensor.Vector{0, 0, 0}, Sample(Still, sensor.Acceleration, time.Second))
	assert.Equal(t, sensor.Vector{0, 0, 0}, Sample(Still, sensor.AngularVelocity, time.Second))

	g := Sample(Still, sensor.Gravity, time.Second)
	assert.InDelta(t, -standardGravity, g[1], 1e-9)

	q := Sample(Still, sensor.Orientation, time.Second)
	assert.InDelta(t, 1, q[3], 1e-9)
}

func TestOrientationIsUnitQuaternion(t *testing.T) {
	for _, m := range Motions {
		q := Sample(m, sensor.Orientation, 1234*time.Millisecond)
		norm := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
		assert.InDelta(t, 1, norm, 1e-9, "%s", m)
	}
}

func TestGravityMagnitude(t *testing.T) {
	g := Sample(Wave, sensor.Gravity, 170*time.Millisecond)
	norm := math.Sqrt(g[0]*g[0] + g[1]*g[1] + g[2]*g[2])
	assert.InDelta(t, standardGravity, norm, 1e-9)
}

func TestParseMotion(t *testing.T) {
	m, err := ParseMotion("circle")
	require.NoError(t, err)
	assert.Equal(t, Circle, m)

	_, err = ParseMotion("jump")
	assert.Error(t, err)
}

func TestNoiseIsBounded(t *testing.T) {
	s := New(Config{Motion: Still, Noise: 0.05, Seed: 7})
	for i := 0; i < 100; i++ {
		v := s.Reading(sensor.Acceleration, 0)
		for _, x := range v {
			assert.LessOrEqual(t, math.Abs(x), 0.05)
		}
	}
}

func TestRunEmitsEveryChannel(t *testing.T) {
	s := New(Config{Motion: Wave, Rates: map[sensor.Channel]time.Duration{
		sensor.Acceleration:    2 * time.Millisecond,
		sensor.Gravity:         3 * time.Millisecond,
		sensor.AngularVelocity: 4 * time.Millisecond,
		sensor.Orientation:     5 * time.Millisecond,
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go s.Run(ctx)

	seen := map[sensor.Channel]int{}
	for ev := range s.Out {
		require.Len(t, ev.Values, ev.Channel.Arity())
		seen[ev.Channel]++
	}

	for _, ch := range sensor.Channels {
		assert.Positive(t, seen[ch], "no events for %s", ch)
	}
	assert.Greater(t, seen[sensor.Acceleration], seen[sensor.Orientation])

	produced, _ := s.Stats()
	assert.Equal(t, uint64(len(seen)), uint64(len(sensor.Channels)))
	assert.Positive(t, produced)
}
