package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-gesture/pkg/sensor"
	"github.com/teslashibe/go-gesture/pkg/window"
)

func TestSamplerGrowsWindowOnePerTick(t *testing.T) {
	asm := window.NewAssembler(4, nil)
	s := NewSampler(sensor.NewCache(), asm, nil, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, ok := s.Tick(ctx)
		require.False(t, ok)
		assert.Equal(t, i, asm.Len())
	}

	w, ok := s.Tick(ctx)
	require.True(t, ok)
	assert.Equal(t, 4, w.Len())
	assert.Equal(t, 0, asm.Len())
}

func TestSamplerSkipsWhileIdle(t *testing.T) {
	asm := window.NewAssembler(1, nil)
	s := NewSampler(sensor.NewCache(), asm, nil, nil)
	ctx := context.Background()

	_, ok := s.Tick(ctx)
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		w, ok := s.Tick(ctx)
		assert.False(t, ok)
		assert.Nil(t, w)
	}
	assert.Equal(t, uint64(6), s.Ticks())
	assert.Equal(t, uint64(5), s.Skipped())
	assert.Equal(t, uint64(1), s.Samples())
}

func TestSamplerWarnsOncePerChannel(t *testing.T) {
	cache := sensor.NewCache()
	asm := window.NewAssembler(1, nil)
	s := NewSampler(cache, asm, nil, nil)
	ctx := context.Background()

	s.Tick(ctx)
	assert.Len(t, s.warned, 4)

	require.NoError(t, cache.Update(sensor.Orientation, sensor.Vector{0, 0, 0, 1}))
	asm.Resume()
	s.Tick(ctx)
	assert.Len(t, s.warned, 4, "warned set only grows")
	assert.True(t, s.warned[sensor.Orientation])
}
