package capture

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-gesture/internal/observe"
	"github.com/teslashibe/go-gesture/pkg/sensor"
	"github.com/teslashibe/go-gesture/pkg/window"
)

// Sampler projects the sensor cache into the active window once per tick.
// Like the cache and the assembler it wraps, it is owned by one goroutine.
type Sampler struct {
	cache   *sensor.Cache
	asm     *window.Assembler
	logger  *slog.Logger
	metrics *observe.Metrics

	// warned holds channels already reported as never fired.
	warned map[sensor.Channel]bool

	ticks   uint64
	skipped uint64
	samples uint64
}

// NewSampler creates a sampler reading cache and appending to asm.
func NewSampler(cache *sensor.Cache, asm *window.Assembler, logger *slog.Logger, metrics *observe.Metrics) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Sampler{
		cache:   cache,
		asm:     asm,
		logger:  logger,
		metrics: metrics,
		warned:  make(map[sensor.Channel]bool),
	}
}

// Tick takes one sample. While the assembler is idle the tick is dropped.
// When the sample completes a window, the window is returned with ok set.
func (s *Sampler) Tick(ctx context.Context) (w *window.Window, ok bool) {
	s.ticks++
	if s.asm.State() != window.Collecting {
		s.skipped++
		s.metrics.TicksSkipped.Add(ctx, 1)
		return nil, false
	}

	if s.asm.Len() == 0 {
		s.checkGaps(ctx)
	}

	w, ok = s.asm.Append(s.cache.Snapshot().Sample())
	s.samples++
	s.metrics.SamplesTaken.Add(ctx, 1)
	return w, ok
}

// checkGaps reports channels that will contribute zero vectors to the
// window about to start.
func (s *Sampler) checkGaps(ctx context.Context) {
	for _, ch := range s.cache.Missing() {
		s.metrics.RecordSensorGap(ctx, ch.String())
		if s.warned[ch] {
			continue
		}
		s.warned[ch] = true
		s.logger.Warn("channel has not reported yet, sampling zero vector",
			"channel", ch.String(),
		)
	}
}

// Ticks returns the number of ticks seen.
func (s *Sampler) Ticks() uint64 { return s.ticks }

// Skipped returns the number of ticks dropped while idle.
func (s *Sampler) Skipped() uint64 { return s.skipped }

// Samples returns the number of samples appended.
func (s *Sampler) Samples() uint64 { return s.samples }
