// Package capture runs the sampling, windowing and classifier handoff loop.
//
// An Engine is a single goroutine that owns the sensor cache, the window
// assembler and the resume timer. Device events, sampler ticks, the resume
// timer and classifier completions all arrive on channels and are handled
// one at a time, so none of that state needs a lock:
//
//	events ──┐
//	ticker ──┤
//	resume ──┼──► Engine.Run ──► Sampler ──► Assembler
//	results ─┘        │
//	                  └──► inference (own goroutine) ──► results
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-gesture/internal/observe"
	"github.com/teslashibe/go-gesture/pkg/inference"
	"github.com/teslashibe/go-gesture/pkg/sensor"
	"github.com/teslashibe/go-gesture/pkg/window"
)

// Config holds the timing knobs of the capture loop.
type Config struct {
	// SamplePeriod is the sampler tick interval.
	SamplePeriod time.Duration

	// WindowLength is the number of samples per window.
	WindowLength int

	// Cooldown is how long collection stays idle after a window completes.
	Cooldown time.Duration

	// RequestTimeout bounds each classifier call.
	RequestTimeout time.Duration

	// EventBuffer is the capacity of the device event queue.
	EventBuffer int

	// HoldDuringCooldown ignores device events while idle.
	HoldDuringCooldown bool
}

// DefaultConfig returns 50 Hz sampling, 130-sample windows and a one
// second cooldown.
func DefaultConfig() Config {
	return Config{
		SamplePeriod:   20 * time.Millisecond,
		WindowLength:   130,
		Cooldown:       time.Second,
		RequestTimeout: 5 * time.Second,
		EventBuffer:    256,
	}
}

// Validate checks that every knob is usable.
func (c Config) Validate() error {
	var errs []error
	if c.SamplePeriod <= 0 {
		errs = append(errs, fmt.Errorf("sample period must be positive, got %s", c.SamplePeriod))
	}
	if c.WindowLength <= 0 {
		errs = append(errs, fmt.Errorf("window length must be positive, got %d", c.WindowLength))
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must not be negative, got %s", c.Cooldown))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	return errors.Join(errs...)
}

// Result is the outcome of classifying one window.
type Result struct {
	Window  window.Summary
	Label   string
	Err     error
	Outcome string
	Latency time.Duration
	Text    string
}

// Status is a point-in-time view of the engine, safe to read from any
// goroutine.
type Status struct {
	State    string `json:"state"`
	Buffered int    `json:"buffered"`
	Length   int    `json:"window_length"`
	Windows  uint64 `json:"windows"`
	Ticks    uint64 `json:"ticks"`
	Skipped  uint64 `json:"skipped"`
	Samples  uint64 `json:"samples"`
	Events   uint64 `json:"events"`
	Rejected uint64 `json:"rejected"`
	Dropped  uint64 `json:"dropped"`
	InFlight bool   `json:"in_flight"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides time.Now for window timing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// inferenceResult is posted by the request goroutine back to the engine.
type inferenceResult struct {
	window  *window.Window
	pred    *inference.Prediction
	err     error
	latency time.Duration
}

// Engine is the single-consumer capture actor.
type Engine struct {
	cfg        Config
	classifier inference.Classifier
	sink       ResultSink
	logger     *slog.Logger
	metrics    *observe.Metrics
	now        func() time.Time

	events  chan sensor.Event
	results chan inferenceResult

	// Owned by the Run goroutine.
	ctx      context.Context
	cache    *sensor.Cache
	asm      *window.Assembler
	sampler  *Sampler
	resume   *time.Timer
	resumeC  <-chan time.Time
	inflight uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// Set before Run.
	onWindow []func(*window.Window)
	onResult []func(Result)

	// Published for Status.
	state    atomic.Int32
	buffered atomic.Int64
	windows  atomic.Uint64
	ticks    atomic.Uint64
	skipped  atomic.Uint64
	samples  atomic.Uint64
	received atomic.Uint64
	rejected atomic.Uint64
	dropped  atomic.Uint64
	busy     atomic.Bool
}

// New creates an engine. It starts collecting as soon as Run is called.
func New(cfg Config, classifier inference.Classifier, sink ResultSink, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if classifier == nil {
		return nil, errors.New("capture: classifier required")
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}

	e := &Engine{
		cfg:        cfg,
		classifier: classifier,
		sink:       sink,
		logger:     slog.Default(),
		now:        time.Now,
		events:     make(chan sensor.Event, cfg.EventBuffer),
		results:    make(chan inferenceResult, 2),
		ctx:        context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "capture.engine")
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	if e.sink == nil {
		e.sink = MultiSink(nil)
	}

	e.cache = sensor.NewCache()
	e.asm = window.NewAssembler(cfg.WindowLength, e.now)
	e.sampler = NewSampler(e.cache, e.asm, e.logger, e.metrics)
	e.publish()
	return e, nil
}

// OnWindow registers fn to be called with every completed window. It runs
// on the engine goroutine and must not block. Register before Run.
func (e *Engine) OnWindow(fn func(*window.Window)) {
	e.onWindow = append(e.onWindow, fn)
}

// OnResult registers fn to be called with every classifier outcome. It runs
// on the engine goroutine and must not block. Register before Run.
func (e *Engine) OnResult(fn func(Result)) {
	e.onResult = append(e.onResult, fn)
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Submit queues a device event without blocking. It reports false when the
// queue is full and the event was dropped.
func (e *Engine) Submit(ev sensor.Event) bool {
	select {
	case e.events <- ev:
		return true
	default:
		e.dropped.Add(1)
		e.metrics.RecordDropped(context.Background(), "queue_full")
		return false
	}
}

// Status returns a snapshot of the engine counters.
func (e *Engine) Status() Status {
	return Status{
		State:    window.State(e.state.Load()).String(),
		Buffered: int(e.buffered.Load()),
		Length:   e.cfg.WindowLength,
		Windows:  e.windows.Load(),
		Ticks:    e.ticks.Load(),
		Skipped:  e.skipped.Load(),
		Samples:  e.samples.Load(),
		Events:   e.received.Load(),
		Rejected: e.rejected.Load(),
		Dropped:  e.dropped.Load(),
		InFlight: e.busy.Load(),
	}
}

// Run drives the loop until ctx is cancelled. In-flight classifier calls
// are cancelled and waited for before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.ctx = ctx
	defer func() {
		cancel()
		e.stopResume()
		e.wg.Wait()
	}()

	ticker := time.NewTicker(e.cfg.SamplePeriod)
	defer ticker.Stop()

	e.logger.Info("capture started",
		"sample_period", e.cfg.SamplePeriod,
		"window_length", e.cfg.WindowLength,
		"cooldown", e.cfg.Cooldown,
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("capture stopped", "windows", e.windows.Load())
			return nil
		case ev := <-e.events:
			e.handleEvent(ev)
		case <-ticker.C:
			e.tick()
		case <-e.resumeC:
			e.resumeCollecting()
		case r := <-e.results:
			e.handleResult(r)
		}
	}
}

// handleEvent stores a device reading in the cache.
func (e *Engine) handleEvent(ev sensor.Event) {
	e.received.Add(1)
	if e.cfg.HoldDuringCooldown && e.asm.State() == window.Idle {
		return
	}
	if err := e.cache.Apply(ev); err != nil {
		e.rejected.Add(1)
		reason := "invalid"
		switch {
		case errors.Is(err, sensor.ErrArity):
			reason = "arity"
		case errors.Is(err, sensor.ErrUnknownChannel):
			reason = "unknown_channel"
		}
		e.metrics.RecordDropped(e.ctx, reason)
		e.logger.Warn("rejected sensor event", "channel", ev.Channel.String(), "error", err)
	}
}

// tick samples once and dispatches a window when one completes.
func (e *Engine) tick() {
	w, ok := e.sampler.Tick(e.ctx)
	if ok {
		e.complete(w)
	}
	e.publish()
}

// complete hands a finished window to the classifier and arms the resume
// timer. The assembler has already cleared its buffer and gone idle.
func (e *Engine) complete(w *window.Window) {
	e.windows.Add(1)
	e.publish()
	e.metrics.WindowsCompleted.Add(e.ctx, 1)
	e.metrics.WindowCollection.Record(e.ctx, w.Elapsed.Seconds())

	e.logger.Info("window complete",
		"window", w.ID,
		"seq", w.Seq,
		"samples", w.Len(),
		"elapsed", w.Elapsed.Round(time.Millisecond),
	)

	e.sink.ShowElapsed(w.Elapsed.Seconds())
	e.sink.ShowPrediction(BufferResetText)
	for _, fn := range e.onWindow {
		fn(w)
	}

	e.dispatch(w)
	e.armResume()
}

// dispatch starts the classifier call for w on its own goroutine. A call
// still running from an earlier window is cancelled and its result ignored.
func (e *Engine) dispatch(w *window.Window) {
	if e.cancel != nil {
		e.logger.Warn("classifier still busy, abandoning previous window",
			"seq", e.inflight,
		)
		e.cancel()
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.RequestTimeout)
	e.cancel = cancel
	e.inflight = w.Seq
	e.busy.Store(true)

	runCtx := e.ctx
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()

		start := time.Now()
		pred, err := e.classifier.Predict(ctx, w)
		r := inferenceResult{window: w, pred: pred, err: err, latency: time.Since(start)}

		select {
		case e.results <- r:
		case <-runCtx.Done():
		}
	}()
}

// handleResult reports a classifier outcome to the sink.
func (e *Engine) handleResult(r inferenceResult) {
	if r.window.Seq != e.inflight {
		e.logger.Debug("discarding result for superseded window", "seq", r.window.Seq)
		return
	}
	e.cancel = nil
	e.inflight = 0
	e.busy.Store(false)

	if r.err == nil && r.pred == nil {
		r.err = &inference.TransportError{
			Err: fmt.Errorf("%w: classifier returned no prediction", inference.ErrMalformedResponse),
		}
	}

	outcome := observe.OutcomeOK
	label := ""
	switch {
	case r.err == nil:
		label = r.pred.Label
		e.logger.Info("gesture predicted", "seq", r.window.Seq, "label", label, "latency", r.latency)
	case inference.IsServer(r.err):
		outcome = observe.OutcomeServer
		e.logger.Warn("classifier rejected window", "seq", r.window.Seq, "error", r.err)
	default:
		outcome = observe.OutcomeTransport
		e.logger.Error("classifier unreachable", "seq", r.window.Seq, "error", r.err)
	}
	e.metrics.RecordInference(e.ctx, outcome, r.latency.Seconds())

	text := ResultText(r.pred, r.err)
	e.sink.ShowPrediction(text)

	res := Result{
		Window:  r.window.Summary(),
		Label:   label,
		Err:     r.err,
		Outcome: outcome,
		Latency: r.latency,
		Text:    text,
	}
	for _, fn := range e.onResult {
		fn(res)
	}
}

func (e *Engine) armResume() {
	e.stopResume()
	e.resume = time.NewTimer(e.cfg.Cooldown)
	e.resumeC = e.resume.C
}

func (e *Engine) stopResume() {
	if e.resume != nil {
		e.resume.Stop()
	}
	e.resume = nil
	e.resumeC = nil
}

// resumeCollecting ends the cooldown.
func (e *Engine) resumeCollecting() {
	e.stopResume()
	e.asm.Resume()
	e.publish()
	e.logger.Debug("collection resumed")
	e.sink.ShowPrediction(ResumeText(e.cfg.Cooldown))
}

// publish copies loop-owned state into the atomics Status reads.
func (e *Engine) publish() {
	e.state.Store(int32(e.asm.State()))
	e.buffered.Store(int64(e.asm.Len()))
	e.ticks.Store(e.sampler.Ticks())
	e.skipped.Store(e.sampler.Skipped())
	e.samples.Store(e.sampler.Samples())
}
