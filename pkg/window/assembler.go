package window

import (
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-gesture/pkg/sensor"
)

// Assembler owns the active buffer and the collection state.
// It is not safe for concurrent use.
type Assembler struct {
	length int
	now    func() time.Time

	buf     []sensor.Sample
	state   State
	started time.Time
	seq     uint64
}

// NewAssembler creates an assembler for windows of length samples.
// It starts in the Collecting state. A nil now uses time.Now.
func NewAssembler(length int, now func() time.Time) *Assembler {
	if length <= 0 {
		length = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Assembler{
		length: length,
		now:    now,
		buf:    make([]sensor.Sample, 0, length),
		state:  Collecting,
	}
}

// Length returns the configured window length.
func (a *Assembler) Length() int { return a.length }

// Len returns the number of samples in the active buffer.
func (a *Assembler) Len() int { return len(a.buf) }

// State returns the current collection state.
func (a *Assembler) State() State { return a.state }

// Completed returns how many windows have been extracted so far.
func (a *Assembler) Completed() uint64 { return a.seq }

// Append adds s to the active buffer. When the buffer reaches the window
// length the assembler switches to Idle, clears the buffer and returns the
// completed window with ok set. Appending while Idle is a no-op.
func (a *Assembler) Append(s sensor.Sample) (w *Window, ok bool) {
	if a.state != Collecting {
		return nil, false
	}

	now := a.now()
	if len(a.buf) == 0 {
		a.started = now
	}
	a.buf = append(a.buf, s)
	if len(a.buf) < a.length {
		return nil, false
	}

	a.state = Idle
	a.seq++
	w = &Window{
		ID:        uuid.New(),
		Seq:       a.seq,
		Samples:   a.buf,
		StartedAt: a.started,
		Elapsed:   now.Sub(a.started),
	}
	// The extracted slice now belongs to the window; start a fresh one.
	a.buf = make([]sensor.Sample, 0, a.length)
	a.started = time.Time{}
	return w, true
}

// Resume switches back to Collecting. The next Append starts a new window.
func (a *Assembler) Resume() {
	a.state = Collecting
}
