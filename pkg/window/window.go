// Package window assembles fixed-length windows of sensor samples.
//
// An Assembler owns the active buffer and the collection state. Appending
// the Nth sample atomically flips the state to Idle, extracts the full
// buffer as an immutable Window and resets the buffer, so no sample is ever
// shared between two windows. Collection restarts only when Resume is
// called.
package window

import (
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-gesture/pkg/sensor"
)

// State controls whether sampler ticks append to the active buffer.
type State int

const (
	Idle State = iota
	Collecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	default:
		return "unknown"
	}
}

// Window is a completed, immutable sequence of samples.
type Window struct {
	ID        uuid.UUID
	Seq       uint64
	Samples   []sensor.Sample
	StartedAt time.Time
	Elapsed   time.Duration
}

// Len returns the number of samples in the window.
func (w *Window) Len() int {
	return len(w.Samples)
}

// Flatten serializes the window in sample-major order: every component of
// sample 0, then sample 1, and so on.
func (w *Window) Flatten() []float64 {
	n := 0
	for _, s := range w.Samples {
		n += len(s)
	}
	out := make([]float64, 0, n)
	for _, s := range w.Samples {
		out = append(out, s...)
	}
	return out
}

// Summary is the JSON-friendly description of a window used by the
// dashboard and the recorder.
type Summary struct {
	ID             string    `json:"id"`
	Seq            uint64    `json:"seq"`
	Samples        int       `json:"samples"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// Summary describes the window without its samples.
func (w *Window) Summary() Summary {
	return Summary{
		ID:             w.ID.String(),
		Seq:            w.Seq,
		Samples:        len(w.Samples),
		StartedAt:      w.StartedAt,
		ElapsedSeconds: w.Elapsed.Seconds(),
	}
}
