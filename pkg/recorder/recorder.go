// Package recorder writes completed windows to CSV for dataset capture.
//
// Each sample becomes one row prefixed with the window id, its sequence
// number and the sample index. Windows are queued with Submit and written
// by Run on its own goroutine, so the capture engine never waits on disk.
package recorder

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/teslashibe/go-gesture/internal/observe"
	"github.com/teslashibe/go-gesture/pkg/sensor"
	"github.com/teslashibe/go-gesture/pkg/window"
)

const queueSize = 16

// Header is the first row of every recording.
var Header = append([]string{"window_id", "seq", "sample"}, sensor.SampleColumns...)

// Recorder is a buffered CSV writer fed through a bounded queue.
type Recorder struct {
	mu     sync.Mutex
	closer io.Closer
	buf    *bufio.Writer
	csv    *csv.Writer

	queue   chan *window.Window
	logger  *slog.Logger
	metrics *observe.Metrics

	windows uint64
	rows    uint64
	dropped uint64
}

// New writes to w. If w is also an io.Closer it is closed by Close.
func New(w io.Writer, bufSizeBytes int, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bufSizeBytes <= 0 {
		bufSizeBytes = 256 * 1024
	}

	bw := bufio.NewWriterSize(w, bufSizeBytes)
	cw := csv.NewWriter(bw)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("csv write header: %w", err)
	}

	r := &Recorder{
		buf:    bw,
		csv:    cw,
		queue:  make(chan *window.Window, queueSize),
		logger: logger.With("component", "recorder"),
	}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r, nil
}

// Open creates a timestamped recording file in dir.
func Open(dir string, bufSizeBytes int, logger *slog.Logger) (*Recorder, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("recorder mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, "windows-"+time.Now().Format("20060102-150405")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("csv create %s: %w", path, err)
	}
	r, err := New(f, bufSizeBytes, logger)
	if err != nil {
		f.Close()
		return nil, "", err
	}
	return r, path, nil
}

// SetMetrics enables drop accounting.
func (r *Recorder) SetMetrics(m *observe.Metrics) {
	r.metrics = m
}

// Submit queues w for writing. It never blocks; a full queue drops w.
func (r *Recorder) Submit(w *window.Window) bool {
	select {
	case r.queue <- w:
		return true
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.RecordDropped(context.Background(), "recorder_full")
		}
		r.logger.Warn("recorder queue full, window dropped", "seq", w.Seq)
		return false
	}
}

// Run writes queued windows until ctx is cancelled, then drains the queue
// and closes the output.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case w := <-r.queue:
			if err := r.Write(w); err != nil {
				r.logger.Error("write window", "seq", w.Seq, "error", err)
			}
		case <-ctx.Done():
			for {
				select {
				case w := <-r.queue:
					if err := r.Write(w); err != nil {
						r.logger.Error("write window", "seq", w.Seq, "error", err)
					}
				default:
					return r.Close()
				}
			}
		}
	}
}

// Write appends every sample of w and flushes.
func (r *Recorder) Write(w *window.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := w.ID.String()
	seq := strconv.FormatUint(w.Seq, 10)
	row := make([]string, 0, len(Header))
	for i, s := range w.Samples {
		row = append(row[:0], id, seq, strconv.Itoa(i))
		for _, v := range s {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := r.csv.Write(row); err != nil {
			return err
		}
		r.rows++
	}
	r.windows++
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	r.csv.Flush()
	if err := r.csv.Error(); err != nil {
		return err
	}
	return r.buf.Flush()
}

// Close flushes remaining data and closes the output.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.flushLocked()
	if r.closer != nil {
		err = errors.Join(err, r.closer.Close())
		r.closer = nil
	}
	return err
}

// Stats reports windows and rows written and windows dropped.
func (r *Recorder) Stats() (windows, rows, dropped uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.windows, r.rows, r.dropped
}
