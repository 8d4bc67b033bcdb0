// Package file appends formatted query history records to an io.Writer,
// usually a size-rotated JSON-lines file.
//
//	app [query pipeline] → format/json → transport/file → history.jsonl
//
// Each Send writes one record followed by a newline in a single Write call,
// so a rotation never separates a record from its terminator.
package file

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport/file: closed")

// ─────────────────────────────────────────────────────────────────────────────
// Sink interface
// ─────────────────────────────────────────────────────────────────────────────

// Sink receives pre-formatted records (JSON bytes from format/json).
type Sink interface {
	Send(data []byte) error
	Close() error
}

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

// Config controls LineWriter behaviour.
type Config struct {
	// Writer is the destination. nil defaults to os.Stdout.
	Writer io.Writer

	// Newline appended after each record. Default "\n".
	Newline string
}

// ─────────────────────────────────────────────────────────────────────────────
// LineWriter
// ─────────────────────────────────────────────────────────────────────────────

// LineWriter implements Sink. It is safe for concurrent use.
type LineWriter struct {
	mu     sync.Mutex
	w      io.Writer
	owned  io.Closer // closed by Close when the LineWriter opened it
	nl     []byte
	sent   int64
	closed bool
	logger *slog.Logger
}

// New wraps an existing writer. The caller keeps ownership of cfg.Writer.
func New(cfg Config, logger *slog.Logger) *LineWriter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	nl := cfg.Newline
	if nl == "" {
		nl = "\n"
	}
	return &LineWriter{w: w, nl: []byte(nl), logger: logger}
}

// Open creates a LineWriter over a RotatingFile. Close closes the file.
func Open(rc RotateConfig, logger *slog.Logger) (*LineWriter, error) {
	rf, err := NewRotatingFile(rc, logger)
	if err != nil {
		return nil, err
	}
	lw := New(Config{Writer: rf}, logger)
	lw.owned = rf
	return lw, nil
}

// Send writes data and the newline to the destination.
func (t *LineWriter) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	buf := make([]byte, 0, len(data)+len(t.nl))
	buf = append(buf, data...)
	buf = append(buf, t.nl...)

	if _, err := t.w.Write(buf); err != nil {
		t.logger.Error("transport/file: write failed", "error", err.Error(), "bytes", len(data))
		return fmt.Errorf("transport/file: write: %w", err)
	}
	t.sent++

	t.logger.Debug("transport/file: wrote record", "bytes", len(data))
	return nil
}

// Sent returns the number of records written so far.
func (t *LineWriter) Sent() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}

// Close stops further writes and closes the destination if Open created it.
// It is idempotent.
func (t *LineWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.owned != nil {
		return t.owned.Close()
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// no-op logger writer
// ─────────────────────────────────────────────────────────────────────────────

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
