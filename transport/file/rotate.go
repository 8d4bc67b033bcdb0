package file

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// RotateConfig controls size-based rotation of the history file.
type RotateConfig struct {
	// FilePath is the active file (required). Its parent directory is
	// created on open.
	FilePath string

	// MaxBytes triggers rotation before a write would push the active file
	// past this size. Zero disables rotation.
	MaxBytes int64

	// MaxBackups is the number of rotated files kept next to the active
	// one (history.jsonl.1 is the newest). Zero keeps all of them.
	MaxBackups int
}

// RotatingFile is an io.WriteCloser with size-based rotation. It is safe for
// concurrent use.
type RotatingFile struct {
	mu     sync.Mutex
	cfg    RotateConfig
	file   *os.File
	size   int64
	logger *slog.Logger
}

// NewRotatingFile opens cfg.FilePath for appending.
func NewRotatingFile(cfg RotateConfig, logger *slog.Logger) (*RotatingFile, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("transport/file: rotate: FilePath is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transport/file: rotate: mkdir %s: %w", dir, err)
	}

	rf := &RotatingFile{cfg: cfg, logger: logger}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

// Write implements io.Writer. An empty active file is never rotated, so a
// single oversized record still lands somewhere.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.cfg.MaxBytes > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.cfg.MaxBytes {
		if err := rf.rotate(); err != nil {
			// Keep appending to whatever is open rather than dropping history.
			rf.logger.Error("transport/file: rotate failed", "file", rf.cfg.FilePath, "error", err.Error())
			if rf.file == nil {
				return 0, err
			}
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// Size returns the current size of the active file.
func (rf *RotatingFile) Size() int64 {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.size
}

// Close closes the active file.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("transport/file: rotate: open %s: %w", rf.cfg.FilePath, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("transport/file: rotate: stat %s: %w", rf.cfg.FilePath, err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

func (rf *RotatingFile) backup(i int) string {
	return rf.cfg.FilePath + "." + strconv.Itoa(i)
}

// rotate shifts history.jsonl.N → .N+1 down to the active file → .1, drops
// anything beyond MaxBackups and reopens an empty active file.
func (rf *RotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		rf.logger.Warn("transport/file: rotate: close", "error", err.Error())
	}
	rf.file = nil

	highest := 0
	for {
		if _, err := os.Stat(rf.backup(highest + 1)); err != nil {
			break
		}
		highest++
	}
	for i := highest; i >= 1; i-- {
		if rf.cfg.MaxBackups > 0 && i >= rf.cfg.MaxBackups {
			if err := os.Remove(rf.backup(i)); err == nil {
				rf.logger.Debug("transport/file: pruned backup", "file", rf.backup(i))
			}
			continue
		}
		if err := os.Rename(rf.backup(i), rf.backup(i+1)); err != nil {
			rf.logger.Warn("transport/file: rotate: shift", "file", rf.backup(i), "error", err.Error())
		}
	}
	if err := os.Rename(rf.cfg.FilePath, rf.backup(1)); err != nil && !os.IsNotExist(err) {
		rf.logger.Warn("transport/file: rotate: rename", "error", err.Error())
	}

	rf.logger.Info("transport/file: rotated", "file", rf.cfg.FilePath)
	return rf.open()
}
