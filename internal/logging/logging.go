// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log level and destination.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Verbose forces debug level.
	Verbose bool
	// File, when set, sends output to a rotating file instead of Writer.
	File      string
	MaxSizeMB int
	MaxFiles  int
	// Writer receives output when File is empty. Defaults to os.Stderr.
	Writer io.Writer
}

// RotationConfig configures a rotating log file.
type RotationConfig struct {
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// NewRotatingWriter returns a size-rotated file writer. Unset limits
// default to 10 MB per file and 5 kept files.
func NewRotatingWriter(cfg RotationConfig) (*lumberjack.Logger, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("rotation file path must not be empty")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
	}, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// New builds a text logger. The returned closer releases the log file and
// is a no-op for writer output.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var (
		w      io.Writer = opts.Writer
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		rw, err := NewRotatingWriter(RotationConfig{File: opts.File, MaxSizeMB: opts.MaxSizeMB, MaxFiles: opts.MaxFiles})
		if err != nil {
			return nil, nil, err
		}
		w, closer = rw, rw
	}
	if w == nil {
		w = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
