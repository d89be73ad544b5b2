// Package logger provides configured zerolog instances.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/foodshare-desk/internal/model"
)

// New creates a logger writing to w with the given level and service
// name. An unknown level falls back to info.
func New(w io.Writer, level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger().
		Level(lvl)
}

// NewFile opens (or creates) cfg.File for appending and returns a logger
// writing to it. The terminal belongs to the UI, so the desktop client
// never logs to stderr. Close the returned file on exit.
func NewFile(cfg model.LogConfig, service string) (zerolog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return zerolog.Nop(), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
	}

	return New(f, cfg.Level, service), f, nil
}

// NewConsole returns a human-readable logger on stderr.
func NewConsole(cfg model.LogConfig, service string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return New(w, cfg.Level, service).With().Caller().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
