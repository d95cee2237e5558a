// Package log provides the logging interface shared by every SAM component.
// Components take a Logger by constructor injection rather than reaching
// for a package global, so tests can inject Nop() and production wiring can
// swap the handler without touching call sites.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal structured-logging surface every component depends
// on. The levels mirror the Lifecycle Router's RouteLog severities: Debug
// for routine/expected flow ("Check"), Warn for "can happen but should be
// looked at", Error for "should not happen".
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a Logger that prepends the given key/value pairs to
	// every subsequent call, e.g. log.With("appId", id).
	With(args ...any) Logger
}

// SlogAdapter wraps slog.Logger to implement our Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// Info logs an info message.
func (s *SlogAdapter) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// With returns a child Logger with the given fields attached to every
// subsequent record.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}

// New creates a new logger with the specified verbosity.
func New(verbose bool) Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if verbose {
		opts.Level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slogLogger := slog.New(handler)

	return &SlogAdapter{logger: slogLogger}
}

// Nop returns a logger that discards all output.
func Nop() Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	slogLogger := slog.New(handler)
	return &SlogAdapter{logger: slogLogger}
}

// NewSlogAdapter creates a Logger from an slog.Logger.
func NewSlogAdapter(slogLogger *slog.Logger) Logger {
	return &SlogAdapter{logger: slogLogger}
}
