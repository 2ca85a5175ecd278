// Package log provides a leveled logger with structured logging support.
package log

import (
	"context"
	"io"
)

type contextKey byte

const loggerContextKey contextKey = iota

var std = New()

// Default returns the standard logger.
// It is highly recommended not to use it in tests to avoid cross-test interference.
func Default() Logger {
	return std
}

// Discard returns a logger that drops every entry.
func Discard() Logger {
	return New(WithOutput(io.Discard), WithLevel(ErrorLevel))
}

// ContextWithLogger returns a new context carrying the logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext returns the logger stored in ctx, or the standard logger.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerContextKey).(Logger); ok {
		return logger
	}

	return std
}
