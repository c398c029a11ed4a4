package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// New creates a console logger on stderr. Reports and JSON go to stdout, so
// diagnostics must stay off it.
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

// NewWithLevel creates a console logger filtered at the given level name.
func NewWithLevel(level string) zerolog.Logger {
	return New().Level(ParseLevel(level))
}

// NewWithWriter creates a new structured logger with a custom writer
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// ParseLevel maps a config level name to a zerolog level. Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// WithFields adds structured fields to a logger
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
