package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a JSON slog logger tagged with the service name.
func NewLogger(service string, level string) *slog.Logger {
	return NewLoggerTo(os.Stdout, service, level)
}

// NewLoggerTo is NewLogger writing to w.
func NewLoggerTo(w io.Writer, service string, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: ParseLevel(level)})
	return slog.New(handler).With(slog.String("service", service))
}

// ParseLevel maps LOG_LEVEL style strings onto slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops every record. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithRequestID attaches a request identifier to the logger context.
func WithRequestID(_ context.Context, logger *slog.Logger, requestID string) *slog.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With(slog.String("requestId", requestID))
}
