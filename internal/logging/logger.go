// Package logging provides structured logging for go-channel-monitor.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a new structured logger with the specified format and level.
// Format should be "json" or "text".
// Level should be "debug", "info", "warn", or "error".
func NewLogger(format, level string, verbose bool) *slog.Logger {
	logLevel := parseLevel(level)
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	return slog.New(newHandler(os.Stderr, format, opts))
}

// NewLoggerWithWriter creates a logger that writes to a custom writer.
// Useful for testing, and with io.Discard while the dashboard owns the terminal.
func NewLoggerWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	return slog.New(newHandler(w, format, opts))
}

// WithRecorder returns a logger that keeps writing through logger's handler
// and also mirrors every record at or above level into sink as a single
// formatted line.
func WithRecorder(logger *slog.Logger, sink LineSink, level string) *slog.Logger {
	rec := NewRecordingHandler(sink, parseLevel(level))
	return slog.New(&teeHandler{handlers: []slog.Handler{logger.Handler(), rec}})
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		// Default to JSON for structured logging
		return slog.NewJSONHandler(w, opts)
	}
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetDefault sets the default logger for the slog package.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
