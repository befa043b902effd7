// Package logger builds the structured loggers used by the bulkget CLI.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// OutputFormat selects the slog handler.
type OutputFormat string

const (
	// FormatText is the key=value format of slog.TextHandler.
	FormatText OutputFormat = "text"
	// FormatJSON emits one JSON object per line.
	FormatJSON OutputFormat = "json"
)

// Options configures New.
type Options struct {
	Level  string
	Format OutputFormat
	// Output defaults to os.Stderr.
	Output io.Writer
}

// ParseLevel maps a level name to a slog level, falling back to info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger. The logger is returned rather than installed
// globally so tests can capture output per run.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if OutputFormat(strings.ToLower(string(opts.Format))) == FormatJSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything. Packages use it when no
// logger was injected.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
