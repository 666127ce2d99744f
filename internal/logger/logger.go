// Package logger configures structured JSON logging.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup returns a JSON logger writing to w at the given level
// ("debug", "info", "warn", "error"; anything else means info).
func Setup(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

// SetupDefault installs the logger as the slog default and returns it.
func SetupDefault(w io.Writer, level string) *slog.Logger {
	l := Setup(w, level)
	slog.SetDefault(l)
	return l
}

func parseLevel(level string) slog.Level {
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

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
