package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup returns a structured logger writing to w. format is "json" or
// "text"; level is one of debug, info, warn, error (default info).
func Setup(w io.Writer, format, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupDefault builds a logger with Setup and installs it as the slog default.
func SetupDefault(w io.Writer, format, level string) *slog.Logger {
	l := Setup(w, format, level)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a level name to a slog.Level.
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
