// Package logging wraps log/slog with the one constructor every cmd/
// binary calls at startup, grounded on the teacher's constructor style
// (redis.NewClient, eventlog.NewStore): a single New(...) that returns a
// ready-to-use handle instead of package-level globals.
package logging

import (
	"log/slog"
	"os"
)

// New builds a slog.Logger writing to stderr. level is one of
// "debug"/"info"/"warn"/"error" (case-insensitive, defaults to "info");
// format is "json" or "text" (defaults to "json", the right choice for a
// daemon whose output is scraped rather than read in a terminal).
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// WithComponent returns a logger that tags every record with a
// "component" attribute, used so log lines from internal/stream,
// internal/projection, the Redis view caches and the HTTP layer can be
// filtered independently even though they all write to the same stream.
func WithComponent(log *slog.Logger, component string) *slog.Logger {
	return log.With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
