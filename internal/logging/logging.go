package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a logger writing to w. jsonOutput selects the JSON handler,
// used when stdout carries NDJSON so diagnostics stay machine-readable.
func New(w io.Writer, jsonOutput bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init sets the default slog logger, writing to w (stderr when nil).
func Init(w io.Writer, jsonOutput bool, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := New(w, jsonOutput, level)
	slog.SetDefault(logger)
	return logger
}

// UseJSON resolves a log format of "auto", "text" or "json". Auto picks
// JSON when stdout carries NDJSON output.
func UseJSON(format string, stdoutIsNDJSON bool) bool {
	switch strings.ToLower(format) {
	case "json":
		return true
	case "text":
		return false
	default:
		return stdoutIsNDJSON
	}
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
