// Package logging builds the structured logger shared by every command.
// Output goes to stderr so stdout stays clean for piped query results.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a config level name onto a slog level. Unknown names
// fall back to warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}

// New returns a text logger writing to w at the named level. verbose forces
// debug output regardless of level.
func New(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl := ParseLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Discard returns a logger that drops everything. Tests and library callers
// that don't care about diagnostics use it instead of a nil check.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
