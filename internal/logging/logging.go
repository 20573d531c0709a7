// Package logging builds the slog logger used by every pdbwarm command.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Quiet is above every standard level.
const Quiet = slog.Level(100)

// New returns a logger writing human-readable lines to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// progress output, timestamps are noise
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return New(io.Discard, Quiet)
}

// LevelFromString converts a config value to a level; unknown values
// mean info.
func LevelFromString(s string) slog.Level {
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

// LevelFromFlags applies -v and --quiet on top of the configured level.
//   - quiet: nothing is logged
//   - verbosity 1 or more: debug
func LevelFromFlags(configured string, verbosity int, quiet bool) slog.Level {
	if quiet {
		return Quiet
	}
	if verbosity > 0 {
		return slog.LevelDebug
	}
	return LevelFromString(configured)
}
