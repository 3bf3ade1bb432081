package logging

import (
	"log/slog"
	"os"

	"github.com/MatusOllah/slogcolor"
)

type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// New builds the process-wide logger. Colored output goes to stderr; plain
// text is used when stderr is not a terminal-friendly target (CI, pipes) via
// the NO_COLOR convention honored by the handler itself.
func New(level Level) *slog.Logger {
	opts := slogcolor.DefaultOptions
	opts.Level = level
	return slog.New(slogcolor.NewHandler(os.Stderr, opts))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
