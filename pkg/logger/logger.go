package logger

import (
	"io"
	"log/slog"
	"os"
)

const TimeFormat = "02.01.2006 15:04:05"

// Config represents logger configuration.
// LogLevel is one of "debug", "info", "warn", "error";
// LogHumanFriendly switches from JSON to text output.
type Config struct {
	LogLevel         string
	LogHumanFriendly bool
}

// ParseLevel converts a string to slog.Level, defaulting to Info on error.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// New creates a slog.Logger writing to w.
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.LogLevel),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				return slog.String(slog.TimeKey, a.Value.Time().Format(TimeFormat))
			}
			return a
		},
	}

	if cfg.LogHumanFriendly {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// NewFromConfig creates a slog.Logger writing to stdout.
func NewFromConfig(cfg Config) *slog.Logger {
	return New(cfg, os.Stdout)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
