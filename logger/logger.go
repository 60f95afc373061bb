// Package logger builds the slog logger used across cubestats binaries.
package logger

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// timeFormat renders record times as UTC RFC3339 with millisecond precision.
const timeFormat = "2006-01-02T15:04:05.000Z"

// New returns the process logger. Output goes to stderr; stdout is reserved
// for the statistics the binaries print.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.TimeValue(a.Value.Time().UTC())
			}
			// Empty string attrs carry no information; drop them.
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}
