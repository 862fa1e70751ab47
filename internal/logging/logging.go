// Package logging sets up the global slog logger for shareclip binaries.
//
// Interactive runs (stderr on a terminal) default to tinted human-readable
// output at debug level, which suits watching a transfer go by. Service runs
// default to JSON at info level so the stream stays machine-readable. Both
// choices can be forced through Options.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Options select the log output. Zero values mean "decide from the
// environment": format follows the terminal check, level is debug on a
// terminal and info otherwise.
type Options struct {
	Format string // "auto", "text" (tinted), or "json"
	Level  string // "debug", "info", "warn", "error"
}

// Init configures the global slog logger. Call once, after flag parsing.
func Init(opts Options) {
	w := os.Stderr
	tty := isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())

	level := slog.LevelInfo
	if tty {
		level = slog.LevelDebug
	}
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			level = slog.LevelInfo
		}
	}

	var h slog.Handler
	if useTint(opts.Format, tty) {
		h = tinter.NewHandler(w, &tinter.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(h))
}

// useTint decides between tinted and JSON output: an explicit format wins,
// otherwise the terminal check does.
func useTint(format string, tty bool) bool {
	switch strings.ToLower(format) {
	case "text", "tint", "human":
		return true
	case "json":
		return false
	default:
		return tty
	}
}
