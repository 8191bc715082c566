// Package logging builds the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Format names accepted by New.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
	// FormatAuto picks pretty on a terminal and JSON otherwise.
	FormatAuto = "auto"
)

// New returns a logger writing to out. "pretty" gives human-readable lines
// for local development, colorized when out is a terminal:
//
//	15:04:05 INF msg key=value key=value
//
// Anything else writes JSON.
func New(out io.Writer, format, level string) *slog.Logger {
	lvl := ParseLevel(level)
	tty := isTerminal(out)
	if format == FormatAuto && tty {
		format = FormatPretty
	}
	if format == FormatPretty {
		return slog.New(tint.NewHandler(out, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
			NoColor:    !tty,
		}))
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl}))
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
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
