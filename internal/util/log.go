// Package util holds small process-wide helpers shared by the binaries.
package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a JSON logger on stdout. Unknown levels fall back to info.
func NewLogger(level string) zerolog.Logger {
	return newLogger(os.Stdout, level)
}

// NewConsoleLogger writes human-readable lines to w, for interactive binaries.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}, level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
