package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}

	logger = NewLogger("")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info for empty level, got %s", logger.GetLevel())
	}
}

func TestNewConsoleLoggerWritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Str("symbol", "BTCUSDT").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "BTCUSDT") {
		t.Fatalf("expected warn line with field, got %s", out)
	}
}
