package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rangebot-go/internal/strategy"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "rangebot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "debug" {
		t.Fatalf("unexpected App.LogLevel: %s", cfg.App.LogLevel)
	}
	if cfg.Feed.Provider != "binance_rest" || cfg.Feed.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected feed: %+v", cfg.Feed)
	}
	if cfg.Feed.PollInterval != 300000 {
		t.Fatalf("unexpected poll interval: %d", cfg.Feed.PollInterval)
	}
	if cfg.Feed.RequestsPerSecond != 2 {
		t.Fatalf("unexpected request rate: %.2f", cfg.Feed.RequestsPerSecond)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" || cfg.Cache.TTLSecs != 60 {
		t.Fatalf("unexpected cache: %+v", cfg.Cache)
	}
	if cfg.Strategy.Mode != "opening_range" {
		t.Fatalf("unexpected strategy mode: %s", cfg.Strategy.Mode)
	}
	if cfg.Strategy.Params.ATRMultiplier != 0.5 {
		t.Fatalf("unexpected atr multiplier: %.2f", cfg.Strategy.Params.ATRMultiplier)
	}
	if cfg.Strategy.Params.SessionOpen != "00:00" {
		t.Fatalf("unexpected session open: %s", cfg.Strategy.Params.SessionOpen)
	}
	if cfg.Sink.SignalsPath != "var/signals.jsonl" {
		t.Fatalf("unexpected signals path: %s", cfg.Sink.SignalsPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Strategy.Params.CooldownHours = 4
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.Strategy.Params.CooldownHours != 4 {
		t.Fatalf("expected cooldown 4, got %.2f", got.Strategy.Params.CooldownHours)
	}
	if got.Feed.Interval != "15m" {
		t.Fatalf("expected 15m interval, got %s", got.Feed.Interval)
	}
}

func TestSaveNilConfig(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "x.yaml"), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestStrategyParams(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	params, err := cfg.StrategyParams()
	if err != nil {
		t.Fatalf("StrategyParams returned error: %v", err)
	}
	if params.Interval != 15*time.Minute {
		t.Fatalf("expected 15m interval, got %s", params.Interval)
	}
	if params.BarsInWindow() != 2 {
		t.Fatalf("expected 2 bars in window, got %d", params.BarsInWindow())
	}
	if params.CooldownBars() != 8 {
		t.Fatalf("expected 8 cooldown bars, got %d", params.CooldownBars())
	}
}

func TestStrategyParamsRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Strategy.Params.ATRPeriod = 0
	_, err := cfg.StrategyParams()
	if !errors.Is(err, strategy.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	var ce *strategy.ConfigError
	if !errors.As(err, &ce) || ce.Param != "atr_period" {
		t.Fatalf("expected atr_period config error, got %v", err)
	}

	cfg = Default()
	cfg.Feed.Interval = "soon"
	if _, err := cfg.StrategyParams(); !errors.Is(err, strategy.ErrConfig) {
		t.Fatalf("expected ErrConfig for bad interval, got %v", err)
	}
}

func TestParseInterval(t *testing.T) {
	cases := map[string]time.Duration{
		"1m":  time.Minute,
		"15m": 15 * time.Minute,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseInterval(in)
		if err != nil {
			t.Fatalf("ParseInterval(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseInterval(%q) = %s, want %s", in, got, want)
		}
	}
	for _, bad := range []string{"", "xd", "fast"} {
		if _, err := ParseInterval(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("RANGEBOT_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	// register cleanup for the dotenv key, then clear it so godotenv can set it
	t.Setenv("RANGEBOT_API_KEY", "")
	os.Unsetenv("RANGEBOT_API_KEY")
	t.Setenv("RANGEBOT_SYMBOL", "ETHUSDT")

	cfg := Default()
	if err := ApplyEnv(cfg, envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}
	if cfg.Feed.APIKey != "from-dotenv" {
		t.Fatalf("expected api key from dotenv, got %q", cfg.Feed.APIKey)
	}
	if cfg.Feed.Symbol != "ETHUSDT" {
		t.Fatalf("expected symbol override, got %s", cfg.Feed.Symbol)
	}
	if cfg.Feed.Provider != "stub" {
		t.Fatalf("provider should be untouched, got %s", cfg.Feed.Provider)
	}
}
