// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rangebot-go/internal/strategy"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed describes where bars come from and how often they are polled.
type Feed struct {
	Provider          string  `yaml:"provider"`
	Symbol            string  `yaml:"symbol"`
	Interval          string  `yaml:"interval"` // exchange notation: 1m, 15m, 1h, 1d
	RestBaseURL       string  `yaml:"rest_base_url"`
	StreamBaseURL     string  `yaml:"stream_base_url"`
	APIKey            string  `yaml:"api_key"`
	PollInterval      int     `yaml:"poll_interval_ms"`
	HistoryLimit      int     `yaml:"history_limit"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Cache configures the optional Redis layer in front of REST history requests.
type Cache struct {
	RedisAddr string `yaml:"redis_addr"`
	TTLSecs   int    `yaml:"ttl_secs"`
}

// StrategyParams groups tunable knobs for a strategy implementation.
type StrategyParams struct {
	LookbackMinutes int     `yaml:"lookback_minutes"`
	ATRPeriod       int     `yaml:"atr_period"`
	ATRMultiplier   float64 `yaml:"atr_multiplier"`
	CooldownHours   float64 `yaml:"cooldown_hours"`
	SessionOpen     string  `yaml:"session_open"`
	Timezone        string  `yaml:"timezone"`
	RangeMode       string  `yaml:"range_mode"`
	BuyBelow        float64 `yaml:"buy_below"`
	SellAbove       float64 `yaml:"sell_above"`
}

// Strategy specifies which strategy is active along with the parameter bundle.
type Strategy struct {
	Mode   string         `yaml:"mode"`
	Params StrategyParams `yaml:"params"`
}

// Sink lists where emitted signals are written. Empty paths disable that sink.
type Sink struct {
	SignalsPath  string `yaml:"signals_path"`
	DatabasePath string `yaml:"database_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Feed     Feed     `yaml:"feed"`
	Cache    Cache    `yaml:"cache"`
	Strategy Strategy `yaml:"strategy"`
	Sink     Sink     `yaml:"sink"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv loads the given dotenv files (missing files are skipped) and lets RANGEBOT_*
// variables override the YAML values.
func ApplyEnv(cfg *Config, files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	overrides := []struct {
		key string
		dst *string
	}{
		{"RANGEBOT_API_KEY", &cfg.Feed.APIKey},
		{"RANGEBOT_SYMBOL", &cfg.Feed.Symbol},
		{"RANGEBOT_PROVIDER", &cfg.Feed.Provider},
		{"RANGEBOT_REST_URL", &cfg.Feed.RestBaseURL},
		{"RANGEBOT_STREAM_URL", &cfg.Feed.StreamBaseURL},
		{"RANGEBOT_REDIS_ADDR", &cfg.Cache.RedisAddr},
		{"RANGEBOT_LOG_LEVEL", &cfg.App.LogLevel},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && strings.TrimSpace(v) != "" {
			*o.dst = strings.TrimSpace(v)
		}
	}
	return nil
}

// Interval parses Feed.Interval. Besides Go durations it accepts the exchange suffixes
// d (day) and w (week).
func (c *Config) Interval() (time.Duration, error) {
	return ParseInterval(c.Feed.Interval)
}

// ParseInterval converts exchange interval notation into a duration.
func ParseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, &strategy.ConfigError{Param: "interval", Value: v, Reason: "missing"}
	}
	unit := v[len(v)-1]
	if unit == 'd' || unit == 'w' {
		n, err := strconv.Atoi(v[:len(v)-1])
		if err != nil {
			return 0, &strategy.ConfigError{Param: "interval", Value: v, Reason: err.Error()}
		}
		day := 24 * time.Hour
		if unit == 'w' {
			day *= 7
		}
		return time.Duration(n) * day, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &strategy.ConfigError{Param: "interval", Value: v, Reason: err.Error()}
	}
	return d, nil
}

// StrategyParams maps the YAML strategy section onto strategy.Params and validates it.
func (c *Config) StrategyParams() (strategy.Params, error) {
	interval, err := c.Interval()
	if err != nil {
		return strategy.Params{}, err
	}
	sp := c.Strategy.Params
	params := strategy.Params{
		Interval:        interval,
		LookbackMinutes: sp.LookbackMinutes,
		ATRPeriod:       sp.ATRPeriod,
		ATRMultiplier:   sp.ATRMultiplier,
		CooldownHours:   sp.CooldownHours,
		SessionOpen:     sp.SessionOpen,
		Timezone:        sp.Timezone,
		RangeMode:       sp.RangeMode,
		BuyBelow:        sp.BuyBelow,
		SellAbove:       sp.SellAbove,
	}
	if err := params.Validate(); err != nil {
		return strategy.Params{}, err
	}
	return params, nil
}

// Default returns a config that runs the opening-range strategy on the offline stub feed.
func Default() *Config {
	p := strategy.DefaultParams()
	return &Config{
		App: App{Name: "rangebot", Env: "dev", MetricsAddr: ":9102", LogLevel: "info"},
		Feed: Feed{
			Provider:          "stub",
			Symbol:            "BTCUSDT",
			Interval:          "15m",
			RestBaseURL:       "https://api.binance.com",
			StreamBaseURL:     "wss://stream.binance.com:9443",
			PollInterval:      300000,
			HistoryLimit:      500,
			RequestsPerSecond: 2,
		},
		Cache: Cache{TTLSecs: 60},
		Strategy: Strategy{
			Mode: "opening_range",
			Params: StrategyParams{
				LookbackMinutes: p.LookbackMinutes,
				ATRPeriod:       p.ATRPeriod,
				ATRMultiplier:   p.ATRMultiplier,
				CooldownHours:   p.CooldownHours,
				SessionOpen:     p.SessionOpen,
				Timezone:        p.Timezone,
				RangeMode:       p.RangeMode,
			},
		},
	}
}
