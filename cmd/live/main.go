package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rangebot-go/internal/config"
	"rangebot-go/internal/engine"
	"rangebot-go/internal/exchange"
	"rangebot-go/internal/metrics"
	sig "rangebot-go/internal/signal"
	"rangebot-go/internal/sink"
	"rangebot-go/internal/strategy"
	"rangebot-go/internal/util"
)

var (
	configPath string
	envPath    string
)

var rootCmd = &cobra.Command{
	Use:   "live",
	Short: "Stream closed bars and emit opening-range breakout signals",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "Path to YAML config")
	rootCmd.Flags().StringVar(&envPath, "env", ".env", "Optional dotenv file with RANGEBOT_* overrides")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(cfg, envPath); err != nil {
		return err
	}
	runID := uuid.NewString()
	log := util.NewLogger(cfg.App.LogLevel).With().Str("run", runID).Logger()

	params, err := cfg.StrategyParams()
	if err != nil {
		return err
	}
	strat, err := strategy.Build(cfg.Strategy.Mode, params)
	if err != nil {
		return err
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out, closeSinks, err := openSinks(cfg, runID, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	seedSrc, pollSrc := historySources(cfg)
	runner := engine.NewRunner(cfg.Feed.Symbol, strat, out, log)
	if cfg.Feed.Provider != exchange.ProviderStub {
		seed, err := seedSrc.History(ctx, cfg.Feed.Symbol, params.Interval, runner.Capacity())
		if err != nil {
			log.Warn().Err(err).Msg("history seed failed, starting cold")
		} else {
			log.Info().Int("bars", runner.Seed(seed)).Msg("seeded history")
		}
	}

	feed, err := exchange.NewFeed(cfg.Feed.Provider, cfg.Feed.Symbol, params.Interval, log,
		exchange.WithPollInterval(time.Duration(cfg.Feed.PollInterval)*time.Millisecond),
		exchange.WithStreamURL(cfg.Feed.StreamBaseURL),
		exchange.WithHistory(pollSrc, cfg.Feed.HistoryLimit),
	)
	if err != nil {
		return err
	}
	bars := make(chan sig.Bar, 1024)
	go func() {
		if err := feed.Run(ctx, bars); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	log.Info().Str("strategy", strat.Name()).Str("provider", cfg.Feed.Provider).Str("sym", cfg.Feed.Symbol).Msg("live runner started")
	if err := runner.Run(ctx, bars); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Int("suppressed", runner.State().Suppressed).Msg("shutting down")
	return nil
}

// historySources returns the cached source used to seed the runner and the uncached client
// the polling feed reads, so a poll never sees klines older than the cache ttl.
func historySources(cfg *config.Config) (seed, poll exchange.HistorySource) {
	client := exchange.NewKlineClient(cfg.Feed.RestBaseURL, cfg.Feed.APIKey, cfg.Feed.RequestsPerSecond)
	var rdb *redis.Client
	if cfg.Cache.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	}
	return exchange.NewCachingHistory(rdb, time.Duration(cfg.Cache.TTLSecs)*time.Second, client, ""), client
}

func openSinks(cfg *config.Config, runID string, log zerolog.Logger) (sink.Sink, func(), error) {
	sinks := sink.Multi{sink.NewLog(log)}
	var closers []func() error
	if cfg.Sink.SignalsPath != "" {
		rec, err := sink.NewJSONLRecorder(cfg.Sink.SignalsPath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, rec)
		closers = append(closers, rec.Close)
	}
	if cfg.Sink.DatabasePath != "" {
		store, err := sink.OpenStore(cfg.Sink.DatabasePath, runID)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closers = append(closers, store.Close)
	}
	return sinks, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("close sink")
			}
		}
	}, nil
}
