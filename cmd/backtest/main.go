package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rangebot-go/internal/barfile"
	"rangebot-go/internal/config"
	"rangebot-go/internal/engine"
	"rangebot-go/internal/sink"
	"rangebot-go/internal/strategy"
	"rangebot-go/internal/util"
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a bar file through the signal pipeline",
	Long: `Replay a bar file (CSV, JSON or Parquet) through the configured strategy and write
a per-bar report with the opening range, ATR, raw and final signal.

Examples:
  # Report as CSV next to the input
  backtest --bars data/btcusdt-15m.csv --out out/report.csv

  # Parquet report and store BUY/SELL rows in SQLite
  backtest --bars data/btcusdt-15m.parquet --out out/report.parquet --db var/signals.db`,
	RunE: runBacktest,
}

var (
	btConfig string
	btBars   string
	btOut    string
	btFormat string
	btDB     string
	btMode   string
	btSymbol string
	btRunID  string
	btSignal string
)

func init() {
	rootCmd.Flags().StringVar(&btConfig, "config", "configs/config.yaml", "Path to YAML config")
	rootCmd.Flags().StringVar(&btBars, "bars", "", "Input bar file (csv, json, jsonl, parquet)")
	rootCmd.Flags().StringVar(&btOut, "out", "", "Report file; format follows the extension unless --format is set")
	rootCmd.Flags().StringVar(&btFormat, "format", "", "Report format: csv, json, parquet")
	rootCmd.Flags().StringVar(&btDB, "db", "", "SQLite file to store BUY/SELL signals (default: sink.database_path)")
	rootCmd.Flags().StringVar(&btMode, "mode", "", "Override strategy.mode")
	rootCmd.Flags().StringVar(&btSymbol, "symbol", "", "Override feed.symbol")
	rootCmd.Flags().StringVar(&btRunID, "run-id", "", "Run identifier (default: random UUID)")
	rootCmd.Flags().StringVar(&btSignal, "signals", "", "Append BUY/SELL signals as JSON lines to this file")

	_ = rootCmd.MarkFlagRequired("bars")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(btConfig)
	if err != nil {
		return err
	}
	if btMode != "" {
		cfg.Strategy.Mode = btMode
	}
	if btSymbol != "" {
		cfg.Feed.Symbol = strings.ToUpper(btSymbol)
	}
	if btDB == "" {
		btDB = cfg.Sink.DatabasePath
	}
	if btRunID == "" {
		btRunID = uuid.NewString()
	}
	log := util.NewConsoleLogger(cmd.ErrOrStderr(), cfg.App.LogLevel).With().Str("run", btRunID).Logger()

	params, err := cfg.StrategyParams()
	if err != nil {
		return err
	}
	strat, err := strategy.Build(cfg.Strategy.Mode, params)
	if err != nil {
		return err
	}
	analyzer, ok := strat.(engine.Analyzer)
	if !ok {
		return fmt.Errorf("strategy %s cannot run in batch", strat.Name())
	}

	bars, err := barfile.ReadBars(btBars)
	if err != nil {
		return err
	}

	ledger := sink.NewLedger(0)
	out := sink.Multi{ledger}
	if btSignal != "" {
		rec, err := sink.NewJSONLRecorder(btSignal)
		if err != nil {
			return err
		}
		defer rec.Close()
		out = append(out, rec)
	}
	if btDB != "" {
		store, err := sink.OpenStore(btDB, btRunID)
		if err != nil {
			return err
		}
		defer store.Close()
		out = append(out, store)
	}

	rep, err := engine.Backtest(context.Background(), cfg.Feed.Symbol, analyzer, bars, out, log)
	if err != nil {
		return err
	}

	if btOut != "" {
		codec, err := reportCodec(btOut, btFormat)
		if err != nil {
			return err
		}
		if err := codec.WriteRows(btOut, rep.Rows); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info().Str("path", btOut).Str("format", codec.Extension()).Msg("report written")
	}

	printSummary(cmd.OutOrStdout(), btRunID, cfg.Feed.Symbol, rep, ledger)
	return nil
}

func printSummary(w io.Writer, runID, symbol string, rep engine.Report, ledger *sink.Ledger) {
	buys, sells := ledger.Counts()
	fmt.Fprintf(w, "run %s: %d bars, %d buys, %d sells, %d suppressed by cooldown\n",
		runID, rep.Bars, buys, sells, rep.Suppressed)
	if last, ok := ledger.Last(symbol); ok {
		fmt.Fprintf(w, "last signal: %s %s @ %s\n", last.Side, last.Ts.UTC().Format(time.RFC3339), strconv.FormatFloat(last.Close, 'f', -1, 64))
	}
}

func reportCodec(path, format string) (barfile.Codec, error) {
	if format == "" {
		return barfile.ForPath(path)
	}
	codec := barfile.NewCodec(format)
	if codec == nil {
		return nil, fmt.Errorf("unsupported format %q (use csv, json, parquet)", format)
	}
	return codec, nil
}
