package engine

import (
	"context"

	"github.com/rs/zerolog"

	"rangebot-go/internal/metrics"
	"rangebot-go/internal/signal"
	"rangebot-go/internal/sink"
	"rangebot-go/internal/strategy"
)

// Analyzer is a strategy that can classify a whole bar sequence in one pass.
type Analyzer interface {
	Name() string
	Analyze(bars []signal.Bar) ([]strategy.Row, error)
}

// Report summarises one backtest over a file of bars.
type Report struct {
	Symbol     string
	Strategy   string
	Rows       []strategy.Row
	Signals    []signal.Signal // BUY/SELL only
	Bars       int
	Buys       int
	Sells      int
	Suppressed int
}

// Backtest analyzes bars in batch and emits every BUY/SELL to out (nil skips emission).
// A malformed input rejects the whole run.
func Backtest(ctx context.Context, symbol string, a Analyzer, bars []signal.Bar, out sink.Sink, log zerolog.Logger) (Report, error) {
	rows, err := a.Analyze(bars)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Symbol: symbol, Strategy: a.Name(), Rows: rows, Bars: len(rows)}
	for _, r := range rows {
		if r.Raw != signal.Hold && r.Final == signal.Hold {
			rep.Suppressed++
		}
		switch r.Final {
		case signal.Buy:
			rep.Buys++
		case signal.Sell:
			rep.Sells++
		default:
			continue
		}
		sig := signal.Signal{Symbol: symbol, Side: r.Final, Close: r.Close, Reason: a.Name(), Ts: r.Ts}
		rep.Signals = append(rep.Signals, sig)
		if out != nil {
			if err := out.Emit(ctx, sig); err != nil {
				log.Warn().Err(err).Time("bar", r.Ts).Msg("sink emit failed")
			}
		}
	}
	metrics.BarsTotal.WithLabelValues(symbol).Add(float64(rep.Bars))
	metrics.SignalsTotal.WithLabelValues(symbol, signal.Buy.String()).Add(float64(rep.Buys))
	metrics.SignalsTotal.WithLabelValues(symbol, signal.Sell.String()).Add(float64(rep.Sells))
	metrics.SuppressedTotal.WithLabelValues(symbol).Add(float64(rep.Suppressed))

	log.Info().
		Str("sym", symbol).
		Str("strategy", rep.Strategy).
		Int("bars", rep.Bars).
		Int("buys", rep.Buys).
		Int("sells", rep.Sells).
		Int("suppressed", rep.Suppressed).
		Msg("backtest complete")
	return rep, nil
}
