// Package engine drives a strategy bar by bar from a live feed.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"rangebot-go/internal/metrics"
	"rangebot-go/internal/signal"
	"rangebot-go/internal/sink"
	"rangebot-go/internal/strategy"
)

const defaultHistory = 512

// historyHint is implemented by strategies that know how many trailing bars they need.
type historyHint interface {
	MinHistory() int
}

// Runner keeps a bounded bar history for one symbol, evaluates the newest bar on arrival and
// threads the cooldown state between calls.
type Runner struct {
	symbol     string
	strat      strategy.Strategy
	out        sink.Sink
	log        zerolog.Logger
	maxHistory int
	history    []signal.Bar
	state      strategy.State
}

// NewRunner wires a strategy to a sink. out may be nil when only the return values matter.
func NewRunner(symbol string, strat strategy.Strategy, out sink.Sink, log zerolog.Logger) *Runner {
	size := defaultHistory
	if h, ok := strat.(historyHint); ok && h.MinHistory() > 0 {
		size = h.MinHistory()
	}
	return &Runner{
		symbol:     symbol,
		strat:      strat,
		out:        out,
		log:        log.With().Str("sym", symbol).Str("strategy", strat.Name()).Logger(),
		maxHistory: size,
		history:    make([]signal.Bar, 0, 2*size),
	}
}

// Seed preloads history (e.g. REST klines) without emitting signals. Bars that are malformed
// or not newer than what is already held are skipped.
func (r *Runner) Seed(bars []signal.Bar) int {
	n := 0
	for _, b := range bars {
		if r.accept(b) {
			r.push(b)
			n++
		}
	}
	return n
}

// State returns the cooldown state after the last evaluated bar.
func (r *Runner) State() strategy.State { return r.state }

// Capacity is the trailing window handed to the strategy, also the seed size worth fetching.
func (r *Runner) Capacity() int { return r.maxHistory }

// Len is the number of bars currently retained.
func (r *Runner) Len() int { return len(r.history) }

func (r *Runner) accept(b signal.Bar) bool {
	if err := strategy.ValidateBars([]signal.Bar{b}); err != nil {
		r.log.Warn().Err(err).Time("bar", b.Ts).Msg("dropping malformed bar")
		return false
	}
	if n := len(r.history); n > 0 && !b.Ts.After(r.history[n-1].Ts) {
		r.log.Warn().Time("bar", b.Ts).Time("last", r.history[n-1].Ts).Msg("dropping duplicate or out-of-order bar")
		return false
	}
	return true
}

func (r *Runner) push(b signal.Bar) {
	r.history = append(r.history, b)
	if len(r.history) >= 2*r.maxHistory {
		keep := r.history[len(r.history)-r.maxHistory:]
		r.history = append(r.history[:0], keep...)
	}
}

func (r *Runner) window() []signal.Bar {
	if len(r.history) > r.maxHistory {
		return r.history[len(r.history)-r.maxHistory:]
	}
	return r.history
}

// Step ingests one closed bar. ok is false when the bar was dropped.
func (r *Runner) Step(ctx context.Context, b signal.Bar) (sig signal.Signal, ok bool, err error) {
	if !r.accept(b) {
		metrics.DroppedBarsTotal.WithLabelValues(r.symbol).Inc()
		return signal.Signal{}, false, nil
	}
	r.push(b)

	start := time.Now()
	side, next, err := r.strat.Evaluate(r.window(), r.state)
	metrics.EvalSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return signal.Signal{}, false, err
	}
	if d := next.Suppressed - r.state.Suppressed; d > 0 {
		metrics.SuppressedTotal.WithLabelValues(r.symbol).Add(float64(d))
	}
	r.state = next
	metrics.SignalsTotal.WithLabelValues(r.symbol, side.String()).Inc()

	sig = signal.Signal{Symbol: r.symbol, Side: side, Close: b.Close, Reason: r.strat.Name(), Ts: b.Ts}
	if side == signal.Hold {
		r.log.Debug().Time("bar", b.Ts).Float64("close", b.Close).Msg("hold")
		return sig, true, nil
	}
	if r.out != nil {
		if err := r.out.Emit(ctx, sig); err != nil {
			r.log.Warn().Err(err).Str("side", side.String()).Msg("sink emit failed")
		}
	}
	return sig, true, nil
}

// Run consumes bars until the channel closes or the context is canceled.
func (r *Runner) Run(ctx context.Context, in <-chan signal.Bar) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, open := <-in:
			if !open {
				return nil
			}
			if _, _, err := r.Step(ctx, b); err != nil {
				r.log.Error().Err(err).Time("bar", b.Ts).Msg("evaluate failed")
			}
		}
	}
}
