// Package exchange hosts connectors for centralized venues and bar sources.
package exchange

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rangebot-go/internal/metrics"
	"rangebot-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic bars (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams closed klines from Binance public websockets.
	ProviderBinance = "binance"
	// ProviderBinanceREST polls the Binance klines endpoint on a fixed cadence.
	ProviderBinanceREST = "binance_rest"
)

// Feed represents a pluggable market data stream for one symbol and bar interval.
type Feed struct {
	provider     string
	symbol       string
	step         time.Duration
	log          zerolog.Logger
	pollInterval time.Duration
	streamURL    string
	history      HistorySource
	historyLimit int
	stubStart    time.Time
	stubEvery    time.Duration
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultPollInterval = 5 * time.Minute
	defaultStreamURL    = "wss://stream.binance.com:9443"
	defaultStubEvery    = 500 * time.Millisecond
)

// WithPollInterval overrides the default polling cadence for HTTP-based feeds.
func WithPollInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithStreamURL points the websocket provider at a different host.
func WithStreamURL(u string) Option {
	return func(f *Feed) {
		if u != "" {
			f.streamURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHistory injects the REST source used by the polling provider.
func WithHistory(h HistorySource, limit int) Option {
	return func(f *Feed) {
		f.history = h
		if limit > 0 {
			f.historyLimit = limit
		}
	}
}

// WithStubClock fixes the first synthetic bar time and the wall-clock emit cadence.
func WithStubClock(start time.Time, every time.Duration) Option {
	return func(f *Feed) {
		f.stubStart = start
		if every > 0 {
			f.stubEvery = every
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol string, step time.Duration, log zerolog.Logger, opts ...Option) (*Feed, error) {
	if provider == "" {
		provider = ProviderStub
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("feed requires a symbol")
	}
	if step <= 0 {
		return nil, fmt.Errorf("feed requires a positive bar interval")
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		symbol:       symbol,
		step:         step,
		log:          log,
		pollInterval: defaultPollInterval,
		streamURL:    defaultStreamURL,
		historyLimit: 100,
		stubEvery:    defaultStubEvery,
	}
	for _, opt := range opts {
		opt(f)
	}
	switch f.provider {
	case ProviderStub, ProviderBinance:
	case ProviderBinanceREST:
		if f.history == nil {
			return nil, fmt.Errorf("%s feed requires a history source", f.provider)
		}
	default:
		return nil, fmt.Errorf("unknown feed provider %q", provider)
	}
	return f, nil
}

// Symbol returns the instrument this feed publishes.
func (f *Feed) Symbol() string { return f.symbol }

// Run pushes closed bars onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Bar) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	case ProviderBinanceREST:
		return f.runPolling(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *Feed) emit(ctx context.Context, out chan<- signal.Bar, bar signal.Bar) error {
	select {
	case out <- bar:
		metrics.BarsTotal.WithLabelValues(f.symbol).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Bar) error {
	ticker := time.NewTicker(f.stubEvery)
	defer ticker.Stop()

	ts := f.stubStart
	if ts.IsZero() {
		ts = time.Now().UTC().Truncate(24 * time.Hour)
	}
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.emit(ctx, out, StubBar(ts, i)); err != nil {
				return err
			}
			ts = ts.Add(f.step)
		}
	}
}

// StubBar is the i-th synthetic bar: a slow sine swing with drift, wide enough to break
// out of an opening range every few sessions.
func StubBar(ts time.Time, i int) signal.Bar {
	price := func(k int) float64 {
		return 100 + 4*math.Sin(float64(k)/9) + 0.02*float64(k)
	}
	open := price(i - 1)
	cls := price(i)
	return signal.Bar{
		Ts:     ts,
		Open:   open,
		High:   math.Max(open, cls) + 0.25,
		Low:    math.Min(open, cls) - 0.25,
		Close:  cls,
		Volume: 10 + float64(i%7),
	}
}
