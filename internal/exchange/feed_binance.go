package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"rangebot-go/internal/signal"
)

type binanceKlineEvent struct {
	Event  string       `json:"e"`
	Symbol string       `json:"s"`
	Kline  binanceKline `json:"k"`
}

type binanceKline struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Closed    bool   `json:"x"`
}

func (k binanceKline) bar() (signal.Bar, error) {
	vals, err := parseDecimals(k.Open, k.High, k.Low, k.Close, k.Volume)
	if err != nil {
		return signal.Bar{}, err
	}
	return signal.Bar{
		Ts:     time.UnixMilli(k.OpenTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseDecimals(raw ...string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		out[i] = d.InexactFloat64()
	}
	return out, nil
}

func (f *Feed) runBinance(ctx context.Context, out chan<- signal.Bar) error {
	interval, err := BinanceInterval(f.step)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/ws/%s@kline_%s", f.streamURL, strings.ToLower(f.symbol), interval)
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeBinanceStream(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Dur("backoff", backoff).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, out chan<- signal.Bar) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Str("symbol", f.symbol).Dur("interval", f.step).Msg("connected market data feed")

	// klines arrive every ~2s, a silent minute means the stream is dead
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()
	go func() {
		<-pingCtx.Done()
		// unblock ReadMessage on shutdown
		conn.SetReadDeadline(time.Now())
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var ev binanceKlineEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		if ev.Event != "kline" || !ev.Kline.Closed {
			continue
		}
		bar, err := ev.Kline.bar()
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid kline from binance")
			continue
		}
		if err := f.emit(ctx, out, bar); err != nil {
			return err
		}
	}
}

func (f *Feed) runPolling(ctx context.Context, out chan<- signal.Bar) error {
	var last time.Time
	poll := func() error {
		bars, err := f.history.History(ctx, f.symbol, f.step, f.historyLimit)
		if err != nil {
			return err
		}
		for _, bar := range bars {
			if !bar.Ts.After(last) {
				continue
			}
			if err := f.emit(ctx, out, bar); err != nil {
				return err
			}
			last = bar.Ts
		}
		return nil
	}

	if err := poll(); err != nil && !errors.Is(err, context.Canceled) {
		f.log.Warn().Err(err).Msg("initial klines poll failed")
	}
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := poll(); err != nil && !errors.Is(err, context.Canceled) {
				f.log.Warn().Err(err).Msg("klines poll failed")
			}
		}
	}
}
