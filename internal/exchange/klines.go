package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"rangebot-go/internal/signal"
)

// HistorySource returns up to limit closed bars, oldest first.
type HistorySource interface {
	History(ctx context.Context, symbol string, step time.Duration, limit int) ([]signal.Bar, error)
}

const maxKlinesLimit = 1000

var binanceIntervals = map[time.Duration]string{
	time.Minute:          "1m",
	3 * time.Minute:      "3m",
	5 * time.Minute:      "5m",
	15 * time.Minute:     "15m",
	30 * time.Minute:     "30m",
	time.Hour:            "1h",
	2 * time.Hour:        "2h",
	4 * time.Hour:        "4h",
	6 * time.Hour:        "6h",
	8 * time.Hour:        "8h",
	12 * time.Hour:       "12h",
	24 * time.Hour:       "1d",
	3 * 24 * time.Hour:   "3d",
	7 * 24 * time.Hour:   "1w",
}

// BinanceInterval maps a bar duration onto the exchange's kline interval code.
func BinanceInterval(step time.Duration) (string, error) {
	code, ok := binanceIntervals[step]
	if !ok {
		return "", fmt.Errorf("interval %s not offered by binance", step)
	}
	return code, nil
}

// KlineClient fetches historical klines over REST, rate limited and behind a circuit breaker.
type KlineClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewKlineClient builds a client for baseURL allowing rps requests per second.
func NewKlineClient(baseURL, apiKey string, rps float64) *KlineClient {
	if rps <= 0 {
		rps = 2
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	st := gobreaker.Settings{
		Name:     "binance-klines",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &KlineClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(st),
		now:     time.Now,
	}
}

// History returns the trailing closed klines for symbol. The still-forming kline is dropped.
func (c *KlineClient) History(ctx context.Context, symbol string, step time.Duration, limit int) ([]signal.Bar, error) {
	interval, err := BinanceInterval(step)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxKlinesLimit {
		limit = maxKlinesLimit
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol, interval, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, interval, err)
	}
	return res.([]signal.Bar), nil
}

func (c *KlineClient) fetch(ctx context.Context, symbol, interval string, limit int) ([]signal.Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "rangebot-go/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	now := c.now()
	bars := make([]signal.Bar, 0, len(rows))
	for _, row := range rows {
		bar, closeTime, err := decodeKlineRow(row)
		if err != nil {
			return nil, err
		}
		if !closeTime.Before(now) {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// decodeKlineRow reads [openTime, open, high, low, close, volume, closeTime, ...].
func decodeKlineRow(row []json.RawMessage) (signal.Bar, time.Time, error) {
	if len(row) < 7 {
		return signal.Bar{}, time.Time{}, fmt.Errorf("kline row has %d fields", len(row))
	}
	var openMs, closeMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return signal.Bar{}, time.Time{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &closeMs); err != nil {
		return signal.Bar{}, time.Time{}, fmt.Errorf("close time: %w", err)
	}
	fields := make([]string, 5)
	for i := range fields {
		if err := json.Unmarshal(row[i+1], &fields[i]); err != nil {
			return signal.Bar{}, time.Time{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}
	vals, err := parseDecimals(fields...)
	if err != nil {
		return signal.Bar{}, time.Time{}, err
	}
	bar := signal.Bar{
		Ts:     time.UnixMilli(openMs).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}
	return bar, time.UnixMilli(closeMs).UTC(), nil
}
