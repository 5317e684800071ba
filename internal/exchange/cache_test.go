package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"rangebot-go/internal/signal"
)

type historyFunc func(ctx context.Context, symbol string, step time.Duration, limit int) ([]signal.Bar, error)

func (f historyFunc) History(ctx context.Context, symbol string, step time.Duration, limit int) ([]signal.Bar, error) {
	return f(ctx, symbol, step, limit)
}

func cachedBars() []signal.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return []signal.Bar{StubBar(start, 0), StubBar(start.Add(15*time.Minute), 1)}
}

func TestNewCachingHistoryDefaults(t *testing.T) {
	c := NewCachingHistory(nil, 0, historyFunc(nil), "")
	if c.ttl != time.Minute {
		t.Errorf("expected default ttl, got %v", c.ttl)
	}
	if c.namespace != "klines" {
		t.Errorf("expected default namespace, got %q", c.namespace)
	}
	if got := c.cacheKey("BTC:USDT", 15*time.Minute, 100); got != "klines:BTC_USDT:15m0s:100" {
		t.Errorf("unexpected key %s", got)
	}
}

func TestCachingHistoryNilRedis(t *testing.T) {
	called := false
	inner := historyFunc(func(context.Context, string, time.Duration, int) ([]signal.Bar, error) {
		called = true
		return cachedBars(), nil
	})
	bars, err := NewCachingHistory(nil, time.Minute, inner, "").History(context.Background(), "BTCUSDT", 15*time.Minute, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || len(bars) != 2 {
		t.Fatalf("expected pass-through, called=%v bars=%d", called, len(bars))
	}
}

func TestCachingHistoryHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload, _ := json.Marshal(cachedBars())
	mock.ExpectGet("klines:BTCUSDT:15m0s:100").SetVal(string(payload))

	inner := historyFunc(func(context.Context, string, time.Duration, int) ([]signal.Bar, error) {
		t.Error("inner source should not be called on cache hit")
		return nil, nil
	})
	bars, err := NewCachingHistory(rdb, time.Minute, inner, "").History(context.Background(), "BTCUSDT", 15*time.Minute, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 || !bars[1].Ts.Equal(cachedBars()[1].Ts) {
		t.Fatalf("unexpected cached bars %+v", bars)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingHistoryMissStores(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload, _ := json.Marshal(cachedBars())
	mock.ExpectGet("klines:BTCUSDT:15m0s:100").RedisNil()
	mock.ExpectSet("klines:BTCUSDT:15m0s:100", payload, time.Minute).SetVal("OK")

	inner := historyFunc(func(context.Context, string, time.Duration, int) ([]signal.Bar, error) {
		return cachedBars(), nil
	})
	if _, err := NewCachingHistory(rdb, time.Minute, inner, "").History(context.Background(), "BTCUSDT", 15*time.Minute, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingHistoryCorruptedEntry(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload, _ := json.Marshal(cachedBars())
	mock.ExpectGet("klines:BTCUSDT:15m0s:100").SetVal("not json")
	mock.ExpectDel("klines:BTCUSDT:15m0s:100").SetVal(1)
	mock.ExpectSet("klines:BTCUSDT:15m0s:100", payload, time.Minute).SetVal("OK")

	inner := historyFunc(func(context.Context, string, time.Duration, int) ([]signal.Bar, error) {
		return cachedBars(), nil
	})
	bars, err := NewCachingHistory(rdb, time.Minute, inner, "").History(context.Background(), "BTCUSDT", 15*time.Minute, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected fallback bars, got %d", len(bars))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingHistoryInnerError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	boom := errors.New("exchange down")
	mock.ExpectGet("klines:BTCUSDT:15m0s:100").RedisNil()
	inner := historyFunc(func(context.Context, string, time.Duration, int) ([]signal.Bar, error) {
		return nil, boom
	})
	_, err := NewCachingHistory(rdb, time.Minute, inner, "").History(context.Background(), "BTCUSDT", 15*time.Minute, 100)
	if !errors.Is(err, boom) {
		t.Fatalf("expected inner error, got %v", err)
	}
}
