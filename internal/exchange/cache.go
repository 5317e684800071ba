package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rangebot-go/internal/signal"
)

// CachingHistory decorates a HistorySource with Redis. A nil client bypasses the cache.
type CachingHistory struct {
	inner     HistorySource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingHistory wraps inner. ttl defaults to one minute and namespace to "klines".
func NewCachingHistory(rdb *redis.Client, ttl time.Duration, inner HistorySource, namespace string) *CachingHistory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if namespace == "" {
		namespace = "klines"
	}
	return &CachingHistory{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace}
}

// History serves from cache when possible and stores fresh results on a miss.
func (c *CachingHistory) History(ctx context.Context, symbol string, step time.Duration, limit int) ([]signal.Bar, error) {
	if c.rdb == nil {
		return c.inner.History(ctx, symbol, step, limit)
	}
	key := c.cacheKey(symbol, step, limit)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []signal.Bar
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.History(ctx, symbol, step, limit)
	if err != nil {
		return nil, err
	}
	// best effort
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return out, nil
}

func (c *CachingHistory) cacheKey(symbol string, step time.Duration, limit int) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.namespace, safeKey(symbol), safeKey(step.String()), limit)
}

func safeKey(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, ":", "_")
}
