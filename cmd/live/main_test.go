package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangebot-go/internal/config"
	"rangebot-go/internal/exchange"
)

func TestPollingFeedBypassesKlineCache(t *testing.T) {
	cfg := config.Default()
	cfg.Feed.Provider = exchange.ProviderBinanceREST
	cfg.Cache.RedisAddr = "localhost:6379"
	cfg.Cache.TTLSecs = 3600

	seed, poll := historySources(cfg)
	require.NotNil(t, seed)
	require.NotNil(t, poll)

	_, cached := seed.(*exchange.CachingHistory)
	assert.True(t, cached, "seed should read through redis")
	_, direct := poll.(*exchange.KlineClient)
	assert.True(t, direct, "polling must hit the klines endpoint directly")
}
