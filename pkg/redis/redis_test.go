package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	limit := ClientRateLimit("127.0.0.1", 5, time.Second)

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), limit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, limit.Limit, remaining)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", TTLShort))

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMetricStore_Disabled(t *testing.T) {
	store := NewMetricStore(disabledClient(t), "test", 0)
	ctx := context.Background()
	key := contracts.MetricCacheKey("AAPL", "v1", time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC))

	m := contracts.NewMetricMap("AAPL", time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC))
	m.Set(contracts.MetricROE, contracts.Number(0.25))
	require.NoError(t, store.SetMetrics(ctx, key, m))

	got, found, err := store.GetMetrics(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
	assert.Equal(t, TTLDaily, store.ttl)
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"MetricsKey", MetricsKey("AAPL:v1:2024-06-28"), "metrics:AAPL:v1:2024-06-28"},
		{"ScreenKey", ScreenKey("abc123", "2024-06-28"), "screen:abc123:2024-06-28"},
		{"ClientRateLimit", ClientRateLimit("10.0.0.1", 10, time.Second).Key, "api:10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
