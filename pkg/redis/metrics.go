package redis

import (
	"context"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// MetricStore implements contracts.MetricCache on top of Cache.
// MetricMaps are immutable per (company, metric set, as-of), so entries only expire.
type MetricStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewMetricStore creates a metric cache with the given TTL (0 = TTLDaily)
func NewMetricStore(client *Client, prefix string, ttl time.Duration) *MetricStore {
	if ttl <= 0 {
		ttl = TTLDaily
	}
	return &MetricStore{cache: NewCache(client, prefix), ttl: ttl}
}

// GetMetrics returns a cached MetricMap
func (s *MetricStore) GetMetrics(ctx context.Context, key string) (*contracts.MetricMap, bool, error) {
	var m contracts.MetricMap
	found, err := s.cache.Get(ctx, MetricsKey(key), &m)
	if err != nil || !found {
		return nil, false, err
	}
	return &m, true, nil
}

// SetMetrics stores a MetricMap
func (s *MetricStore) SetMetrics(ctx context.Context, key string, m *contracts.MetricMap) error {
	return s.cache.Set(ctx, MetricsKey(key), m, s.ttl)
}
