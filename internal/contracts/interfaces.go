package contracts

import (
	"context"
	"time"
)

// DataProvider is the read-only, point-in-time data collaborator.
// ⭐ SSOT: 코어가 데이터에 접근하는 유일한 경로
//
// A query as of T must never return information not available by T.
type DataProvider interface {
	// FetchUniverse lists companies listed as of asOf
	FetchUniverse(ctx context.Context, asOf time.Time) ([]Company, error)
	// FetchFundamentals returns a company's records available as of asOf
	FetchFundamentals(ctx context.Context, company string, asOf time.Time) ([]FundamentalRecord, error)
	// FetchPrices returns date-ordered bars with from <= date <= to
	FetchPrices(ctx context.Context, company string, from, to time.Time) ([]PriceBar, error)
}

// MetricCache stores computed MetricMaps keyed by (company, metric set, as-of)
type MetricCache interface {
	GetMetrics(ctx context.Context, key string) (*MetricMap, bool, error)
	SetMetrics(ctx context.Context, key string, m *MetricMap) error
}

// MetricCacheKey builds the cache key for one computation
func MetricCacheKey(company, metricSet string, asOf time.Time) string {
	return company + ":" + metricSet + ":" + asOf.Format("2006-01-02")
}
