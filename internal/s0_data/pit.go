package s0_data

import (
	"context"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// PointInTime wraps a provider so that no fetch can see past asOf.
// Backtests hand one to the screener per rebalance date.
type PointInTime struct {
	inner contracts.DataProvider
	asOf  time.Time
}

// NewPointInTime clamps every query of inner to asOf
func NewPointInTime(inner contracts.DataProvider, asOf time.Time) *PointInTime {
	return &PointInTime{inner: inner, asOf: asOf}
}

// AsOf returns the clamp date
func (p *PointInTime) AsOf() time.Time { return p.asOf }

func (p *PointInTime) clamp(t time.Time) time.Time {
	if t.After(p.asOf) {
		return p.asOf
	}
	return t
}

func (p *PointInTime) FetchUniverse(ctx context.Context, asOf time.Time) ([]contracts.Company, error) {
	return p.inner.FetchUniverse(ctx, p.clamp(asOf))
}

func (p *PointInTime) FetchFundamentals(ctx context.Context, company string, asOf time.Time) ([]contracts.FundamentalRecord, error) {
	asOf = p.clamp(asOf)
	history, err := p.inner.FetchFundamentals(ctx, company, asOf)
	if err != nil {
		return nil, err
	}
	out := history[:0:0]
	for _, rec := range history {
		if !rec.AvailableAt().After(asOf) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (p *PointInTime) FetchPrices(ctx context.Context, company string, from, to time.Time) ([]contracts.PriceBar, error) {
	to = p.clamp(to)
	if from.After(to) {
		return []contracts.PriceBar{}, nil
	}
	bars, err := p.inner.FetchPrices(ctx, company, from, to)
	if err != nil {
		return nil, err
	}
	return contracts.BarsUntil(bars, to), nil
}
