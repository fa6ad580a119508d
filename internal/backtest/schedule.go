package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// periodKey maps a date to its rebalance period; a new key starts a new period
func periodKey(freq contracts.RebalanceFrequency, date time.Time) int {
	y, m := date.Year(), int(date.Month())
	switch freq {
	case contracts.RebalanceWeekly:
		wy, w := date.ISOWeek()
		return wy*100 + w
	case contracts.RebalanceMonthly:
		return y*12 + m
	case contracts.RebalanceQuarterly:
		return y*4 + (m-1)/3
	case contracts.RebalanceSemiannual:
		return y*2 + (m-1)/6
	default:
		return y
	}
}

// RebalanceDates returns the first trading date of every period.
// The first trading date always rebalances.
func RebalanceDates(freq contracts.RebalanceFrequency, days []time.Time) []time.Time {
	var out []time.Time
	for i, d := range days {
		if i == 0 || periodKey(freq, d) != periodKey(freq, days[i-1]) {
			out = append(out, d)
		}
	}
	return out
}

// priceBook caches full-period price series; every lookup reads only bars on or before the date
type priceBook struct {
	provider    contracts.DataProvider
	from, to    time.Time
	totalReturn bool
	series      map[string][]contracts.PriceBar
}

func newPriceBook(provider contracts.DataProvider, from, to time.Time, totalReturn bool) *priceBook {
	return &priceBook{
		provider:    provider,
		from:        from,
		to:          to,
		totalReturn: totalReturn,
		series:      make(map[string][]contracts.PriceBar),
	}
}

func (b *priceBook) load(ctx context.Context, company string) ([]contracts.PriceBar, error) {
	if bars, ok := b.series[company]; ok {
		return bars, nil
	}
	bars, err := b.provider.FetchPrices(ctx, company, b.from, b.to)
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", company, err)
	}
	b.series[company] = bars
	return bars, nil
}

// price returns the latest valuation price on or before date
func (b *priceBook) price(ctx context.Context, company string, date time.Time) (float64, bool, error) {
	bars, err := b.load(ctx, company)
	if err != nil {
		return 0, false, err
	}
	bars = contracts.BarsUntil(bars, date)
	if len(bars) == 0 {
		return 0, false, nil
	}
	last := bars[len(bars)-1]
	px := last.Close.InexactFloat64()
	if b.totalReturn {
		px = last.TotalReturnPrice()
	}
	return px, px > 0, nil
}

// prices looks up every company on date, skipping unpriced ones
func (b *priceBook) prices(ctx context.Context, companies []string, date time.Time) (map[string]float64, error) {
	out := make(map[string]float64, len(companies))
	for _, c := range companies {
		px, ok, err := b.price(ctx, c, date)
		if err != nil {
			return nil, err
		}
		if ok {
			out[c] = px
		}
	}
	return out, nil
}

// tradingCalendar returns the sorted trading dates within the period.
// Benchmark bar dates win; without them the union of every listed company's bar dates is used.
func tradingCalendar(ctx context.Context, provider contracts.DataProvider, book *priceBook, cfg *contracts.BacktestConfig) ([]time.Time, bool, error) {
	if cfg.Benchmark != "" {
		bars, err := book.load(ctx, cfg.Benchmark)
		if err != nil {
			return nil, false, err
		}
		if days := barDates(bars, cfg.PeriodStart, cfg.PeriodEnd); len(days) > 0 {
			return days, true, nil
		}
	}

	seen := make(map[string]bool)
	var ids []string
	for _, asOf := range []time.Time{cfg.PeriodStart, cfg.PeriodEnd} {
		universe, err := provider.FetchUniverse(ctx, asOf)
		if err != nil {
			return nil, false, fmt.Errorf("fetch universe: %w", err)
		}
		for _, c := range universe {
			if !seen[c.ID] {
				seen[c.ID] = true
				ids = append(ids, c.ID)
			}
		}
	}
	sort.Strings(ids)

	byUnix := make(map[int64]time.Time)
	for _, id := range ids {
		bars, err := book.load(ctx, id)
		if err != nil {
			return nil, false, err
		}
		for _, d := range barDates(bars, cfg.PeriodStart, cfg.PeriodEnd) {
			byUnix[d.Unix()] = d
		}
	}
	days := make([]time.Time, 0, len(byUnix))
	for _, d := range byUnix {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, false, nil
}

func barDates(bars []contracts.PriceBar, from, to time.Time) []time.Time {
	var out []time.Time
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b.Date)
	}
	return out
}
