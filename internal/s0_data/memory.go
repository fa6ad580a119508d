package s0_data

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// Listing is a company with its listing window
type Listing struct {
	contracts.Company
	ListedOn   *time.Time `json:"listed_on,omitempty"`
	DelistedOn *time.Time `json:"delisted_on,omitempty"`
}

// ListedAt reports whether the company trades on date
func (l *Listing) ListedAt(date time.Time) bool {
	if l.ListedOn != nil && l.ListedOn.After(date) {
		return false
	}
	if l.DelistedOn != nil && !l.DelistedOn.After(date) {
		return false
	}
	return true
}

// MemoryProvider is an in-memory DataProvider, filled from a snapshot or by tests
// ⭐ SSOT: 스냅샷 기반 데이터 제공은 여기서만
type MemoryProvider struct {
	mu           sync.RWMutex
	listings     map[string]*Listing
	fundamentals map[string][]contracts.FundamentalRecord
	prices       map[string][]contracts.PriceBar
}

// NewMemoryProvider creates an empty provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		listings:     make(map[string]*Listing),
		fundamentals: make(map[string][]contracts.FundamentalRecord),
		prices:       make(map[string][]contracts.PriceBar),
	}
}

// AddCompany registers or replaces a listing
func (p *MemoryProvider) AddCompany(l Listing) error {
	if l.ID == "" {
		return fmt.Errorf("company id is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listings[l.ID] = &l
	return nil
}

// AddFundamentals appends records; (company, period_end, period_type) must stay unique
func (p *MemoryProvider) AddFundamentals(records ...contracts.FundamentalRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	byCompany := make(map[string][]contracts.FundamentalRecord)
	for _, rec := range records {
		if rec.Company == "" {
			return fmt.Errorf("fundamental record without company")
		}
		byCompany[rec.Company] = append(byCompany[rec.Company], rec)
	}

	merged := make(map[string][]contracts.FundamentalRecord, len(byCompany))
	for company, recs := range byCompany {
		history := append(append([]contracts.FundamentalRecord{}, p.fundamentals[company]...), recs...)
		if err := contracts.ValidateHistory(history); err != nil {
			return fmt.Errorf("%s: %w", company, err)
		}
		contracts.SortHistory(history)
		merged[company] = history
	}
	for company, history := range merged {
		p.fundamentals[company] = history
	}
	return nil
}

// AddPrices merges bars; a bar for an existing date replaces it
func (p *MemoryProvider) AddPrices(bars ...contracts.PriceBar) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	byCompany := make(map[string]map[int64]contracts.PriceBar)
	for _, bar := range bars {
		if bar.Company == "" {
			return fmt.Errorf("price bar without company")
		}
		if byCompany[bar.Company] == nil {
			byCompany[bar.Company] = make(map[int64]contracts.PriceBar)
			for _, existing := range p.prices[bar.Company] {
				byCompany[bar.Company][existing.Date.Unix()] = existing
			}
		}
		byCompany[bar.Company][bar.Date.Unix()] = bar
	}

	for company, byDate := range byCompany {
		series := make([]contracts.PriceBar, 0, len(byDate))
		for _, bar := range byDate {
			series = append(series, bar)
		}
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		p.prices[company] = series
	}
	return nil
}

// Companies lists every registered company, ordered by ID
func (p *MemoryProvider) Companies() []Listing {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Listing, 0, len(p.listings))
	for _, l := range p.listings {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FetchUniverse lists companies listed as of asOf, ordered by ID
func (p *MemoryProvider) FetchUniverse(ctx context.Context, asOf time.Time) ([]contracts.Company, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]contracts.Company, 0, len(p.listings))
	for _, l := range p.listings {
		if l.ListedAt(asOf) {
			out = append(out, l.Company)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FetchFundamentals returns records available as of asOf
func (p *MemoryProvider) FetchFundamentals(ctx context.Context, company string, asOf time.Time) ([]contracts.FundamentalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	history := p.fundamentals[company]
	out := make([]contracts.FundamentalRecord, 0, len(history))
	for _, rec := range history {
		if !rec.AvailableAt().After(asOf) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FetchPrices returns bars with from <= date <= to
func (p *MemoryProvider) FetchPrices(ctx context.Context, company string, from, to time.Time) ([]contracts.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	series := p.prices[company]
	lo := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(from) })
	hi := sort.Search(len(series), func(i int) bool { return series[i].Date.After(to) })
	if lo >= hi {
		return []contracts.PriceBar{}, nil
	}
	out := make([]contracts.PriceBar, hi-lo)
	copy(out, series[lo:hi])
	return out, nil
}
