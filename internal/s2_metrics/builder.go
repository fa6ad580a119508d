package s2_metrics

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// MetricSetVersion names the metric set in cache keys; bump when formulas change
const MetricSetVersion = "v1"

// DefaultPriceLookbackDays covers SMA-200 and 12-month momentum warm-up
const DefaultPriceLookbackDays = 400

// BuilderOptions tunes a Builder
type BuilderOptions struct {
	Workers           int                   // 0 = runtime.NumCPU()
	PriceLookbackDays int                   // 0 = DefaultPriceLookbackDays
	Cache             contracts.MetricCache // optional
}

// Builder produces one MetricMap per company for an as-of date
// ⭐ SSOT: 지표 생성 오케스트레이션은 여기서만
type Builder struct {
	provider contracts.DataProvider
	calc     *Calculator
	cache    contracts.MetricCache

	workers  int
	lookback int

	logger *logger.Logger
}

// NewBuilder creates a new metric builder
func NewBuilder(provider contracts.DataProvider, calc *Calculator, opts BuilderOptions, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	lookback := opts.PriceLookbackDays
	if lookback <= 0 {
		lookback = DefaultPriceLookbackDays
	}
	return &Builder{
		provider: provider,
		calc:     calc,
		cache:    opts.Cache,
		workers:  workers,
		lookback: lookback,
		logger:   log,
	}
}

// BuildResult holds the computed maps and the companies that could not be computed
type BuildResult struct {
	Maps    map[string]*contracts.MetricMap // by company ID
	Omitted []contracts.OmittedCompany      // sorted by company ID
}

// Build computes a MetricMap for every company of the universe as of asOf.
// Per-company failures omit that company; only cancellation fails the build.
func (b *Builder) Build(ctx context.Context, universe []contracts.Company, asOf time.Time) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{Maps: make(map[string]*contracts.MetricMap, len(universe))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for _, company := range universe {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			m, err := b.buildOne(gctx, company, asOf)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				b.logger.WithFields(map[string]interface{}{
					"company": company.ID,
					"error":   err.Error(),
				}).Warn("Omitting company from metric build")

				mu.Lock()
				result.Omitted = append(result.Omitted, contracts.OmittedCompany{Company: company.ID, Reason: err.Error()})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			result.Maps[company.ID] = m
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Omitted, func(i, j int) bool {
		return result.Omitted[i].Company < result.Omitted[j].Company
	})

	b.logger.WithFields(map[string]interface{}{
		"as_of":    asOf.Format("2006-01-02"),
		"total":    len(universe),
		"computed": len(result.Maps),
		"omitted":  len(result.Omitted),
		"duration": time.Since(start).String(),
	}).Info("Metric build completed")

	return result, nil
}

// BuildOne computes a single company's MetricMap
func (b *Builder) BuildOne(ctx context.Context, company contracts.Company, asOf time.Time) (*contracts.MetricMap, error) {
	return b.buildOne(ctx, company, asOf)
}

func (b *Builder) buildOne(ctx context.Context, company contracts.Company, asOf time.Time) (*contracts.MetricMap, error) {
	key := contracts.MetricCacheKey(company.ID, MetricSetVersion, asOf)
	if b.cache != nil {
		cached, ok, err := b.cache.GetMetrics(ctx, key)
		if err != nil {
			b.logger.WithError(err).WithField("key", key).Debug("Metric cache read failed")
		} else if ok {
			return cached.Clone(), nil
		}
	}

	history, err := b.provider.FetchFundamentals(ctx, company.ID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fundamentals: %w", err)
	}
	if len(history) == 0 {
		return nil, &contracts.MissingDataError{Company: company.ID, Reason: "no fundamental records"}
	}

	bars, err := b.provider.FetchPrices(ctx, company.ID, asOf.AddDate(0, 0, -b.lookback), asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	bars = contracts.BarsUntil(bars, asOf)

	var last *contracts.PriceBar
	if len(bars) > 0 {
		last = &bars[len(bars)-1]
	}

	m, err := b.calc.Compute(history, last, asOf)
	if err != nil {
		return nil, err
	}
	m.Company = company.ID

	for name, v := range TechnicalSnapshot(bars) {
		m.Set(name, v)
	}
	m.Set(contracts.MetricSector, contracts.Text(company.Sector))
	m.Set(contracts.MetricIndustry, contracts.Text(company.Industry))

	if b.cache != nil {
		if err := b.cache.SetMetrics(ctx, key, m.Clone()); err != nil {
			b.logger.WithError(err).WithField("key", key).Warn("Metric cache write failed")
		}
	}

	return m, nil
}
