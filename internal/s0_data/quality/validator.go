package quality

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// Coverage keys
const (
	CoveragePrice        = "price"
	CoverageVolume       = "volume"
	CoverageMarketCap    = "market_cap"
	CoverageFundamentals = "fundamentals"
)

// QualityGate checks that a provider can serve a screen as of a date
type QualityGate struct {
	provider contracts.DataProvider
	config   Config
	logger   *logger.Logger
}

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage        float64       `yaml:"min_price_coverage"`        // 0.95
	MinVolumeCoverage       float64       `yaml:"min_volume_coverage"`       // 0.90
	MinMarketCapCoverage    float64       `yaml:"min_market_cap_coverage"`   // 0.80
	MinFundamentalsCoverage float64       `yaml:"min_fundamentals_coverage"` // 0.80
	PriceStaleness          time.Duration `yaml:"price_staleness"`           // 7d
	FundamentalsStaleness   time.Duration `yaml:"fundamentals_staleness"`    // ~15 months
	Workers                 int           `yaml:"workers"`
}

// DefaultConfig returns the thresholds used by the nightly job
func DefaultConfig() Config {
	return Config{
		MinPriceCoverage:        0.95,
		MinVolumeCoverage:       0.90,
		MinMarketCapCoverage:    0.80,
		MinFundamentalsCoverage: 0.80,
		PriceStaleness:          7 * 24 * time.Hour,
		FundamentalsStaleness:   456 * 24 * time.Hour,
		Workers:                 8,
	}
}

// Report is the outcome of one gate check
type Report struct {
	Date           time.Time          `json:"date"`
	TotalCompanies int                `json:"total_companies"`
	ValidCompanies int                `json:"valid_companies"`
	Coverage       map[string]float64 `json:"coverage"`
	Score          float64            `json:"score"`
	Passed         bool               `json:"passed"`
	Failures       []string           `json:"failures,omitempty"`
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(provider contracts.DataProvider, config Config, log *logger.Logger) *QualityGate {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &QualityGate{
		provider: provider,
		config:   config,
		logger:   log.WithComponent("quality"),
	}
}

type companyCoverage struct {
	price        bool
	volume       bool
	marketCap    bool
	fundamentals bool
}

func (c companyCoverage) complete() bool {
	return c.price && c.volume && c.marketCap && c.fundamentals
}

// Check validates data coverage for a given date
// ⭐ SSOT: S0 → S1 품질 검증
func (g *QualityGate) Check(ctx context.Context, date time.Time) (*Report, error) {
	// 1. 전체 종목
	companies, err := g.provider.FetchUniverse(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}

	// 2. 종목별 커버리지
	results := make([]companyCoverage, len(companies))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.config.Workers)
	for i, c := range companies {
		eg.Go(func() error {
			cov, err := g.checkCompany(egCtx, c.ID, date)
			if err != nil {
				return fmt.Errorf("%s: %w", c.ID, err)
			}
			results[i] = cov
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Date:           date,
		TotalCompanies: len(companies),
		Coverage:       aggregate(results),
	}
	for _, r := range results {
		if r.complete() {
			report.ValidCompanies++
		}
	}

	// 3. 품질 점수
	report.Score = calculateScore(report.Coverage)
	report.Failures = g.failures(report.Coverage)
	report.Passed = len(companies) > 0 && len(report.Failures) == 0

	g.logger.WithFields(map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"total":  report.TotalCompanies,
		"valid":  report.ValidCompanies,
		"score":  report.Score,
		"passed": report.Passed,
	}).Info("Quality gate checked")

	return report, nil
}

func (g *QualityGate) checkCompany(ctx context.Context, company string, date time.Time) (companyCoverage, error) {
	var cov companyCoverage

	bars, err := g.provider.FetchPrices(ctx, company, date.Add(-g.config.PriceStaleness), date)
	if err != nil {
		return cov, fmt.Errorf("fetch prices: %w", err)
	}
	var last *contracts.PriceBar
	if len(bars) > 0 {
		last = &bars[len(bars)-1]
		cov.price = last.Close.IsPositive()
		cov.volume = last.Volume > 0
	}

	history, err := g.provider.FetchFundamentals(ctx, company, date)
	if err != nil {
		return cov, fmt.Errorf("fetch fundamentals: %w", err)
	}
	if n := len(history); n > 0 {
		latest := history[n-1]
		cov.fundamentals = !latest.PeriodEnd.Before(date.Add(-g.config.FundamentalsStaleness))
		cov.marketCap = cov.price && latest.SharesOutstanding.Valid && latest.SharesOutstanding.Decimal.IsPositive()
	}
	return cov, nil
}

func aggregate(results []companyCoverage) map[string]float64 {
	coverage := map[string]float64{
		CoveragePrice:        0,
		CoverageVolume:       0,
		CoverageMarketCap:    0,
		CoverageFundamentals: 0,
	}
	if len(results) == 0 {
		return coverage
	}
	for _, r := range results {
		if r.price {
			coverage[CoveragePrice]++
		}
		if r.volume {
			coverage[CoverageVolume]++
		}
		if r.marketCap {
			coverage[CoverageMarketCap]++
		}
		if r.fundamentals {
			coverage[CoverageFundamentals]++
		}
	}
	n := float64(len(results))
	for k := range coverage {
		coverage[k] /= n
	}
	return coverage
}

// failures lists every coverage below its threshold, ordered by key
func (g *QualityGate) failures(coverage map[string]float64) []string {
	thresholds := map[string]float64{
		CoveragePrice:        g.config.MinPriceCoverage,
		CoverageVolume:       g.config.MinVolumeCoverage,
		CoverageMarketCap:    g.config.MinMarketCapCoverage,
		CoverageFundamentals: g.config.MinFundamentalsCoverage,
	}
	var out []string
	for key, threshold := range thresholds {
		if coverage[key] < threshold {
			out = append(out, fmt.Sprintf("%s coverage %.2f < %.2f", key, coverage[key], threshold))
		}
	}
	sort.Strings(out)
	return out
}

// 가중치 (합계 = 1.0)
var scoreWeights = map[string]float64{
	CoveragePrice:        0.35, // 가격 데이터 필수
	CoverageVolume:       0.25,
	CoverageMarketCap:    0.20,
	CoverageFundamentals: 0.20,
}

// calculateScore calculates overall quality score using weighted average
func calculateScore(coverage map[string]float64) float64 {
	score := 0.0
	for _, key := range []string{CoveragePrice, CoverageVolume, CoverageMarketCap, CoverageFundamentals} {
		score += coverage[key] * scoreWeights[key]
	}
	return score
}
