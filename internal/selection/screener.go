package selection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/s1_universe"
	"github.com/lalith1997/quantscreen/internal/s2_metrics"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// MetricBuilder computes the per-company MetricMaps for a universe
type MetricBuilder interface {
	Build(ctx context.Context, universe []contracts.Company, asOf time.Time) (*s2_metrics.BuildResult, error)
}

// Runner orchestrates metric building, ranking, exclusion, filtering and sorting
// ⭐ SSOT: 스크리닝 실행은 여기서만
type Runner struct {
	builder MetricBuilder
	ranker  *Ranker
	logger  *logger.Logger
}

// NewRunner creates a new screener runner
func NewRunner(builder MetricBuilder, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		builder: builder,
		ranker:  NewRanker(log),
		logger:  log,
	}
}

// Run screens universe as of asOf.
// Identical inputs yield identical Results; only ExecutionTimeMS varies.
func (r *Runner) Run(ctx context.Context, screen contracts.Screen, universe []contracts.Company, asOf time.Time) (*contracts.ScreenerResponse, error) {
	start := time.Now()

	if err := ValidateScreen(screen); err != nil {
		return nil, err
	}
	screen = screen.WithDefaults()

	companies := dedupe(universe)

	// 1. per-company metrics
	built, err := r.builder.Build(ctx, companies, asOf)
	if err != nil {
		return nil, fmt.Errorf("build metrics: %w", err)
	}

	// 2. cross-sectional ranks (barrier: every map is available here)
	sectors := make(map[string]string, len(companies))
	for _, c := range companies {
		sectors[c.ID] = strings.TrimSpace(c.Sector)
	}
	r.ranker.Apply(built.Maps, sectors, RankRequests(screen))

	// 3. exclusion policy, then filters
	policy := s1_universe.PolicyFromScreen(screen)
	qualified := make([]contracts.ScreenerResult, 0, len(built.Maps))
	excluded := 0
	for _, c := range companies {
		m, ok := built.Maps[c.ID]
		if !ok {
			continue
		}
		mcap := floatPtr(m.Get(contracts.MetricMarketCap))
		if keep, _ := policy.Exclude(c, mcap); !keep {
			excluded++
			continue
		}
		if !Evaluate(screen, m) {
			continue
		}
		qualified = append(qualified, contracts.ScreenerResult{
			Company:   c.ID,
			Name:      c.Name,
			Sector:    c.Sector,
			MarketCap: mcap,
			Metrics:   m,
		})
	}

	// 4. sort with a fixed tie-break
	sortResults(qualified, screen.SortBy, screen.SortOrder)

	// 5. offset + limit
	total := len(qualified)
	page := paginate(qualified, screen.Offset, screen.Limit)
	for i := range page {
		page[i].Rank = screen.Offset + i + 1
	}

	resp := &contracts.ScreenerResponse{
		Results:         page,
		TotalCount:      total,
		FiltersApplied:  screen.Describe(),
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		AsOf:            asOf,
		Omitted:         built.Omitted,
	}

	r.logger.WithFields(map[string]interface{}{
		"screen":    screen.Name,
		"as_of":     asOf.Format("2006-01-02"),
		"universe":  len(companies),
		"omitted":   len(built.Omitted),
		"excluded":  excluded,
		"qualified": total,
		"returned":  len(page),
	}).Info("Screen completed")

	return resp, nil
}

// dedupe keeps the first occurrence of each company and orders by ID
func dedupe(universe []contracts.Company) []contracts.Company {
	seen := make(map[string]bool, len(universe))
	out := make([]contracts.Company, 0, len(universe))
	for _, c := range universe {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// sortResults orders by the sort metric; missing values go last in both directions.
// Ties: market cap desc (missing last), then company ID asc.
func sortResults(results []contracts.ScreenerResult, sortBy string, order contracts.SortOrder) {
	desc := order == contracts.SortDesc
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if c := compareValues(a.Metrics.Get(sortBy), b.Metrics.Get(sortBy), desc); c != 0 {
			return c < 0
		}
		if c := compareCapDesc(a.MarketCap, b.MarketCap); c != 0 {
			return c < 0
		}
		return a.Company < b.Company
	})
}

// compareValues returns <0 when a sorts before b
func compareValues(a, b contracts.MetricValue, desc bool) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return 1
	case b.IsNull():
		return -1
	}

	c := 0
	switch a.Kind() {
	case contracts.KindNumber:
		x, _ := a.Float()
		y, okY := b.Float()
		if !okY {
			return 0
		}
		c = cmpFloat(x, y)
	case contracts.KindFlag:
		x, _ := a.Bool()
		y, okY := b.Bool()
		if !okY {
			return 0
		}
		c = cmpFloat(boolToFloat(x), boolToFloat(y))
	case contracts.KindText:
		x, _ := a.Str()
		y, okY := b.Str()
		if !okY {
			return 0
		}
		c = strings.Compare(strings.ToLower(x), strings.ToLower(y))
	}
	if desc {
		return -c
	}
	return c
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func paginate(results []contracts.ScreenerResult, offset, limit int) []contracts.ScreenerResult {
	if offset >= len(results) {
		return []contracts.ScreenerResult{}
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return results[offset:end]
}

func floatPtr(v contracts.MetricValue) *float64 {
	if f, ok := v.Float(); ok {
		return &f
	}
	return nil
}
