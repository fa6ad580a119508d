package selection

import (
	"math"
	"sort"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// Percentiles converts raw values into percentile ranks (1-100).
// rank = ceil(100 * count(values <= v) / N); the largest value ranks 100 and ties share a rank.
// Nil and non-finite values are excluded from the population and receive no rank.
func Percentiles(values map[string]*float64) map[string]int {
	population := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			population = append(population, *v)
		}
	}
	out := make(map[string]int, len(population))
	if len(population) == 0 {
		return out
	}
	sort.Float64s(population)

	n := len(population)
	for id, v := range values {
		if !finite(v) {
			continue
		}
		x := *v
		atOrBelow := sort.Search(n, func(i int) bool { return population[i] > x })
		out[id] = (100*atOrBelow + n - 1) / n
	}
	return out
}

// PercentilesWithin ranks each cohort independently.
// Companies without a cohort key receive no rank.
func PercentilesWithin(values map[string]*float64, cohorts map[string]string) map[string]int {
	groups := make(map[string]map[string]*float64)
	for id, v := range values {
		key := cohorts[id]
		if key == "" {
			continue
		}
		if groups[key] == nil {
			groups[key] = make(map[string]*float64)
		}
		groups[key][id] = v
	}

	out := make(map[string]int, len(values))
	for _, group := range groups {
		for id, r := range Percentiles(group) {
			out[id] = r
		}
	}
	return out
}

// MagicFormulaEntry is one company's combined Magic Formula position
type MagicFormulaEntry struct {
	Company string
	Score   int // rank(earnings yield) + rank(return on capital); lower is better
	Rank    int // 1 = best
}

// MagicFormula ranks earnings yield and return on capital in descending order
// (1 = highest, competition ranking on ties) and sums the two ranks.
// Only companies with both components take part.
// Final order: score asc, market cap desc (missing last), company ID asc.
func MagicFormula(earningsYield, returnOnCapital, marketCap map[string]*float64) []MagicFormulaEntry {
	ids := make([]string, 0, len(earningsYield))
	for id, ey := range earningsYield {
		if finite(ey) && finite(returnOnCapital[id]) {
			ids = append(ids, id)
		}
	}

	eyRank := descendingRanks(ids, earningsYield)
	rocRank := descendingRanks(ids, returnOnCapital)

	entries := make([]MagicFormulaEntry, len(ids))
	for i, id := range ids {
		entries[i] = MagicFormulaEntry{Company: id, Score: eyRank[id] + rocRank[id]}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if c := compareCapDesc(marketCap[a.Company], marketCap[b.Company]); c != 0 {
			return c < 0
		}
		return a.Company < b.Company
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// descendingRanks assigns 1 + count(values strictly greater)
func descendingRanks(ids []string, values map[string]*float64) map[string]int {
	sorted := make([]float64, len(ids))
	for i, id := range ids {
		sorted[i] = *values[id]
	}
	sort.Float64s(sorted)

	n := len(sorted)
	out := make(map[string]int, n)
	for _, id := range ids {
		x := *values[id]
		atOrBelow := sort.Search(n, func(i int) bool { return sorted[i] > x })
		out[id] = 1 + (n - atOrBelow)
	}
	return out
}

// compareCapDesc orders larger caps first and missing caps last
func compareCapDesc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	}
	return 0
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// Ranker writes cross-sectional ranks into a set of MetricMaps.
// It runs only after every MetricMap for the as-of date is available.
// ⭐ SSOT: 순위 계산은 여기서만
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	if log == nil {
		log = logger.Nop()
	}
	return &Ranker{
		logger: log,
	}
}

// RankRequest names one percentile rank to compute
type RankRequest struct {
	Metric         string
	SectorRelative bool
}

// RankRequests lists the distinct percentile ranks referenced by a screen's filters
func RankRequests(screen contracts.Screen) []RankRequest {
	seen := make(map[RankRequest]bool)
	var out []RankRequest
	for _, f := range screen.Filters {
		if !f.Percentile {
			continue
		}
		req := RankRequest{Metric: f.Metric, SectorRelative: f.SectorRelative}
		if !seen[req] {
			seen[req] = true
			out = append(out, req)
		}
	}
	return out
}

// Apply computes the Magic Formula score/rank for every map, then each requested percentile.
// sectors maps company ID to its sector, the cohort for sector-relative ranks.
func (r *Ranker) Apply(maps map[string]*contracts.MetricMap, sectors map[string]string, requests []RankRequest) {
	ey := column(maps, contracts.MetricEarningsYield)
	roc := column(maps, contracts.MetricReturnOnCapital)
	mcap := column(maps, contracts.MetricMarketCap)

	for _, m := range maps {
		m.Set(contracts.MetricMagicFormulaScore, contracts.Null)
		m.Set(contracts.MetricMagicFormulaRank, contracts.Null)
	}
	entries := MagicFormula(ey, roc, mcap)
	for _, e := range entries {
		m := maps[e.Company]
		m.Set(contracts.MetricMagicFormulaScore, contracts.Number(float64(e.Score)))
		m.Set(contracts.MetricMagicFormulaRank, contracts.Number(float64(e.Rank)))
	}

	for _, req := range requests {
		values := column(maps, req.Metric)
		var ranks map[string]int
		if req.SectorRelative {
			ranks = PercentilesWithin(values, sectors)
		} else {
			ranks = Percentiles(values)
		}
		for id, rank := range ranks {
			maps[id].SetPercentile(req.Metric, req.SectorRelative, rank)
		}
	}

	if r.logger != nil {
		r.logger.WithFields(map[string]interface{}{
			"companies":     len(maps),
			"magic_formula": len(entries),
			"percentiles":   len(requests),
		}).Debug("Ranking completed")
	}
}

// column extracts one numeric metric across maps; non-numeric values become nil
func column(maps map[string]*contracts.MetricMap, metric string) map[string]*float64 {
	out := make(map[string]*float64, len(maps))
	for id, m := range maps {
		if v, ok := m.Get(metric).Float(); ok {
			out[id] = &v
		} else {
			out[id] = nil
		}
	}
	return out
}
