package s1_universe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// Policy holds universe exclusion criteria
// ⭐ SSOT: 섹터/시가총액 제외 정책은 여기서만
type Policy struct {
	Include        []string `yaml:"include" json:"include,omitempty"`                 // 비어있으면 전체
	ExcludeSectors []string `yaml:"exclude_sectors" json:"exclude_sectors,omitempty"` // 제외 섹터
	MinMarketCap   *float64 `yaml:"min_market_cap" json:"min_market_cap,omitempty"`   // 최소 시가총액
	MaxMarketCap   *float64 `yaml:"max_market_cap" json:"max_market_cap,omitempty"`   // 최대 시가총액
}

// PolicyFromScreen takes the exclusion fields of a screen
func PolicyFromScreen(s contracts.Screen) Policy {
	return Policy{
		ExcludeSectors: s.ExcludeSectors,
		MinMarketCap:   s.MinMarketCap,
		MaxMarketCap:   s.MaxMarketCap,
	}
}

// PolicyFromFilter takes a backtest universe filter
func PolicyFromFilter(f contracts.UniverseFilter) Policy {
	return Policy{
		Include:        f.Include,
		ExcludeSectors: f.ExcludeSectors,
		MinMarketCap:   f.MinMarketCap,
		MaxMarketCap:   f.MaxMarketCap,
	}
}

// Combine returns a policy excluding whatever either p or other excludes
func (p Policy) Combine(other Policy) Policy {
	out := Policy{
		Include:        p.Include,
		ExcludeSectors: append(append([]string{}, p.ExcludeSectors...), other.ExcludeSectors...),
		MinMarketCap:   p.MinMarketCap,
		MaxMarketCap:   p.MaxMarketCap,
	}
	if len(other.Include) > 0 {
		if len(out.Include) == 0 {
			out.Include = other.Include
		} else {
			out.Include = intersect(out.Include, other.Include)
		}
	}
	if other.MinMarketCap != nil && (out.MinMarketCap == nil || *other.MinMarketCap > *out.MinMarketCap) {
		out.MinMarketCap = other.MinMarketCap
	}
	if other.MaxMarketCap != nil && (out.MaxMarketCap == nil || *other.MaxMarketCap < *out.MaxMarketCap) {
		out.MaxMarketCap = other.MaxMarketCap
	}
	return out
}

// HasMarketCapBounds reports whether the cap check needs computed metrics
func (p Policy) HasMarketCapBounds() bool {
	return p.MinMarketCap != nil || p.MaxMarketCap != nil
}

// CheckCompany applies the include list and sector exclusions.
// Returns the exclusion reason, or "" when the company passes.
func (p Policy) CheckCompany(c contracts.Company) string {
	if len(p.Include) > 0 && !contains(p.Include, c.ID, false) {
		return "not in include list"
	}
	if sector := strings.TrimSpace(c.Sector); sector != "" && contains(p.ExcludeSectors, sector, true) {
		return fmt.Sprintf("excluded sector (%s)", sector)
	}
	return "" // 통과
}

// CheckMarketCap applies the floor and ceiling.
// A missing market cap fails any configured bound.
func (p Policy) CheckMarketCap(mcap *float64) string {
	if !p.HasMarketCapBounds() {
		return ""
	}
	if mcap == nil {
		return "market cap unavailable"
	}
	if p.MinMarketCap != nil && *mcap < *p.MinMarketCap {
		return fmt.Sprintf("market cap below floor (%.0f < %.0f)", *mcap, *p.MinMarketCap)
	}
	if p.MaxMarketCap != nil && *mcap > *p.MaxMarketCap {
		return fmt.Sprintf("market cap above ceiling (%.0f > %.0f)", *mcap, *p.MaxMarketCap)
	}
	return ""
}

// Exclude runs every check; ok is false with a reason when the company is excluded
func (p Policy) Exclude(c contracts.Company, mcap *float64) (ok bool, reason string) {
	if reason = p.CheckCompany(c); reason != "" {
		return false, reason
	}
	if reason = p.CheckMarketCap(mcap); reason != "" {
		return false, reason
	}
	return true, ""
}

// Universe is the investable set for one date
type Universe struct {
	AsOf       time.Time           `json:"as_of"`
	Companies  []contracts.Company `json:"companies"`
	Excluded   map[string]string   `json:"excluded"` // company → reason
	TotalCount int                 `json:"total_count"`
}

// IDs returns the company IDs in universe order
func (u *Universe) IDs() []string {
	ids := make([]string, len(u.Companies))
	for i, c := range u.Companies {
		ids[i] = c.ID
	}
	return ids
}

// Builder constructs the investable universe from a data provider
type Builder struct {
	provider contracts.DataProvider
	policy   Policy
	logger   *logger.Logger
}

// NewBuilder creates a new Universe Builder
func NewBuilder(provider contracts.DataProvider, policy Policy, log *logger.Logger) *Builder {
	return &Builder{
		provider: provider,
		policy:   policy,
		logger:   log,
	}
}

// Build lists the provider universe as of asOf and applies the company-level checks.
// Market cap bounds need computed metrics and are applied by the screener.
// ⭐ SSOT: S1 → S2 유니버스 생성
func (b *Builder) Build(ctx context.Context, asOf time.Time) (*Universe, error) {
	companies, err := b.provider.FetchUniverse(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}

	universe := &Universe{
		AsOf:      asOf,
		Companies: make([]contracts.Company, 0, len(companies)),
		Excluded:  make(map[string]string),
	}

	for _, c := range companies {
		if reason := b.policy.CheckCompany(c); reason != "" {
			universe.Excluded[c.ID] = reason
			continue
		}
		universe.Companies = append(universe.Companies, c)
	}

	sort.Slice(universe.Companies, func(i, j int) bool {
		return universe.Companies[i].ID < universe.Companies[j].ID
	})
	universe.TotalCount = len(universe.Companies)

	if b.logger != nil {
		b.logger.WithFields(map[string]interface{}{
			"as_of":    asOf.Format("2006-01-02"),
			"eligible": universe.TotalCount,
			"excluded": len(universe.Excluded),
		}).Debug("Universe built")
	}

	return universe, nil
}

func contains(list []string, s string, fold bool) bool {
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == s || (fold && strings.EqualFold(item, s)) {
			return true
		}
	}
	return false
}

func intersect(a, b []string) []string {
	out := make([]string, 0, len(a))
	for _, s := range a {
		if contains(b, s, false) {
			out = append(out, s)
		}
	}
	return out
}
