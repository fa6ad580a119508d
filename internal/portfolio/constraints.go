package portfolio

import (
	"slices"
	"sort"
)

// Constraints defines portfolio construction constraints
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	MaxWeight float64  // 종목당 최대 비중 (0 = 제한 없음)
	BlackList []string // 제외 종목 리스트
}

// IsBlackListed checks if a company is in the blacklist
func (c *Constraints) IsBlackListed(company string) bool {
	return slices.Contains(c.BlackList, company)
}

// DefaultConstraints returns an unconstrained configuration
func DefaultConstraints() Constraints {
	return Constraints{
		MaxWeight: 0,
		BlackList: []string{},
	}
}

// Apply drops blacklisted names, then caps every weight at MaxWeight and
// spreads the excess pro rata over the uncapped names until none exceeds the cap.
// When MaxWeight × N < 1 every name ends at the cap and the remainder stays in cash.
func (c *Constraints) Apply(weights map[string]float64) map[string]float64 {
	result := make(map[string]float64, len(weights))
	for company, w := range weights {
		if c.IsBlackListed(company) || w <= 0 {
			continue
		}
		result[company] = w
	}
	result = normalize(result)

	if c.MaxWeight <= 0 || c.MaxWeight >= 1 {
		return result
	}

	keys := sortedKeys(result)
	capped := make(map[string]bool, len(result))
	for len(capped) < len(result) {
		excess := 0.0
		for _, company := range keys {
			if w := result[company]; !capped[company] && w > c.MaxWeight {
				excess += w - c.MaxWeight
				result[company] = c.MaxWeight
				capped[company] = true
			}
		}
		if excess <= 1e-12 {
			break
		}

		free := 0.0
		for _, company := range keys {
			if !capped[company] {
				free += result[company]
			}
		}
		if free <= 0 {
			break
		}
		for _, company := range keys {
			if !capped[company] {
				w := result[company]
				result[company] = w + excess*w/free
			}
		}
	}
	return result
}

// normalize scales weights to sum to 1
func normalize(weights map[string]float64) map[string]float64 {
	total := 0.0
	for _, company := range sortedKeys(weights) {
		total += weights[company]
	}
	if total <= 0 {
		return weights
	}
	for company, w := range weights {
		weights[company] = w / total
	}
	return weights
}

// sortedKeys returns map keys in ascending order
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
