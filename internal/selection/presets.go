package selection

import (
	"sort"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// Preset is a named, pre-built screen
type Preset struct {
	ID     string           `json:"id"`
	Screen contracts.Screen `json:"screen"`
}

func usd(v float64) *float64 { return &v }

// presets are the built-in screens
// ⭐ SSOT: 프리셋 스크린 정의는 여기서만
var presets = map[string]contracts.Screen{
	"magic_formula": {
		Name:           "Magic Formula Top 50",
		Description:    "Greenblatt's Magic Formula: best combined rank of earnings yield and return on capital",
		ExcludeSectors: []string{"Financial Services", "Utilities"},
		MinMarketCap:   usd(50_000_000),
		SortBy:         contracts.MetricMagicFormulaRank,
		SortOrder:      contracts.SortAsc,
		Limit:          50,
	},
	"deep_value": {
		Name:        "Deep Value (Acquirer's Multiple)",
		Description: "Carlisle's deep value approach: lowest EV/EBIT multiples",
		Filters: []contracts.Filter{
			{Metric: contracts.MetricAcquirersMultiple, Operator: contracts.OpLT, Value: contracts.NumberOperand(8)},
			{Metric: contracts.MetricFScore, Operator: contracts.OpGTE, Value: contracts.NumberOperand(5)},
		},
		ExcludeSectors: []string{"Financial Services"},
		MinMarketCap:   usd(100_000_000),
		SortBy:         contracts.MetricAcquirersMultiple,
		SortOrder:      contracts.SortAsc,
		Limit:          50,
	},
	"quality_value": {
		Name:        "Quality at Reasonable Price",
		Description: "High F-Score with a reasonable valuation",
		Filters: []contracts.Filter{
			{Metric: contracts.MetricFScore, Operator: contracts.OpGTE, Value: contracts.NumberOperand(7)},
			{Metric: contracts.MetricPE, Operator: contracts.OpLT, Value: contracts.NumberOperand(20)},
			{Metric: contracts.MetricROE, Operator: contracts.OpGT, Value: contracts.NumberOperand(0.15)},
		},
		MinMarketCap: usd(100_000_000),
		SortBy:       contracts.MetricFScore,
		SortOrder:    contracts.SortDesc,
		Limit:        50,
	},
	"safe_stocks": {
		Name:        "Financially Safe Stocks",
		Description: "Altman Z in the safe zone, high F-Score, no Beneish flag",
		Filters: []contracts.Filter{
			{Metric: contracts.MetricZScore, Operator: contracts.OpGT, Value: contracts.NumberOperand(2.99)},
			{Metric: contracts.MetricFScore, Operator: contracts.OpGTE, Value: contracts.NumberOperand(6)},
			{Metric: contracts.MetricMScoreFlag, Operator: contracts.OpEQ, Value: contracts.FlagOperand(false)},
		},
		MinMarketCap: usd(100_000_000),
		SortBy:       contracts.MetricZScore,
		SortOrder:    contracts.SortDesc,
		Limit:        50,
	},
	"red_flag_watch": {
		Name:        "Manipulation Red Flags",
		Description: "Elevated Beneish M-Score or Sloan accruals, for research and avoidance",
		Filters: []contracts.Filter{
			{Metric: contracts.MetricMScore, Operator: contracts.OpGT, Value: contracts.NumberOperand(-1.78)},
			{Metric: contracts.MetricAccrualFlag, Operator: contracts.OpEQ, Value: contracts.FlagOperand(true)},
		},
		Logic:        contracts.LogicOR,
		MinMarketCap: usd(500_000_000),
		SortBy:       contracts.MetricMScore,
		SortOrder:    contracts.SortDesc,
		Limit:        50,
	},
}

// Presets lists the built-in screens ordered by ID
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for id := range presets {
		s, _ := LookupPreset(id)
		out = append(out, Preset{ID: id, Screen: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LookupPreset returns a copy of a built-in screen with defaults applied
func LookupPreset(id string) (contracts.Screen, bool) {
	s, ok := presets[id]
	if !ok {
		return contracts.Screen{}, false
	}
	s.Filters = append([]contracts.Filter(nil), s.Filters...)
	s.ExcludeSectors = append([]string(nil), s.ExcludeSectors...)
	return s.WithDefaults(), true
}
