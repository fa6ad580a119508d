package strategyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

const screenYAML = `
name: cheap_quality
logic: AND
filters:
  - metric: pe_ratio
    operator: "<"
    value: 15
  - metric: roe
    operator: between
    value: [0.1, 0.5]
  - metric: sector
    operator: in
    value: [Technology, Energy]
  - metric: earnings_yield
    operator: ">="
    value: 80
    percentile: true
    sector_relative: true
sort_by: f_score
sort_order: desc
limit: 25
exclude_sectors: [Utilities]
min_market_cap: 100000000
`

const backtestYAML = `
name: mf_annual
preset: magic_formula
screen:
  limit: 20
rebalance_frequency: annual
position_sizing: equal_weight
universe_filter:
  exclude_sectors: [Real Estate]
period_start: 2005-01-01
period_end: 2020-12-31
starting_capital: 100000
benchmark: SPY
risk_free_rate: 0.02
commission_rate: 0.001
`

func TestParseScreen(t *testing.T) {
	screen, err := ParseScreen([]byte(screenYAML))
	require.NoError(t, err)

	assert.Equal(t, "cheap_quality", screen.Name)
	require.Len(t, screen.Filters, 4)

	pe := screen.Filters[0]
	assert.Equal(t, contracts.OpLT, pe.Operator)
	v, ok := pe.Value.Value.Float()
	require.True(t, ok)
	assert.Equal(t, 15.0, v)

	roe := screen.Filters[1]
	require.True(t, roe.Value.IsList())
	assert.Len(t, roe.Value.List, 2)

	sector := screen.Filters[2]
	s, ok := sector.Value.List[1].Value.Str()
	require.True(t, ok)
	assert.Equal(t, "Energy", s)

	assert.True(t, screen.Filters[3].Percentile)
	assert.True(t, screen.Filters[3].SectorRelative)
	assert.Equal(t, 25, screen.Limit)
	assert.Equal(t, []string{"Utilities"}, screen.ExcludeSectors)
	require.NotNil(t, screen.MinMarketCap)
	assert.Equal(t, 1e8, *screen.MinMarketCap)
}

func TestParseScreen_Preset(t *testing.T) {
	screen, err := ParseScreen([]byte("preset: magic_formula\nlimit: 20\n"))
	require.NoError(t, err)

	assert.Equal(t, 20, screen.Limit)
	assert.Equal(t, contracts.MetricMagicFormulaRank, screen.SortBy)
	assert.Equal(t, contracts.SortAsc, screen.SortOrder)
	assert.Contains(t, screen.ExcludeSectors, "Utilities")
}

func TestParseScreen_Errors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"unknown field", "name: x\nfilterz: []\n", "yaml"},
		{"malformed", "name: [x\n", "yaml"},
		{"unknown preset", "preset: nope\n", "preset"},
		{"unknown metric", "filters:\n  - metric: pe\n    operator: '<'\n    value: 1\n", "screen.filters[0].metric"},
		{"between one bound", "filters:\n  - metric: roe\n    operator: between\n    value: [0.1]\n", "screen.filters[0].value"},
		{"bad logic", "logic: XOR\n", "screen.logic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScreen([]byte(tt.yaml))
			require.Error(t, err)
			if tt.field == "" {
				return
			}
			var vErr ValidationError
			require.True(t, errors.As(err, &vErr), err.Error())
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestParseBacktest(t *testing.T) {
	cfg, err := ParseBacktest([]byte(backtestYAML))
	require.NoError(t, err)

	assert.Equal(t, contracts.RebalanceAnnual, cfg.RebalanceFrequency)
	assert.Equal(t, contracts.SizingEqual, cfg.PositionSizing)
	assert.True(t, cfg.PeriodStart.Equal(time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cfg.PeriodEnd.Equal(time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 100000.0, cfg.StartingCapital)
	assert.Equal(t, "SPY", cfg.Benchmark)
	assert.Equal(t, []string{"Real Estate"}, cfg.UniverseFilter.ExcludeSectors)

	assert.Equal(t, 20, cfg.Screen.Limit)
	assert.Equal(t, contracts.MetricMagicFormulaRank, cfg.Screen.SortBy)
	assert.Equal(t, "Magic Formula Top 50", cfg.Screen.Name)
}

func TestParseBacktest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "unknown field",
			yaml:  "nonsense: 1\n",
			field: "yaml",
		},
		{
			name:  "end before start",
			yaml:  "rebalance_frequency: monthly\nposition_sizing: equal_weight\nperiod_start: 2020-01-01\nperiod_end: 2019-01-01\nstarting_capital: 1\n",
			field: "period_end",
		},
		{
			name:  "unknown frequency",
			yaml:  "rebalance_frequency: daily\nposition_sizing: equal_weight\nperiod_start: 2019-01-01\nperiod_end: 2020-01-01\nstarting_capital: 1\n",
			field: "rebalance_frequency",
		},
		{
			name:  "risk free out of range",
			yaml:  "rebalance_frequency: monthly\nposition_sizing: equal_weight\nperiod_start: 2019-01-01\nperiod_end: 2020-01-01\nstarting_capital: 1\nrisk_free_rate: 2\n",
			field: "risk_free_rate",
		},
		{
			name:  "inverted universe caps",
			yaml:  "rebalance_frequency: monthly\nposition_sizing: equal_weight\nperiod_start: 2019-01-01\nperiod_end: 2020-01-01\nstarting_capital: 1\nuniverse_filter:\n  min_market_cap: 10\n  max_market_cap: 5\n",
			field: "universe_filter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBacktest([]byte(tt.yaml))
			var vErr ValidationError
			require.True(t, errors.As(err, &vErr), "%v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestLoadBacktest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(backtestYAML), 0o644))

	cfg, raw, err := LoadBacktest(path)
	require.NoError(t, err)
	assert.Equal(t, backtestYAML, string(raw))
	assert.Equal(t, contracts.RebalanceAnnual, cfg.RebalanceFrequency)

	_, _, err = LoadBacktest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	cfg, err := ParseBacktest([]byte(backtestYAML))
	require.NoError(t, err)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	again, err := ParseBacktest([]byte(backtestYAML))
	require.NoError(t, err)
	hash2, err := Hash(again)
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)

	again.CommissionRate = 0.002
	hash3, err := Hash(again)
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash3)
}

func TestWarn(t *testing.T) {
	cfg := &contracts.BacktestConfig{
		RebalanceFrequency: contracts.RebalanceWeekly,
		CommissionRate:     0.002,
		MaxPositionWeight:  0.01,
	}

	codes := map[string]bool{}
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	assert.True(t, codes["NO_BENCHMARK"])
	assert.True(t, codes["CASH_DRAG"])
	assert.True(t, codes["HIGH_TURNOVER"])
	assert.False(t, codes["ZERO_COMMISSION"])
}

func TestDecisionSnapshot(t *testing.T) {
	cfg, err := ParseBacktest([]byte(backtestYAML))
	require.NoError(t, err)

	snapshot, err := NewDecisionSnapshot("mf_annual", cfg, []byte(backtestYAML))
	require.NoError(t, err)
	assert.Equal(t, "mf_annual", snapshot.Name)
	assert.Len(t, snapshot.ConfigHash, 64)
	assert.Equal(t, backtestYAML, snapshot.ConfigYAML)
}

func TestValidatePctRange(t *testing.T) {
	tests := []struct {
		input float64
		valid bool
	}{
		{0, true},
		{0.05, true},
		{1, true},
		{-0.01, false},
		{1.5, false},
	}

	for _, tc := range tests {
		err := validatePctRange(tc.input, "x")
		if tc.valid {
			assert.NoError(t, err, tc.input)
		} else {
			assert.Error(t, err, tc.input)
		}
	}
}
