package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidateHistory(t *testing.T) {
	tests := []struct {
		name    string
		history []FundamentalRecord
		wantErr bool
	}{
		{
			name: "distinct periods",
			history: []FundamentalRecord{
				{Company: "AAA", PeriodEnd: day(2022, 12, 31), PeriodType: PeriodFY},
				{Company: "AAA", PeriodEnd: day(2023, 12, 31), PeriodType: PeriodFY},
				{Company: "AAA", PeriodEnd: day(2023, 12, 31), PeriodType: PeriodQ4},
			},
		},
		{
			name: "duplicate key",
			history: []FundamentalRecord{
				{Company: "AAA", PeriodEnd: day(2023, 12, 31), PeriodType: PeriodFY},
				{Company: "AAA", PeriodEnd: day(2023, 12, 31), PeriodType: PeriodFY},
			},
			wantErr: true,
		},
		{
			name: "unknown period type",
			history: []FundamentalRecord{
				{Company: "AAA", PeriodEnd: day(2023, 12, 31), PeriodType: "H1"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHistory(tt.history)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSortHistory(t *testing.T) {
	history := []FundamentalRecord{
		{PeriodEnd: day(2023, 12, 31), PeriodType: PeriodFY},
		{PeriodEnd: day(2022, 12, 31), PeriodType: PeriodFY},
		{PeriodEnd: day(2023, 12, 31), PeriodType: PeriodQ4},
	}
	SortHistory(history)

	assert.Equal(t, day(2022, 12, 31), history[0].PeriodEnd)
	assert.Equal(t, PeriodFY, history[1].PeriodType)
	assert.Equal(t, PeriodQ4, history[2].PeriodType)
}

func TestBarsUntil(t *testing.T) {
	bars := []PriceBar{
		{Date: day(2024, 1, 2)},
		{Date: day(2024, 1, 3)},
		{Date: day(2024, 1, 5)},
	}

	assert.Len(t, BarsUntil(bars, day(2024, 1, 1)), 0)
	assert.Len(t, BarsUntil(bars, day(2024, 1, 3)), 2)
	assert.Len(t, BarsUntil(bars, day(2024, 1, 4)), 2)
	assert.Len(t, BarsUntil(bars, day(2024, 2, 1)), 3)
}

func TestFundamentalRecord_AvailableAt(t *testing.T) {
	rec := FundamentalRecord{PeriodEnd: day(2023, 12, 31)}
	assert.Equal(t, day(2023, 12, 31), rec.AvailableAt())

	filed := day(2024, 2, 15)
	rec.FiledAt = &filed
	assert.Equal(t, filed, rec.AvailableAt())
}

func TestBacktestConfig_Validate(t *testing.T) {
	valid := BacktestConfig{
		RebalanceFrequency: RebalanceAnnual,
		PositionSizing:     SizingEqual,
		PeriodStart:        day(2004, 1, 1),
		PeriodEnd:          day(2023, 12, 31),
		StartingCapital:    100000,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *BacktestConfig)
		field  string
	}{
		{"end before start", func(c *BacktestConfig) { c.PeriodEnd = c.PeriodStart }, "period_end"},
		{"unknown frequency", func(c *BacktestConfig) { c.RebalanceFrequency = "daily" }, "rebalance_frequency"},
		{"unknown sizing", func(c *BacktestConfig) { c.PositionSizing = "kelly" }, "position_sizing"},
		{"no capital", func(c *BacktestConfig) { c.StartingCapital = 0 }, "starting_capital"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
