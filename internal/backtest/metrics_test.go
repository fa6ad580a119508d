package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

func TestSummarize(t *testing.T) {
	curve := []contracts.EquityPoint{
		{Date: day(2024, 1, 2), Value: 110},
		{Date: day(2024, 1, 3), Value: 99},
		{Date: day(2024, 1, 4), Value: 121},
	}

	s := Summarize(curve, 100, 0)
	assert.Equal(t, 3, s.TradingDays)
	assert.Equal(t, 121.0, s.EndValue)
	assert.InDelta(t, 0.21, s.TotalReturn, 1e-12)
	assert.InDelta(t, 0.1, s.MaxDrawdown, 1e-12)
	assert.InDelta(t, 2.0/3.0, s.WinRate, 1e-12)
	assert.Greater(t, s.Volatility, 0.0)
	assert.Greater(t, s.Sharpe, 0.0)
	assert.Greater(t, s.Sortino, s.Sharpe)
	assert.InDelta(t, 0.1, s.VaR95, 1e-12)
	assert.InDelta(t, 0.1, s.CVaR95, 1e-12)
}

func TestSummarize_Flat(t *testing.T) {
	curve := []contracts.EquityPoint{
		{Date: day(2024, 1, 2), Value: 100},
		{Date: day(2025, 1, 2), Value: 100},
	}

	s := Summarize(curve, 100, 0.02)
	assert.Equal(t, 0.0, s.CAGR)
	assert.Equal(t, 0.0, s.Volatility)
	assert.Equal(t, 0.0, s.Sharpe)
	assert.Equal(t, 0.0, s.MaxDrawdown)
	assert.Equal(t, 0.0, s.WinRate)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 100, 0)
	assert.Equal(t, 100.0, s.StartValue)
	assert.Equal(t, 0, s.TradingDays)
	assert.Equal(t, 0.0, s.CAGR)
}

func TestSummarize_CAGR(t *testing.T) {
	curve := []contracts.EquityPoint{
		{Date: day(2000, 1, 1), Value: 100},
		{Date: day(2004, 1, 1), Value: 100 * math.Pow(1.05, 4)},
	}

	s := Summarize(curve, 100, 0)
	assert.InDelta(t, 4.0, s.Years, 1e-9)
	assert.InDelta(t, 0.05, s.CAGR, 1e-9)
}

func TestMaxDrawdown_FromStartingValue(t *testing.T) {
	curve := []contracts.EquityPoint{
		{Date: day(2024, 1, 2), Value: 80},
		{Date: day(2024, 1, 3), Value: 90},
	}
	assert.InDelta(t, 0.2, maxDrawdown(curve, 100), 1e-12)
}

func TestYearlyTable(t *testing.T) {
	strategy := []contracts.EquityPoint{
		{Date: day(2020, 6, 30), Value: 110},
		{Date: day(2020, 12, 31), Value: 120},
		{Date: day(2021, 12, 31), Value: 108},
	}
	benchmark := []contracts.EquityPoint{
		{Date: day(2020, 6, 30), Value: 100},
		{Date: day(2020, 12, 31), Value: 100},
		{Date: day(2021, 12, 31), Value: 110},
	}

	rows := YearlyTable(strategy, 100, benchmark, 100)
	require.Len(t, rows, 2)

	assert.Equal(t, 2020, rows[0].Year)
	assert.InDelta(t, 0.2, rows[0].StrategyReturn, 1e-12)
	require.NotNil(t, rows[0].BenchmarkReturn)
	assert.InDelta(t, 0.0, *rows[0].BenchmarkReturn, 1e-12)
	assert.InDelta(t, 0.2, *rows[0].ExcessReturn, 1e-12)

	assert.Equal(t, 2021, rows[1].Year)
	assert.InDelta(t, -0.1, rows[1].StrategyReturn, 1e-12)
	assert.InDelta(t, 0.1, *rows[1].BenchmarkReturn, 1e-12)
	assert.InDelta(t, -0.2, *rows[1].ExcessReturn, 1e-12)

	noBench := YearlyTable(strategy, 100, nil, 100)
	require.Len(t, noBench, 2)
	assert.Nil(t, noBench[0].BenchmarkReturn)
	assert.Nil(t, noBench[1].ExcessReturn)
}
