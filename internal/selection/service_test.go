package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/s0_data"
	"github.com/lalith1997/quantscreen/internal/s2_metrics"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

func serviceProvider(t *testing.T) *s0_data.MemoryProvider {
	t.Helper()
	p := s0_data.NewMemoryProvider()

	delisted := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, l := range []s0_data.Listing{
		{Company: contracts.Company{ID: "A", Name: "Alpha", Sector: "Technology"}},
		{Company: contracts.Company{ID: "B", Name: "Bravo", Sector: "Energy"}},
		{Company: contracts.Company{ID: "C", Name: "Charlie", Sector: "Energy"}, DelistedOn: &delisted},
	} {
		require.NoError(t, p.AddCompany(l))
	}

	fy := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	filed := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.AddFundamentals(
		contracts.FundamentalRecord{Company: "A", PeriodEnd: fy, PeriodType: contracts.PeriodFY, FiledAt: &filed, SharesOutstanding: contracts.Dec(1000)},
		contracts.FundamentalRecord{Company: "B", PeriodEnd: fy, PeriodType: contracts.PeriodFY, FiledAt: &filed, SharesOutstanding: contracts.Dec(500)},
		// filed after the screening date
		contracts.FundamentalRecord{Company: "B", PeriodEnd: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), PeriodType: contracts.PeriodQ1, FiledAt: &late, SharesOutstanding: contracts.Dec(10)},
		contracts.FundamentalRecord{Company: "C", PeriodEnd: fy, PeriodType: contracts.PeriodFY, FiledAt: &filed, SharesOutstanding: contracts.Dec(100000)},
	))

	px := func(company string, v float64) contracts.PriceBar {
		d := decimal.NewFromFloat(v)
		return contracts.PriceBar{Company: company, Date: screenDate, Open: d, High: d, Low: d, Close: d, AdjustedClose: d, Volume: 100}
	}
	require.NoError(t, p.AddPrices(px("A", 10), px("B", 50), px("C", 10)))
	return p
}

func TestService_Run(t *testing.T) {
	svc := NewService(serviceProvider(t), s2_metrics.BuilderOptions{Workers: 2}, logger.Nop())

	resp, err := svc.Run(context.Background(), contracts.Screen{}, screenDate)
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A"}, companiesOf(resp))
	require.NotNil(t, resp.Results[0].MarketCap)
	assert.InDelta(t, 25000.0, *resp.Results[0].MarketCap, 1e-9)
	assert.InDelta(t, 10000.0, *resp.Results[1].MarketCap, 1e-9)
}

func TestService_RunExcludesSectors(t *testing.T) {
	svc := NewService(serviceProvider(t), s2_metrics.BuilderOptions{Workers: 1}, logger.Nop())

	resp, err := svc.Run(context.Background(), contracts.Screen{ExcludeSectors: []string{"Energy"}}, screenDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, companiesOf(resp))
}

func TestService_RunPreset(t *testing.T) {
	svc := NewService(serviceProvider(t), s2_metrics.BuilderOptions{}, nil)

	_, err := svc.RunPreset(context.Background(), "nope", 0, screenDate)
	assert.True(t, errors.Is(err, contracts.ErrNotFound))

	resp, err := svc.RunPreset(context.Background(), "magic_formula", 5, screenDate)
	require.NoError(t, err)
	// no company clears the preset's market cap floor
	assert.Empty(t, resp.Results)
}
