package s2_metrics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(company, periodEnd string, pt contracts.PeriodType, set func(r *contracts.FundamentalRecord)) contracts.FundamentalRecord {
	r := contracts.FundamentalRecord{
		Company:    company,
		PeriodEnd:  day(periodEnd),
		PeriodType: pt,
	}
	if set != nil {
		set(&r)
	}
	return r
}

func priceBar(company, date string, px float64) *contracts.PriceBar {
	c := decimal.NewFromFloat(px)
	return &contracts.PriceBar{Company: company, Date: day(date), Open: c, High: c, Low: c, Close: c, AdjustedClose: c}
}

func num(t *testing.T, m *contracts.MetricMap, name string) float64 {
	t.Helper()
	v, ok := m.Get(name).Float()
	require.True(t, ok, "%s should be a number, got %s", name, m.Get(name))
	return v
}

func flag(t *testing.T, m *contracts.MetricMap, name string) bool {
	t.Helper()
	v, ok := m.Get(name).Bool()
	require.True(t, ok, "%s should be a flag, got %s", name, m.Get(name))
	return v
}

var d = contracts.Dec

// improvingPair is a prior/current FY pair passing all nine F-Score tests
func improvingPair() []contracts.FundamentalRecord {
	prior := record("ACME", "2022-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.Revenue, r.CostOfRevenue = d(1000), d(600)
		r.NetIncome, r.OperatingCashFlow = d(50), d(60)
		r.TotalAssets, r.LongTermDebt = d(1000), d(300)
		r.CurrentAssets, r.CurrentLiabilities = d(400), d(300)
		r.SharesOutstanding = d(100)
	})
	cur := record("ACME", "2023-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.Revenue, r.CostOfRevenue = d(1200), d(660)
		r.NetIncome, r.OperatingCashFlow = d(100), d(150)
		r.TotalAssets, r.LongTermDebt = d(1000), d(200)
		r.CurrentAssets, r.CurrentLiabilities = d(500), d(300)
		r.SharesOutstanding = d(100)
	})
	return []contracts.FundamentalRecord{prior, cur}
}

func TestCompute_EnterpriseValueIdentity(t *testing.T) {
	calc := NewCalculator(nil)
	asOf := day("2024-03-29")

	tests := []struct {
		name       string
		debt, cash *float64
		wantEV     float64
	}{
		{"debt and cash", ptr(1000), ptr(300), 5000 + 1000 - 300},
		{"missing debt counts as zero", nil, ptr(300), 5000 - 300},
		{"missing cash counts as zero", ptr(1000), nil, 5000 + 1000},
		{"neither", nil, nil, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record("ACME", "2023-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
				r.SharesOutstanding = d(100)
				if tt.debt != nil {
					r.TotalDebt = d(*tt.debt)
				}
				if tt.cash != nil {
					r.Cash = d(*tt.cash)
				}
			})

			m, err := calc.Compute([]contracts.FundamentalRecord{rec}, priceBar("ACME", "2024-03-28", 50), asOf)
			require.NoError(t, err)

			mcap := num(t, m, contracts.MetricMarketCap)
			assert.InDelta(t, 5000, mcap, 1e-9)
			assert.InDelta(t, tt.wantEV, num(t, m, contracts.MetricEnterpriseValue), 1e-9)

			debt, cash := 0.0, 0.0
			if tt.debt != nil {
				debt = *tt.debt
			}
			if tt.cash != nil {
				cash = *tt.cash
			}
			assert.InDelta(t, mcap+debt-cash, num(t, m, contracts.MetricEnterpriseValue), 1e-9)
		})
	}
}

func TestCompute_AcquirersMultipleAndMagicFormulaInputs(t *testing.T) {
	rec := record("ACME", "2023-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.SharesOutstanding = d(100)
		r.TotalDebt, r.Cash = d(1000), d(500)
		r.PreferredStock, r.MinorityInterest = d(300), d(200)
		r.EBIT = d(600)
		r.CurrentAssets, r.CurrentLiabilities = d(800), d(400)
		r.TotalAssets, r.Intangibles, r.Goodwill = d(3000), d(200), d(400)
	})

	m, err := NewCalculator(nil).Compute([]contracts.FundamentalRecord{rec}, priceBar("ACME", "2024-01-02", 50), day("2024-01-02"))
	require.NoError(t, err)

	// EV incl. preferred and minority = 5000 + 1000 - 500 + 300 + 200 = 6000
	assert.InDelta(t, 10.0, num(t, m, contracts.MetricAcquirersMultiple), 1e-9)
	// EY = EBIT / (5000 + 1000 - 500)
	assert.InDelta(t, 600.0/5500.0, num(t, m, contracts.MetricEarningsYield), 1e-12)
	// ROC = 600 / (NWC 400 + NFA 1600)
	assert.InDelta(t, 0.3, num(t, m, contracts.MetricReturnOnCapital), 1e-12)
	assert.InDelta(t, 5500.0/600.0, num(t, m, contracts.MetricEVEBIT), 1e-12)
}

// earnings yield stays signed; the acquirer's multiple needs EBIT > 0
func TestCompute_AcquirersMultipleNullUnlessPositive(t *testing.T) {
	rec := record("ACME", "2023-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.SharesOutstanding = d(100)
		r.EBIT = d(-50)
	})

	m, err := NewCalculator(nil).Compute([]contracts.FundamentalRecord{rec}, priceBar("ACME", "2024-01-02", 50), day("2024-01-02"))
	require.NoError(t, err)
	assert.True(t, m.Get(contracts.MetricAcquirersMultiple).IsNull())
	// EV = 100 × 50 with no debt or cash
	assert.InDelta(t, -0.01, num(t, m, contracts.MetricEarningsYield), 1e-12)
}

func TestCompute_PiotroskiAllPass(t *testing.T) {
	m, err := NewCalculator(nil).Compute(improvingPair(), priceBar("ACME", "2024-01-02", 10), day("2024-01-02"))
	require.NoError(t, err)

	assert.Equal(t, 9.0, num(t, m, contracts.MetricFScore))
	for _, name := range []string{
		contracts.MetricFROAPositive, contracts.MetricFCFOPositive, contracts.MetricFROAImproving,
		contracts.MetricFAccruals, contracts.MetricFLeverageDown, contracts.MetricFCurrentRatioUp,
		contracts.MetricFNoDilution, contracts.MetricFGrossMarginUp, contracts.MetricFAssetTurnoverUp,
	} {
		assert.True(t, flag(t, m, name), name)
	}
}

func TestCompute_PiotroskiAllFail(t *testing.T) {
	history := improvingPair()
	cur := &history[1]
	cur.Revenue, cur.CostOfRevenue = d(900), d(600)
	cur.NetIncome, cur.OperatingCashFlow = d(-10), d(-20)
	cur.LongTermDebt = d(400)
	cur.CurrentAssets, cur.CurrentLiabilities = d(300), d(300)
	cur.SharesOutstanding = d(110)

	m, err := NewCalculator(nil).Compute(history, priceBar("ACME", "2024-01-02", 10), day("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, num(t, m, contracts.MetricFScore))
}

func TestCompute_PiotroskiRange(t *testing.T) {
	calc := NewCalculator(nil)
	single := improvingPair()[1:]

	tests := []struct {
		name    string
		history []contracts.FundamentalRecord
	}{
		{"with prior", improvingPair()},
		{"without prior", single},
		{"sparse record", []contracts.FundamentalRecord{record("ACME", "2023-12-31", contracts.PeriodFY, nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := calc.Compute(tt.history, nil, day("2024-01-02"))
			require.NoError(t, err)
			score := num(t, m, contracts.MetricFScore)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 9.0)
			assert.Equal(t, math.Trunc(score), score)
		})
	}

	// Year-over-year tests need a prior period
	m, err := calc.Compute(single, nil, day("2024-01-02"))
	require.NoError(t, err)
	assert.False(t, flag(t, m, contracts.MetricFROAImproving))
	assert.False(t, flag(t, m, contracts.MetricFNoDilution))
	assert.Equal(t, 3.0, num(t, m, contracts.MetricFScore)) // ROA>0, CFO>0, CFO>NI
}

func TestClassifyZ(t *testing.T) {
	tests := []struct {
		z    float64
		want Zone
	}{
		{5.0, ZoneSafe},
		{2.991, ZoneSafe},
		{2.99, ZoneGrey},
		{2.5, ZoneGrey},
		{1.81, ZoneGrey},
		{1.8099, ZoneDistress},
		{0, ZoneDistress},
		{-3, ZoneDistress},
		{math.Inf(1), ZoneSafe},
		{math.Inf(-1), ZoneDistress},
		{math.NaN(), ZoneDistress},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.z), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyZ(tt.z))
		})
	}

	// Every value falls in exactly one band
	for z := -5.0; z <= 10.0; z += 0.01 {
		zone := ClassifyZ(z)
		inSafe := z > ZSafeAbove
		inGrey := z >= ZDistressBelow && z <= ZSafeAbove
		inDistress := z < ZDistressBelow
		assert.True(t, (zone == ZoneSafe) == inSafe && (zone == ZoneGrey) == inGrey && (zone == ZoneDistress) == inDistress, "z=%v zone=%s", z, zone)
	}
}

func TestCompute_AltmanZ(t *testing.T) {
	rec := record("ACME", "2023-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.TotalAssets, r.TotalLiabilities = d(1000), d(500)
		r.CurrentAssets, r.CurrentLiabilities = d(500), d(300)
		r.RetainedEarnings, r.EBIT, r.Revenue = d(300), d(100), d(1200)
		r.SharesOutstanding = d(100)
	})

	m, err := NewCalculator(nil).Compute([]contracts.FundamentalRecord{rec}, priceBar("ACME", "2024-01-02", 50), day("2024-01-02"))
	require.NoError(t, err)

	// 1.2·0.2 + 1.4·0.3 + 3.3·0.1 + 0.6·10 + 1.0·1.2
	assert.InDelta(t, 8.19, num(t, m, contracts.MetricZScore), 1e-9)
	assert.False(t, flag(t, m, contracts.MetricZDistress))
}

func TestCompute_AltmanZNullWithoutAssets(t *testing.T) {
	rec := record("ACME", "2023-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.Revenue = d(100)
	})
	m, err := NewCalculator(nil).Compute([]contracts.FundamentalRecord{rec}, nil, day("2024-01-02"))
	require.NoError(t, err)
	assert.True(t, m.Get(contracts.MetricZScore).IsNull())
	assert.True(t, m.Get(contracts.MetricZDistress).IsNull())
}

func beneishPeriod(periodEnd string) contracts.FundamentalRecord {
	return record("ACME", periodEnd, contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.Revenue, r.GrossProfit = d(1000), d(400)
		r.Receivables, r.CurrentAssets, r.PPENet = d(100), d(400), d(300)
		r.TotalAssets, r.TotalLiabilities = d(1000), d(500)
		r.DepreciationAmor, r.SGAExpense = d(30), d(150)
		r.NetIncome, r.OperatingCashFlow = d(100), d(150)
	})
}

func TestCompute_BeneishM(t *testing.T) {
	calc := NewCalculator(nil)

	t.Run("null without prior period", func(t *testing.T) {
		m, err := calc.Compute([]contracts.FundamentalRecord{beneishPeriod("2023-12-31")}, nil, day("2024-01-02"))
		require.NoError(t, err)
		assert.True(t, m.Get(contracts.MetricMScore).IsNull())
		assert.True(t, m.Get(contracts.MetricMScoreFlag).IsNull())
	})

	t.Run("unchanged business has unit indices", func(t *testing.T) {
		history := []contracts.FundamentalRecord{beneishPeriod("2022-12-31"), beneishPeriod("2023-12-31")}
		m, err := calc.Compute(history, nil, day("2024-01-02"))
		require.NoError(t, err)

		// every index is 1.0; TATA = (100 - 150) / 1000
		want := -4.84 + 0.920 + 0.528 + 0.404 + 0.892 + 0.115 - 0.172 - 0.327 + 4.679*(-0.05)
		assert.InDelta(t, want, num(t, m, contracts.MetricMScore), 1e-9)
		assert.False(t, flag(t, m, contracts.MetricMScoreFlag))
	})

	t.Run("missing component is neutral", func(t *testing.T) {
		prior := beneishPeriod("2022-12-31")
		prior.Receivables = decimal.NullDecimal{}
		history := []contracts.FundamentalRecord{prior, beneishPeriod("2023-12-31")}
		m, err := calc.Compute(history, nil, day("2024-01-02"))
		require.NoError(t, err)

		want := -4.84 + 0.920 + 0.528 + 0.404 + 0.892 + 0.115 - 0.172 - 0.327 + 4.679*(-0.05)
		assert.InDelta(t, want, num(t, m, contracts.MetricMScore), 1e-9)
	})

	t.Run("null when prior revenue is not positive", func(t *testing.T) {
		prior := beneishPeriod("2022-12-31")
		prior.Revenue = d(0)
		history := []contracts.FundamentalRecord{prior, beneishPeriod("2023-12-31")}
		m, err := calc.Compute(history, nil, day("2024-01-02"))
		require.NoError(t, err)
		assert.True(t, m.Get(contracts.MetricMScore).IsNull())
	})
}

func TestClassifyAccruals(t *testing.T) {
	tests := []struct {
		ratio float64
		want  AccrualBand
	}{
		{-0.2, AccrualHighQuality},
		{-0.1, AccrualNormal},
		{0, AccrualNormal},
		{0.1, AccrualNormal},
		{0.11, AccrualRedFlag},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyAccruals(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestCompute_AccrualRatio(t *testing.T) {
	calc := NewCalculator(nil)

	t.Run("cash flow method", func(t *testing.T) {
		history := []contracts.FundamentalRecord{beneishPeriod("2022-12-31"), beneishPeriod("2023-12-31")}
		m, err := calc.Compute(history, nil, day("2024-01-02"))
		require.NoError(t, err)
		assert.InDelta(t, -0.05, num(t, m, contracts.MetricAccrualRatio), 1e-12)
		assert.False(t, flag(t, m, contracts.MetricAccrualFlag))
	})

	t.Run("balance sheet fallback", func(t *testing.T) {
		prior := record("ACME", "2022-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
			r.TotalAssets, r.CurrentAssets, r.CurrentLiabilities = d(1000), d(400), d(250)
			r.Cash, r.ShortTermDebt = d(80), d(40)
		})
		cur := record("ACME", "2023-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
			r.TotalAssets, r.CurrentAssets, r.CurrentLiabilities = d(1000), d(500), d(300)
			r.Cash, r.ShortTermDebt = d(100), d(50)
			r.DepreciationAmor, r.NetIncome = d(30), d(60)
		})

		m, err := calc.Compute([]contracts.FundamentalRecord{prior, cur}, nil, day("2024-01-02"))
		require.NoError(t, err)
		// ((100 - 20) - (50 - 10 - 0) - 30) / 1000
		assert.InDelta(t, 0.01, num(t, m, contracts.MetricAccrualRatio), 1e-12)
	})
}

func quarter(periodEnd string, pt contracts.PeriodType, filed string) contracts.FundamentalRecord {
	return record("ACME", periodEnd, pt, func(r *contracts.FundamentalRecord) {
		r.Revenue, r.NetIncome = d(300), d(25)
		r.SharesOutstanding, r.TotalAssets = d(100), d(2000)
		if filed != "" {
			f := day(filed)
			r.FiledAt = &f
		}
	})
}

func ttmHistory(q4Filed string) []contracts.FundamentalRecord {
	fy := record("ACME", "2022-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.Revenue, r.NetIncome = d(1000), d(80)
		r.SharesOutstanding, r.TotalAssets = d(100), d(2000)
	})
	return []contracts.FundamentalRecord{
		fy,
		quarter("2023-03-31", contracts.PeriodQ1, ""),
		quarter("2023-06-30", contracts.PeriodQ2, ""),
		quarter("2023-09-30", contracts.PeriodQ3, ""),
		quarter("2023-12-31", contracts.PeriodQ4, q4Filed),
	}
}

func TestCompute_TrailingTwelveMonths(t *testing.T) {
	m, err := NewCalculator(nil).Compute(ttmHistory(""), priceBar("ACME", "2024-03-01", 10), day("2024-03-01"))
	require.NoError(t, err)

	// TTM revenue 4 × 300 against the prior FY
	assert.InDelta(t, 0.2, num(t, m, contracts.MetricRevenueGrowth), 1e-12)
	assert.InDelta(t, 1000.0/1200.0, num(t, m, contracts.MetricPS), 1e-12)
	assert.InDelta(t, 0.05, num(t, m, contracts.MetricROA), 1e-12)
}

func TestCompute_PointInTime(t *testing.T) {
	calc := NewCalculator(nil)
	history := ttmHistory("2024-02-15")

	// Q4 not yet filed: only FY 2022 is usable
	m, err := calc.Compute(history, priceBar("ACME", "2024-01-31", 10), day("2024-01-31"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, num(t, m, contracts.MetricPS), 1e-12)
	assert.True(t, m.Get(contracts.MetricRevenueGrowth).IsNull())

	// After filing the TTM takes over
	m, err = calc.Compute(history, priceBar("ACME", "2024-02-15", 10), day("2024-02-15"))
	require.NoError(t, err)
	assert.InDelta(t, 1000.0/1200.0, num(t, m, contracts.MetricPS), 1e-12)
}

func TestCompute_FuturePriceIgnored(t *testing.T) {
	history := improvingPair()
	m, err := NewCalculator(nil).Compute(history, priceBar("ACME", "2024-01-03", 10), day("2024-01-02"))
	require.NoError(t, err)

	assert.True(t, m.Get(contracts.MetricPrice).IsNull())
	assert.True(t, m.Get(contracts.MetricMarketCap).IsNull())
	assert.True(t, m.Get(contracts.MetricPE).IsNull())
	// Fundamentals-only metrics are still computed
	assert.False(t, m.Get(contracts.MetricROA).IsNull())
}

func TestCompute_MissingData(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		name    string
		history []contracts.FundamentalRecord
	}{
		{"no records", nil},
		{"too few quarters", []contracts.FundamentalRecord{
			quarter("2023-09-30", contracts.PeriodQ3, ""),
			quarter("2023-12-31", contracts.PeriodQ4, ""),
		}},
		{"only future records", []contracts.FundamentalRecord{beneishPeriod("2025-12-31")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Compute(tt.history, nil, day("2024-01-02"))
			require.Error(t, err)
			assert.True(t, contracts.IsMissingData(err))
		})
	}
}

func TestCompute_NoNonFiniteValues(t *testing.T) {
	rec := record("ACME", "2023-12-31", contracts.PeriodFY, func(r *contracts.FundamentalRecord) {
		r.Revenue, r.TotalAssets, r.TotalEquity = d(0), d(0), d(0)
		r.CurrentLiabilities, r.Inventory, r.Receivables = d(0), d(0), d(0)
		r.SharesOutstanding, r.EPS, r.EBIT = d(100), d(0), d(0)
	})

	m, err := NewCalculator(nil).Compute([]contracts.FundamentalRecord{rec}, priceBar("ACME", "2024-01-02", 10), day("2024-01-02"))
	require.NoError(t, err)

	for name, v := range m.Values {
		if f, ok := v.Float(); ok {
			assert.False(t, math.IsNaN(f) || math.IsInf(f, 0), name)
		}
	}
	assert.True(t, m.Get(contracts.MetricPE).IsNull())
	assert.True(t, m.Get(contracts.MetricROE).IsNull())
}
