package s2_metrics

import (
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// kind is one metric with its pure formula
type kind struct {
	name string
	fn   func(in *inputs) contracts.MetricValue
}

func number(f func(in *inputs) *float64) func(in *inputs) contracts.MetricValue {
	return func(in *inputs) contracts.MetricValue { return contracts.NumberPtr(f(in)) }
}

// fundamentalKinds is evaluated in order for every company
// ⭐ SSOT: 펀더멘털 지표 목록은 여기서만
var fundamentalKinds = []kind{
	{contracts.MetricMarketCap, number(func(in *inputs) *float64 { return in.marketCap() })},
	{contracts.MetricEnterpriseValue, number(func(in *inputs) *float64 { return in.enterpriseValue() })},

	{contracts.MetricPE, number(peRatio)},
	{contracts.MetricPB, number(pbRatio)},
	{contracts.MetricPS, number(psRatio)},
	{contracts.MetricEVEBITDA, number(evEBITDA)},
	{contracts.MetricEVEBIT, number(evEBIT)},
	{contracts.MetricEVSales, number(evSales)},
	{contracts.MetricPriceToFCF, number(priceToFCF)},
	{contracts.MetricDividendYield, number(dividendYield)},

	{contracts.MetricEarningsYield, number(earningsYield)},
	{contracts.MetricReturnOnCapital, number(returnOnCapital)},
	{contracts.MetricAcquirersMultiple, number(acquirersMultiple)},

	{contracts.MetricROE, number(roe)},
	{contracts.MetricROA, number(roa)},
	{contracts.MetricGrossMargin, number(grossMargin)},
	{contracts.MetricOperatingMargin, number(operatingMargin)},
	{contracts.MetricNetMargin, number(netMargin)},
	{contracts.MetricFCFMargin, number(fcfMargin)},

	{contracts.MetricCurrentRatio, number(currentRatio)},
	{contracts.MetricQuickRatio, number(quickRatio)},
	{contracts.MetricCashRatio, number(cashRatio)},
	{contracts.MetricDebtToEquity, number(debtToEquity)},
	{contracts.MetricDebtToAssets, number(debtToAssets)},
	{contracts.MetricInterestCoverage, number(interestCoverage)},

	{contracts.MetricAssetTurnover, number(assetTurnover)},
	{contracts.MetricInventoryTurnover, number(inventoryTurnover)},
	{contracts.MetricReceivablesTurnover, number(receivablesTurnover)},

	{contracts.MetricRevenueGrowth, number(revenueGrowth)},
	{contracts.MetricNetIncomeGrowth, number(netIncomeGrowth)},
	{contracts.MetricEPSGrowth, number(epsGrowth)},

	{contracts.MetricZScore, number(altmanZ)},
	{contracts.MetricZDistress, func(in *inputs) contracts.MetricValue {
		z := altmanZ(in)
		if z == nil {
			return contracts.Null
		}
		return contracts.Flag(ClassifyZ(*z) == ZoneDistress)
	}},
	{contracts.MetricMScore, number(beneishM)},
	{contracts.MetricMScoreFlag, func(in *inputs) contracts.MetricValue {
		m := beneishM(in)
		if m == nil {
			return contracts.Null
		}
		return contracts.Flag(*m > MScoreThreshold)
	}},
	{contracts.MetricAccrualRatio, number(accrualRatio)},
	{contracts.MetricAccrualFlag, func(in *inputs) contracts.MetricValue {
		r := accrualRatio(in)
		if r == nil {
			return contracts.Null
		}
		return contracts.Flag(ClassifyAccruals(*r) == AccrualRedFlag)
	}},
}

// Calculator derives fundamental metrics from statement history
// ⭐ SSOT: 펀더멘털 지표 계산은 여기서만
type Calculator struct {
	logger *logger.Logger
}

// NewCalculator creates a new metric calculator
func NewCalculator(log *logger.Logger) *Calculator {
	return &Calculator{logger: log}
}

// Compute derives every fundamental metric as of asOf.
// priceAsOf may be nil, which nulls the market-based metrics.
// Returns MissingDataError only when no FY or TTM statement is available.
func (c *Calculator) Compute(history []contracts.FundamentalRecord, priceAsOf *contracts.PriceBar, asOf time.Time) (*contracts.MetricMap, error) {
	company := ""
	if len(history) > 0 {
		company = history[0].Company
	}

	cur, prior := selectPeriods(history, asOf)
	if cur == nil {
		return nil, &contracts.MissingDataError{Company: company, Reason: "no FY or TTM fundamental record as of " + asOf.Format("2006-01-02")}
	}

	in := &inputs{cur: cur, prior: prior}
	out := contracts.NewMetricMap(company, asOf)
	if priceAsOf != nil && !priceAsOf.Date.After(asOf) {
		px := priceAsOf.Close.InexactFloat64()
		if px > 0 {
			in.price = &px
		}
	}
	out.Set(contracts.MetricPrice, contracts.NumberPtr(in.price))

	for _, k := range fundamentalKinds {
		out.Set(k.name, k.fn(in))
	}

	tests := piotroski(in)
	out.Set(contracts.MetricFScore, contracts.Number(float64(tests.Score())))
	out.Set(contracts.MetricFROAPositive, contracts.Flag(tests.ROAPositive))
	out.Set(contracts.MetricFCFOPositive, contracts.Flag(tests.CFOPositive))
	out.Set(contracts.MetricFROAImproving, contracts.Flag(tests.ROAImproving))
	out.Set(contracts.MetricFAccruals, contracts.Flag(tests.Accruals))
	out.Set(contracts.MetricFLeverageDown, contracts.Flag(tests.LeverageDown))
	out.Set(contracts.MetricFCurrentRatioUp, contracts.Flag(tests.CurrentRatioUp))
	out.Set(contracts.MetricFNoDilution, contracts.Flag(tests.NoDilution))
	out.Set(contracts.MetricFGrossMarginUp, contracts.Flag(tests.GrossMarginUp))
	out.Set(contracts.MetricFAssetTurnoverUp, contracts.Flag(tests.AssetTurnoverUp))

	if c.logger != nil {
		c.logger.WithFields(map[string]interface{}{
			"company":   company,
			"as_of":     asOf.Format("2006-01-02"),
			"period":    cur.periodEnd.Format("2006-01-02"),
			"ttm":       cur.ttm,
			"has_prior": prior != nil,
		}).Debug("Computed fundamental metrics")
	}

	return out, nil
}
