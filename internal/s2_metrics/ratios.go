package s2_metrics

import "math"

// Derived line items with fallbacks when the direct field is missing.

func grossProfitOf(s *statement) *float64 {
	return first(s.grossProfit, sub(s.revenue, s.costOfRevenue))
}

func ebitOf(s *statement) *float64 {
	return first(s.ebit, s.operatingIncome)
}

func ebitdaOf(s *statement) *float64 {
	return first(s.ebitda, add(ebitOf(s), s.depreciation))
}

func fcfOf(s *statement) *float64 {
	if s.fcf != nil {
		return s.fcf
	}
	if s.cfo == nil || s.capex == nil {
		return nil
	}
	return ptr(*s.cfo - math.Abs(*s.capex))
}

func epsOf(s *statement) *float64 {
	return first(s.eps, divPos(s.netIncome, s.shares))
}

func totalDebtOf(s *statement) *float64 {
	if s.totalDebt != nil {
		return s.totalDebt
	}
	if s.longTermDebt == nil && s.shortTermDebt == nil {
		return nil
	}
	return ptr(or0(s.longTermDebt) + or0(s.shortTermDebt))
}

func workingCapitalOf(s *statement) *float64 {
	return sub(s.currentAssets, s.currentLiabilities)
}

// inputs is everything a metric kind may read
type inputs struct {
	cur   *statement
	prior *statement // nil when no matching prior-year period
	price *float64   // close as of the as-of date
}

func (in *inputs) marketCap() *float64 {
	if in.price == nil || in.cur.shares == nil {
		return nil
	}
	return ptr(*in.price * *in.cur.shares)
}

// enterpriseValue = MarketCap + TotalDebt − Cash; missing debt or cash count as zero
func (in *inputs) enterpriseValue() *float64 {
	mcap := in.marketCap()
	if mcap == nil {
		return nil
	}
	return ptr(*mcap + or0(totalDebtOf(in.cur)) - or0(in.cur.cash))
}

// acquirerEV adds preferred stock and minority interest to enterpriseValue
func (in *inputs) acquirerEV() *float64 {
	ev := in.enterpriseValue()
	if ev == nil {
		return nil
	}
	return ptr(*ev + or0(in.cur.preferred) + or0(in.cur.minority))
}

// Valuation ratios: price metric over a positive fundamental

func peRatio(in *inputs) *float64 { return divPos(in.price, epsOf(in.cur)) }
func pbRatio(in *inputs) *float64 { return divPos(in.marketCap(), in.cur.equity) }
func psRatio(in *inputs) *float64 { return divPos(in.marketCap(), in.cur.revenue) }

func evEBITDA(in *inputs) *float64 { return positiveEV(in, ebitdaOf(in.cur)) }
func evEBIT(in *inputs) *float64   { return positiveEV(in, ebitOf(in.cur)) }
func evSales(in *inputs) *float64  { return positiveEV(in, in.cur.revenue) }

func positiveEV(in *inputs, denom *float64) *float64 {
	ev := in.enterpriseValue()
	if ev == nil || *ev <= 0 {
		return nil
	}
	return divPos(ev, denom)
}

func priceToFCF(in *inputs) *float64 { return divPos(in.marketCap(), fcfOf(in.cur)) }

func dividendYield(in *inputs) *float64 {
	if in.cur.dividends == nil {
		return nil
	}
	paid := math.Abs(*in.cur.dividends)
	return divPos(&paid, in.marketCap())
}

// Magic Formula components

// earningsYield = EBIT / EnterpriseValue, null unless EV > 0
func earningsYield(in *inputs) *float64 {
	return divPos(ebitOf(in.cur), in.enterpriseValue())
}

// returnOnCapital = EBIT / (NetWorkingCapital + NetFixedAssets), null unless capital > 0.
// NetFixedAssets = TotalAssets − CurrentAssets − Intangibles − Goodwill.
func returnOnCapital(in *inputs) *float64 {
	s := in.cur
	nwc := workingCapitalOf(s)
	if nwc == nil || s.totalAssets == nil || s.currentAssets == nil {
		return nil
	}
	nfa := *s.totalAssets - *s.currentAssets - or0(s.intangibles) - or0(s.goodwill)
	capital := *nwc + nfa
	return divPos(ebitOf(s), &capital)
}

// acquirersMultiple = EV (incl. preferred and minority) / EBIT, null unless both are positive
func acquirersMultiple(in *inputs) *float64 {
	ev := in.acquirerEV()
	if ev == nil || *ev <= 0 {
		return nil
	}
	return divPos(ev, ebitOf(in.cur))
}

// Profitability

func roe(in *inputs) *float64             { return divPos(in.cur.netIncome, in.cur.equity) }
func roa(in *inputs) *float64             { return divPos(in.cur.netIncome, in.cur.totalAssets) }
func grossMargin(in *inputs) *float64     { return divPos(grossProfitOf(in.cur), in.cur.revenue) }
func operatingMargin(in *inputs) *float64 { return divPos(ebitOf(in.cur), in.cur.revenue) }
func netMargin(in *inputs) *float64       { return divPos(in.cur.netIncome, in.cur.revenue) }
func fcfMargin(in *inputs) *float64       { return divPos(fcfOf(in.cur), in.cur.revenue) }

// Liquidity and leverage

func currentRatio(in *inputs) *float64 { return divPos(in.cur.currentAssets, in.cur.currentLiabilities) }

func quickRatio(in *inputs) *float64 {
	s := in.cur
	if s.currentAssets == nil {
		return nil
	}
	quick := *s.currentAssets - or0(s.inventory)
	return divPos(&quick, s.currentLiabilities)
}

func cashRatio(in *inputs) *float64    { return divPos(in.cur.cash, in.cur.currentLiabilities) }
func debtToEquity(in *inputs) *float64 { return divPos(totalDebtOf(in.cur), in.cur.equity) }
func debtToAssets(in *inputs) *float64 { return divPos(totalDebtOf(in.cur), in.cur.totalAssets) }

func interestCoverage(in *inputs) *float64 {
	if in.cur.interestExpense == nil {
		return nil
	}
	expense := math.Abs(*in.cur.interestExpense)
	return divPos(ebitOf(in.cur), &expense)
}

// Efficiency

func assetTurnover(in *inputs) *float64 {
	var priorTA *float64
	if in.prior != nil {
		priorTA = in.prior.totalAssets
	}
	return divPos(in.cur.revenue, avg2(in.cur.totalAssets, priorTA))
}

func inventoryTurnover(in *inputs) *float64 {
	return divPos(in.cur.costOfRevenue, in.cur.inventory)
}

func receivablesTurnover(in *inputs) *float64 {
	return divPos(in.cur.revenue, in.cur.receivables)
}

// Growth (year over year)

func yoy(in *inputs, get func(*statement) *float64) *float64 {
	if in.prior == nil {
		return nil
	}
	return growth(get(in.cur), get(in.prior))
}

func revenueGrowth(in *inputs) *float64 {
	return yoy(in, func(s *statement) *float64 { return s.revenue })
}

func netIncomeGrowth(in *inputs) *float64 {
	return yoy(in, func(s *statement) *float64 { return s.netIncome })
}

func epsGrowth(in *inputs) *float64 {
	return yoy(in, epsOf)
}
