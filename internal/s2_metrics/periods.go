package s2_metrics

import (
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// statement is one period's line items as nullable floats.
// A TTM statement sums flow items over four quarters and takes stock items from the last one.
type statement struct {
	periodEnd time.Time
	ttm       bool

	revenue, costOfRevenue, grossProfit, operatingIncome, ebit, ebitda *float64
	netIncome, interestExpense, incomeTax, eps, sga, depreciation      *float64

	totalAssets, currentAssets, totalLiabilities, currentLiabilities *float64
	cash, receivables, inventory, ppe, intangibles, goodwill        *float64
	totalDebt, longTermDebt, shortTermDebt, taxPayable              *float64
	preferred, minority, equity, retainedEarnings, shares           *float64

	cfo, capex, fcf, dividends *float64
}

func fromRecord(r *contracts.FundamentalRecord) *statement {
	n := contracts.Num
	return &statement{
		periodEnd:          r.PeriodEnd,
		revenue:            n(r.Revenue),
		costOfRevenue:      n(r.CostOfRevenue),
		grossProfit:        n(r.GrossProfit),
		operatingIncome:    n(r.OperatingIncome),
		ebit:               n(r.EBIT),
		ebitda:             n(r.EBITDA),
		netIncome:          n(r.NetIncome),
		interestExpense:    n(r.InterestExpense),
		incomeTax:          n(r.IncomeTax),
		eps:                n(r.EPS),
		sga:                n(r.SGAExpense),
		depreciation:       n(r.DepreciationAmor),
		totalAssets:        n(r.TotalAssets),
		currentAssets:      n(r.CurrentAssets),
		totalLiabilities:   n(r.TotalLiabilities),
		currentLiabilities: n(r.CurrentLiabilities),
		cash:               n(r.Cash),
		receivables:        n(r.Receivables),
		inventory:          n(r.Inventory),
		ppe:                n(r.PPENet),
		intangibles:        n(r.Intangibles),
		goodwill:           n(r.Goodwill),
		totalDebt:          n(r.TotalDebt),
		longTermDebt:       n(r.LongTermDebt),
		shortTermDebt:      n(r.ShortTermDebt),
		taxPayable:         n(r.IncomeTaxPayable),
		preferred:          n(r.PreferredStock),
		minority:           n(r.MinorityInterest),
		equity:             n(r.TotalEquity),
		retainedEarnings:   n(r.RetainedEarnings),
		shares:             n(r.SharesOutstanding),
		cfo:                n(r.OperatingCashFlow),
		capex:              n(r.Capex),
		fcf:                n(r.FreeCashFlow),
		dividends:          n(r.DividendsPaid),
	}
}

// sumFlow adds a flow item across quarters; any missing quarter nulls the sum
func sumFlow(quarters []*statement, get func(*statement) *float64) *float64 {
	total := 0.0
	for _, q := range quarters {
		v := get(q)
		if v == nil {
			return nil
		}
		total += *v
	}
	return &total
}

// buildTTM aggregates four consecutive quarters (oldest first)
func buildTTM(quarters []*statement) *statement {
	last := *quarters[len(quarters)-1]
	s := &last
	s.ttm = true

	flows := []struct {
		dst **float64
		get func(*statement) *float64
	}{
		{&s.revenue, func(q *statement) *float64 { return q.revenue }},
		{&s.costOfRevenue, func(q *statement) *float64 { return q.costOfRevenue }},
		{&s.grossProfit, func(q *statement) *float64 { return q.grossProfit }},
		{&s.operatingIncome, func(q *statement) *float64 { return q.operatingIncome }},
		{&s.ebit, func(q *statement) *float64 { return q.ebit }},
		{&s.ebitda, func(q *statement) *float64 { return q.ebitda }},
		{&s.netIncome, func(q *statement) *float64 { return q.netIncome }},
		{&s.interestExpense, func(q *statement) *float64 { return q.interestExpense }},
		{&s.incomeTax, func(q *statement) *float64 { return q.incomeTax }},
		{&s.eps, func(q *statement) *float64 { return q.eps }},
		{&s.sga, func(q *statement) *float64 { return q.sga }},
		{&s.depreciation, func(q *statement) *float64 { return q.depreciation }},
		{&s.cfo, func(q *statement) *float64 { return q.cfo }},
		{&s.capex, func(q *statement) *float64 { return q.capex }},
		{&s.fcf, func(q *statement) *float64 { return q.fcf }},
		{&s.dividends, func(q *statement) *float64 { return q.dividends }},
	}
	for _, f := range flows {
		*f.dst = sumFlow(quarters, f.get)
	}
	return s
}

const (
	minQuarterGap = 60 * 24 * time.Hour
	maxQuarterGap = 120 * 24 * time.Hour
	yearTolerance = 45 * 24 * time.Hour
)

// ttmEndingAt builds a TTM statement from the four quarters ending at quarters[end]
func ttmEndingAt(quarters []*statement, end int) *statement {
	if end < 3 {
		return nil
	}
	window := quarters[end-3 : end+1]
	for i := 1; i < len(window); i++ {
		gap := window[i].periodEnd.Sub(window[i-1].periodEnd)
		if gap < minQuarterGap || gap > maxQuarterGap {
			return nil
		}
	}
	return buildTTM(window)
}

// oneYearBefore reports whether prior ends roughly one year before cur
func oneYearBefore(prior, cur time.Time) bool {
	target := cur.AddDate(-1, 0, 0)
	d := prior.Sub(target)
	if d < 0 {
		d = -d
	}
	return d <= yearTolerance
}

// selectPeriods picks the current and prior-year statements usable as of asOf.
// The current period is the latest FY record or the TTM of the four latest
// consecutive quarters, whichever ends later (FY on tie). prior is nil when no
// matching statement ends one year earlier.
func selectPeriods(history []contracts.FundamentalRecord, asOf time.Time) (cur, prior *statement) {
	var annual, quarters []*statement
	sorted := make([]contracts.FundamentalRecord, 0, len(history))
	for _, r := range history {
		if r.PeriodEnd.After(asOf) || r.AvailableAt().After(asOf) {
			continue
		}
		sorted = append(sorted, r)
	}
	contracts.SortHistory(sorted)

	for i := range sorted {
		st := fromRecord(&sorted[i])
		if sorted[i].PeriodType == contracts.PeriodFY {
			annual = append(annual, st)
		} else {
			quarters = append(quarters, st)
		}
	}

	var fy, fyPrior *statement
	if len(annual) > 0 {
		fy = annual[len(annual)-1]
		for i := len(annual) - 2; i >= 0; i-- {
			if oneYearBefore(annual[i].periodEnd, fy.periodEnd) {
				fyPrior = annual[i]
				break
			}
		}
	}

	var ttm, ttmPrior *statement
	if len(quarters) >= 4 {
		last := len(quarters) - 1
		ttm = ttmEndingAt(quarters, last)
		if ttm != nil {
			for i := last - 1; i >= 3; i-- {
				if oneYearBefore(quarters[i].periodEnd, ttm.periodEnd) {
					ttmPrior = ttmEndingAt(quarters, i)
					break
				}
			}
			if ttmPrior == nil {
				for i := len(annual) - 1; i >= 0; i-- {
					if oneYearBefore(annual[i].periodEnd, ttm.periodEnd) {
						ttmPrior = annual[i]
						break
					}
				}
			}
		}
	}

	switch {
	case ttm != nil && (fy == nil || ttm.periodEnd.After(fy.periodEnd)):
		return ttm, ttmPrior
	case fy != nil:
		return fy, fyPrior
	}
	return nil, nil
}
