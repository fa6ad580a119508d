package backtest

import (
	"math"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// daysPerYear converts elapsed calendar days into years for CAGR
const daysPerYear = 365.25

// Summarize computes performance statistics over an equity curve that started at startValue.
// Daily returns run from startValue through every curve point.
func Summarize(curve []contracts.EquityPoint, startValue, riskFreeRate float64) contracts.PerformanceSummary {
	summary := contracts.PerformanceSummary{StartValue: startValue, TradingDays: len(curve)}
	if len(curve) == 0 || startValue <= 0 {
		return summary
	}

	end := curve[len(curve)-1]
	summary.EndValue = end.Value
	summary.TotalReturn = end.Value/startValue - 1
	summary.Years = end.Date.Sub(curve[0].Date).Hours() / 24 / daysPerYear
	if summary.Years > 0 && end.Value > 0 {
		summary.CAGR = math.Pow(end.Value/startValue, 1/summary.Years) - 1
	}

	returns := dailyReturns(curve, startValue)
	mean, std := meanStd(returns)
	rfDaily := riskFreeRate / TradingDaysPerYear
	annualFactor := math.Sqrt(TradingDaysPerYear)

	summary.Volatility = std * annualFactor
	if std > 0 {
		summary.Sharpe = (mean - rfDaily) * TradingDaysPerYear / (std * annualFactor)
	}
	if dd := downsideDeviation(returns, rfDaily); dd > 0 {
		summary.Sortino = (mean - rfDaily) * TradingDaysPerYear / (dd * annualFactor)
	}
	summary.MaxDrawdown = maxDrawdown(curve, startValue)
	summary.WinRate = winRate(returns)

	tail := HistoricalTailRisk(returns, tailConfidence)
	summary.VaR95, summary.CVaR95 = tail.VaR, tail.CVaR

	return summary
}

func dailyReturns(curve []contracts.EquityPoint, startValue float64) []float64 {
	returns := make([]float64, 0, len(curve))
	prev := startValue
	for _, p := range curve {
		if prev > 0 {
			returns = append(returns, p.Value/prev-1)
		}
		prev = p.Value
	}
	return returns
}

// meanStd returns the mean and population standard deviation
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(variance / float64(len(xs)))
}

func downsideDeviation(returns []float64, target float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		if d := r - target; d < 0 {
			sum += d * d
		}
	}
	return math.Sqrt(sum / float64(len(returns)))
}

// maxDrawdown is the largest peak-to-trough decline as a positive fraction
func maxDrawdown(curve []contracts.EquityPoint, startValue float64) float64 {
	peak := startValue
	worst := 0.0
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func winRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// YearlyTable returns calendar-year returns measured from the prior year-end value.
// benchmark may be nil; otherwise it must share the strategy's dates.
func YearlyTable(strategy []contracts.EquityPoint, strategyStart float64, benchmark []contracts.EquityPoint, benchmarkStart float64) []contracts.YearlyReturn {
	stratEnds := yearEndList(strategy)
	benchEnds := yearEnds(benchmark)

	var out []contracts.YearlyReturn
	stratBase, benchBase := strategyStart, benchmarkStart
	for _, ye := range stratEnds {
		row := contracts.YearlyReturn{Year: ye.year}
		if stratBase > 0 {
			row.StrategyReturn = ye.value/stratBase - 1
		}
		if be, ok := benchEnds[ye.year]; ok && benchBase > 0 {
			br := be/benchBase - 1
			excess := row.StrategyReturn - br
			row.BenchmarkReturn = &br
			row.ExcessReturn = &excess
			benchBase = be
		}
		stratBase = ye.value
		out = append(out, row)
	}
	return out
}

type yearEnd struct {
	year  int
	value float64
}

// yearEndList returns the last point of each year, in order
func yearEndList(curve []contracts.EquityPoint) []yearEnd {
	var out []yearEnd
	for _, p := range curve {
		y := p.Date.Year()
		if n := len(out); n > 0 && out[n-1].year == y {
			out[n-1].value = p.Value
			continue
		}
		out = append(out, yearEnd{year: y, value: p.Value})
	}
	return out
}

func yearEnds(curve []contracts.EquityPoint) map[int]float64 {
	out := make(map[int]float64)
	for _, ye := range yearEndList(curve) {
		out[ye.year] = ye.value
	}
	return out
}
