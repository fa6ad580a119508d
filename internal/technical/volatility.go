package technical

import (
	"math"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// Bollinger calculates Bollinger Bands: middle = SMA(period), bands = middle ± mult·stddev.
// Standard deviation is the population form (divide by period).
// Lines: "upper", "lower", "pct_b", "bandwidth".
func Bollinger(bars []contracts.PriceBar, period int, mult float64) []Point {
	c := columns(bars)
	n := len(c.close)
	if period <= 0 || n < period {
		return nil
	}

	out := make([]Point, 0, n-period+1)
	for i := period - 1; i < n; i++ {
		window := c.close[i-period+1 : i+1]
		mean := average(window)
		sd := populationStdDev(window, mean)
		upper := mean + mult*sd
		lower := mean - mult*sd

		lines := map[string]float64{
			"upper": upper,
			"lower": lower,
		}
		if upper != lower {
			lines["pct_b"] = (c.close[i] - lower) / (upper - lower)
		}
		if mean != 0 {
			lines["bandwidth"] = (upper - lower) / mean
		}
		out = append(out, Point{Date: c.dates[i], Value: mean, Lines: lines})
	}
	return out
}

// trueRange returns TR per bar; index 0 has no previous close and is NaN
func trueRange(c ohlc) []float64 {
	tr := nanSlice(len(c.close))
	for i := 1; i < len(c.close); i++ {
		hl := c.high[i] - c.low[i]
		hc := math.Abs(c.high[i] - c.close[i-1])
		lc := math.Abs(c.low[i] - c.close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// ATR calculates the Wilder-smoothed average true range
func ATR(bars []contracts.PriceBar, period int) []Point {
	c := columns(bars)
	if period <= 0 {
		return nil
	}
	return points(c.dates, wilderValues(trueRange(c), 1, period))
}

// Volatility calculates annualized population stddev of daily close-to-close returns
// over a rolling window of period returns.
func Volatility(bars []contracts.PriceBar, period int) []Point {
	c := columns(bars)
	n := len(c.close)
	if period <= 1 || n < period+1 {
		return nil
	}

	rets := nanSlice(n)
	for i := 1; i < n; i++ {
		if c.close[i-1] > 0 {
			rets[i] = c.close[i]/c.close[i-1] - 1
		}
	}

	vol := nanSlice(n)
	for i := period; i < n; i++ {
		window := rets[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		vol[i] = populationStdDev(window, average(window)) * math.Sqrt(TradingDaysPerYear)
	}
	return points(c.dates, vol)
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func populationStdDev(vals []float64, mean float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	ss := 0.0
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}

func hasNaN(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
