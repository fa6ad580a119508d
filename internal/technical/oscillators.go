package technical

import (
	"math"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// RSI calculates the Relative Strength Index with Wilder smoothing.
// The first average gain/loss is the simple mean of the first period changes;
// no point is emitted until period changes exist. A flat window yields 50.
func RSI(bars []contracts.PriceBar, period int) []Point {
	c := columns(bars)
	n := len(c.close)
	if period <= 0 || n < period+1 {
		return nil
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := c.close[i] - c.close[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := wilderValues(gains, 1, period)
	avgLoss := wilderValues(losses, 1, period)

	rsi := nanSlice(n)
	for i := period; i < n; i++ {
		rsi[i] = rsiFrom(avgGain[i], avgLoss[i])
	}
	return points(c.dates, rsi)
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD calculates EMA(fast) - EMA(slow) with an EMA(signal) signal line.
// Points start once the signal line exists; Lines holds "signal" and "histogram".
func MACD(bars []contracts.PriceBar, fast, slow, signal int) []Point {
	c := columns(bars)
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil
	}

	fastEMA := emaValues(c.close, fast)
	slowEMA := emaValues(c.close, slow)

	line := nanSlice(len(c.close))
	for i := range line {
		line[i] = fastEMA[i] - slowEMA[i] // NaN propagates
	}
	sig := emaValues(line, signal)

	out := make([]Point, 0, len(line))
	for i := range line {
		if math.IsNaN(sig[i]) {
			continue
		}
		out = append(out, Point{
			Date:  c.dates[i],
			Value: line[i],
			Lines: map[string]float64{
				"signal":    sig[i],
				"histogram": line[i] - sig[i],
			},
		})
	}
	return out
}

// Stochastic calculates %K over period bars and %D as SMA(%K, smooth).
// A window with no range yields %K = 50.
func Stochastic(bars []contracts.PriceBar, period, smooth int) []Point {
	c := columns(bars)
	n := len(c.close)
	if period <= 0 || smooth <= 0 || n < period {
		return nil
	}

	k := nanSlice(n)
	for i := period - 1; i < n; i++ {
		hh, ll := windowHighLow(c.high, c.low, i-period+1, i)
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = 100 * (c.close[i] - ll) / (hh - ll)
	}
	d := smaValues(k, smooth)

	out := make([]Point, 0, n)
	for i := range k {
		if math.IsNaN(d[i]) {
			continue
		}
		out = append(out, Point{Date: c.dates[i], Value: k[i], Lines: map[string]float64{"d": d[i]}})
	}
	return out
}

// WilliamsR calculates Williams %R in [-100, 0]
func WilliamsR(bars []contracts.PriceBar, period int) []Point {
	c := columns(bars)
	n := len(c.close)
	if period <= 0 || n < period {
		return nil
	}

	wr := nanSlice(n)
	for i := period - 1; i < n; i++ {
		hh, ll := windowHighLow(c.high, c.low, i-period+1, i)
		if hh == ll {
			continue
		}
		wr[i] = -100 * (hh - c.close[i]) / (hh - ll)
	}
	return points(c.dates, wr)
}

// ROC calculates the percentage rate of change over period bars
func ROC(bars []contracts.PriceBar, period int) []Point {
	c := columns(bars)
	n := len(c.close)
	if period <= 0 || n <= period {
		return nil
	}

	roc := nanSlice(n)
	for i := period; i < n; i++ {
		base := c.close[i-period]
		if base == 0 {
			continue
		}
		roc[i] = (c.close[i]/base - 1) * 100
	}
	return points(c.dates, roc)
}

// windowHighLow returns the highest high and lowest low over [from, to]
func windowHighLow(high, low []float64, from, to int) (float64, float64) {
	hh, ll := math.Inf(-1), math.Inf(1)
	for j := from; j <= to; j++ {
		if high[j] > hh {
			hh = high[j]
		}
		if low[j] < ll {
			ll = low[j]
		}
	}
	return hh, ll
}
