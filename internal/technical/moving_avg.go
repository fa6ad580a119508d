package technical

import (
	"math"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// SMA calculates the simple moving average of closes
func SMA(bars []contracts.PriceBar, period int) []Point {
	c := columns(bars)
	return points(c.dates, smaValues(c.close, period))
}

// EMA calculates the exponential moving average of closes.
// The seed is the first SMA(period) value; multiplier is 2/(period+1).
func EMA(bars []contracts.PriceBar, period int) []Point {
	c := columns(bars)
	return points(c.dates, emaValues(c.close, period))
}

// smaValues returns a NaN-padded rolling mean.
// A NaN input restarts the window.
func smaValues(data []float64, period int) []float64 {
	out := nanSlice(len(data))
	if period <= 0 {
		return out
	}

	sum := 0.0
	count := 0
	for i, v := range data {
		if math.IsNaN(v) {
			sum, count = 0, 0
			continue
		}
		sum += v
		count++
		if count > period {
			sum -= data[i-period]
			count = period
		}
		if count == period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// emaValues returns a NaN-padded EMA seeded with the first full SMA window.
// Leading NaN values are skipped so EMA can be chained onto another NaN-padded series.
func emaValues(data []float64, period int) []float64 {
	out := nanSlice(len(data))
	if period <= 0 {
		return out
	}

	start := 0
	for start < len(data) && math.IsNaN(data[start]) {
		start++
	}
	if len(data)-start < period {
		return out
	}

	sum := 0.0
	for i := start; i < start+period; i++ {
		sum += data[i]
	}
	prev := sum / float64(period)
	out[start+period-1] = prev

	k := 2.0 / float64(period+1)
	for i := start + period; i < len(data); i++ {
		prev = (data[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// wilderValues returns a NaN-padded Wilder average of data starting at index from:
// the first value is the mean of data[from:from+period], then (prev*(n-1)+cur)/n.
func wilderValues(data []float64, from, period int) []float64 {
	out := nanSlice(len(data))
	if period <= 0 || len(data)-from < period {
		return out
	}

	sum := 0.0
	for i := from; i < from+period; i++ {
		sum += data[i]
	}
	prev := sum / float64(period)
	out[from+period-1] = prev

	for i := from + period; i < len(data); i++ {
		prev = (prev*float64(period-1) + data[i]) / float64(period)
		out[i] = prev
	}
	return out
}
