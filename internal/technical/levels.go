package technical

import (
	"math"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// DefaultPivotWindow is the bars on each side a pivot must dominate
const DefaultPivotWindow = 20

// SupportResistance finds the nearest pivot levels around each close.
//
// A close at index i is a pivot low when it is the minimum of closes
// [i−window, i+window] and otherwise a pivot high when it is the maximum.
// A pivot is known only once its right-hand window has printed, so the
// point at index j uses pivots with i+window <= j. Lines carry "support",
// the highest pivot low below close[j], and "resistance", the lowest pivot
// high above it; Value is close[j]. Dates with neither level are omitted.
func SupportResistance(bars []contracts.PriceBar, window int) []Point {
	c := columns(bars)
	n := len(c.close)
	if window <= 0 || n < 2*window+1 {
		return nil
	}

	var lows, highs []float64
	out := make([]Point, 0, n-2*window)
	for j := 2 * window; j < n; j++ {
		i := j - window
		segLow, segHigh := math.Inf(1), math.Inf(-1)
		for _, v := range c.close[i-window : j+1] {
			segLow = math.Min(segLow, v)
			segHigh = math.Max(segHigh, v)
		}
		switch mid := c.close[i]; mid {
		case segLow:
			lows = append(lows, mid)
		case segHigh:
			highs = append(highs, mid)
		}

		px := c.close[j]
		lines := make(map[string]float64, 2)
		if s, ok := nearest(lows, func(v float64) bool { return v < px }, math.Max); ok {
			lines["support"] = s
		}
		if r, ok := nearest(highs, func(v float64) bool { return v > px }, math.Min); ok {
			lines["resistance"] = r
		}
		if len(lines) == 0 {
			continue
		}
		out = append(out, Point{Date: c.dates[j], Value: px, Lines: lines})
	}
	return out
}

// nearest folds the levels that pass keep with pick
func nearest(levels []float64, keep func(float64) bool, pick func(a, b float64) float64) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, v := range levels {
		if !keep(v) {
			continue
		}
		if !found {
			best, found = v, true
			continue
		}
		best = pick(best, v)
	}
	return best, found
}
