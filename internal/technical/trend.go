package technical

import (
	"math"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// ADX calculates the Average Directional Index.
//
// Stage 1: +DM, -DM and TR are Wilder-smoothed over period, giving +DI and -DI.
// DX = 100·|+DI − −DI| / (+DI + −DI), null when the DI sum is zero.
// Stage 2: ADX is the Wilder smoothing of the non-null DX values; dates with a
// null DX emit no point and leave the smoothing state unchanged.
// Lines: "plus_di", "minus_di", "dx".
func ADX(bars []contracts.PriceBar, period int) []Point {
	c := columns(bars)
	n := len(c.close)
	if period <= 0 || n < period+1 {
		return nil
	}

	plusDM := nanSlice(n)
	minusDM := nanSlice(n)
	for i := 1; i < n; i++ {
		up := c.high[i] - c.high[i-1]
		down := c.low[i-1] - c.low[i]
		plusDM[i], minusDM[i] = 0, 0
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := wilderValues(trueRange(c), 1, period)
	smPlus := wilderValues(plusDM, 1, period)
	smMinus := wilderValues(minusDM, 1, period)

	type dxPoint struct {
		idx             int
		dx, plus, minus float64
	}
	var dxs []dxPoint
	for i := period; i < n; i++ {
		if atr[i] == 0 || math.IsNaN(atr[i]) {
			continue
		}
		pdi := 100 * smPlus[i] / atr[i]
		mdi := 100 * smMinus[i] / atr[i]
		sum := pdi + mdi
		if sum == 0 {
			continue // DX is null
		}
		dxs = append(dxs, dxPoint{idx: i, dx: 100 * math.Abs(pdi-mdi) / sum, plus: pdi, minus: mdi})
	}

	if len(dxs) < period {
		return nil
	}

	out := make([]Point, 0, len(dxs)-period+1)
	sum := 0.0
	for j := 0; j < period; j++ {
		sum += dxs[j].dx
	}
	adx := sum / float64(period)
	emit := func(d dxPoint, v float64) {
		out = append(out, Point{
			Date:  c.dates[d.idx],
			Value: v,
			Lines: map[string]float64{"plus_di": d.plus, "minus_di": d.minus, "dx": d.dx},
		})
	}
	emit(dxs[period-1], adx)

	for j := period; j < len(dxs); j++ {
		adx = (adx*float64(period-1) + dxs[j].dx) / float64(period)
		emit(dxs[j], adx)
	}
	return out
}

// Ichimoku calculates the five Ichimoku lines.
//
// Tenkan and Kijun are midpoints of the highest high and lowest low over their
// windows. Senkou A = (Tenkan+Kijun)/2 and Senkou B (midpoint over senkouB bars)
// are shifted forward by displacement: the value shown at index i was computed at
// i−displacement. Chikou at index i is the close at i+displacement. Every input
// date gets a point whose Value is that date's close; a line is absent from Lines
// when its source index is outside the series or still in warm-up.
//
// The cloud computed on the last displacement bars is projected past the series
// on synthesized weekday dates. Projected points are flagged, carry only the
// Senkou lines and take Senkou A (or B during its warm-up) as Value.
func Ichimoku(bars []contracts.PriceBar, tenkan, kijun, senkouB, displacement int) []Point {
	c := columns(bars)
	n := len(c.close)
	if tenkan <= 0 || kijun <= 0 || senkouB <= 0 || displacement < 0 || n == 0 {
		return nil
	}

	midpoint := func(period int) []float64 {
		out := nanSlice(n)
		for i := period - 1; i < n; i++ {
			hh, ll := windowHighLow(c.high, c.low, i-period+1, i)
			out[i] = (hh + ll) / 2
		}
		return out
	}

	conv := midpoint(tenkan)
	base := midpoint(kijun)
	spanB := midpoint(senkouB)

	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		lines := make(map[string]float64, 5)
		setIf := func(name string, v float64) {
			if !math.IsNaN(v) {
				lines[name] = v
			}
		}
		setIf("tenkan", conv[i])
		setIf("kijun", base[i])
		if src := i - displacement; src >= 0 {
			setIf("senkou_a", (conv[src]+base[src])/2)
			setIf("senkou_b", spanB[src])
		}
		if src := i + displacement; src < n {
			lines["chikou"] = c.close[src]
		}
		out = append(out, Point{Date: c.dates[i], Value: c.close[i], Lines: lines})
	}

	date := c.dates[n-1]
	for src := n - displacement; src < n; src++ {
		date = nextWeekday(date)
		if src < 0 {
			continue
		}
		lines := make(map[string]float64, 2)
		if v := (conv[src] + base[src]) / 2; !math.IsNaN(v) {
			lines["senkou_a"] = v
		}
		if !math.IsNaN(spanB[src]) {
			lines["senkou_b"] = spanB[src]
		}
		value, ok := lines["senkou_a"]
		if !ok {
			if value, ok = lines["senkou_b"]; !ok {
				continue
			}
		}
		out = append(out, Point{Date: date, Value: value, Lines: lines, Projected: true})
	}
	return out
}

// nextWeekday returns the first Monday-to-Friday date after d
func nextWeekday(d time.Time) time.Time {
	d = d.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// OBV calculates on-balance volume starting at zero
func OBV(bars []contracts.PriceBar) []Point {
	c := columns(bars)
	if len(c.close) == 0 {
		return nil
	}

	out := make([]Point, len(c.close))
	obv := 0.0
	out[0] = Point{Date: c.dates[0], Value: 0}
	for i := 1; i < len(c.close); i++ {
		switch {
		case c.close[i] > c.close[i-1]:
			obv += c.volume[i]
		case c.close[i] < c.close[i-1]:
			obv -= c.volume[i]
		}
		out[i] = Point{Date: c.dates[i], Value: obv}
	}
	return out
}
