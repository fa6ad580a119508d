package technical

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds bars with high = close+1 and low = close-1
func barsFromCloses(closes ...float64) []contracts.PriceBar {
	bars := make([]contracts.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.PriceBar{
			Company: "TEST",
			Date:    start.AddDate(0, 0, i),
			Open:    decimal.NewFromFloat(c),
			High:    decimal.NewFromFloat(c + 1),
			Low:     decimal.NewFromFloat(c - 1),
			Close:   decimal.NewFromFloat(c),
			Volume:  1000,
		}
	}
	return bars
}

func linear(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func values(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

func TestSMA(t *testing.T) {
	pts := SMA(barsFromCloses(1, 2, 3, 4, 5), 3)

	require.Len(t, pts, 3)
	assert.InDeltaSlice(t, []float64{2, 3, 4}, values(pts), 1e-12)
	assert.Equal(t, start.AddDate(0, 0, 2), pts[0].Date, "warm-up points are omitted")
}

func TestEMA_SeededWithSMA(t *testing.T) {
	pts := EMA(barsFromCloses(1, 2, 3, 4, 5), 3)

	require.Len(t, pts, 3)
	// seed = SMA(1,2,3) = 2, multiplier = 0.5
	assert.InDeltaSlice(t, []float64{2, 3, 4}, values(pts), 1e-12)

	assert.Empty(t, EMA(barsFromCloses(1, 2), 3))
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{"strictly increasing", linear(20, 10, 1), 100},
		{"strictly decreasing", linear(20, 40, -1), 0},
		{"flat", linear(20, 10, 0), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := RSI(barsFromCloses(tt.closes...), 14)
			require.Len(t, pts, 20-14)
			for _, p := range pts {
				assert.InDelta(t, tt.want, p.Value, 1e-9)
			}
		})
	}
}

func TestRSI_WilderSmoothing(t *testing.T) {
	pts := RSI(barsFromCloses(1, 2, 1, 2), 2)

	require.Len(t, pts, 2)
	// first: avgGain 0.5, avgLoss 0.5; then avgGain (0.5+1)/2, avgLoss (0.5+0)/2
	assert.InDelta(t, 50, pts[0].Value, 1e-9)
	assert.InDelta(t, 75, pts[1].Value, 1e-9)
}

func TestRSI_NotEnoughChanges(t *testing.T) {
	assert.Empty(t, RSI(barsFromCloses(linear(14, 1, 1)...), 14))
	assert.Len(t, RSI(barsFromCloses(linear(15, 1, 1)...), 14), 1)
}

func TestMACD(t *testing.T) {
	pts := MACD(barsFromCloses(linear(10, 1, 1)...), 2, 3, 2)

	require.Len(t, pts, 10-2-1)
	for _, p := range pts {
		assert.InDelta(t, p.Value-p.Lines["signal"], p.Lines["histogram"], 1e-12)
		// linear series: fast and slow EMAs lag by a constant
		assert.InDelta(t, 0.5, p.Value, 1e-9)
	}
}

func TestBollinger(t *testing.T) {
	pts := Bollinger(barsFromCloses(1, 2, 3, 4), 4, 2)

	require.Len(t, pts, 1)
	sd := math.Sqrt(1.25) // population stddev of 1..4
	assert.InDelta(t, 2.5, pts[0].Value, 1e-12)
	assert.InDelta(t, 2.5+2*sd, pts[0].Lines["upper"], 1e-12)
	assert.InDelta(t, 2.5-2*sd, pts[0].Lines["lower"], 1e-12)

	flat := Bollinger(barsFromCloses(5, 5, 5), 3, 2)
	require.Len(t, flat, 1)
	_, hasPctB := flat[0].Lines["pct_b"]
	assert.False(t, hasPctB, "%B is undefined for zero-width bands")
}

func TestATR_ConstantRange(t *testing.T) {
	pts := ATR(barsFromCloses(linear(20, 10, 0)...), 14)

	require.Len(t, pts, 20-14)
	for _, p := range pts {
		assert.InDelta(t, 2, p.Value, 1e-12)
	}
}

func TestADX(t *testing.T) {
	t.Run("trending series", func(t *testing.T) {
		pts := ADX(barsFromCloses(linear(40, 10, 1)...), 5)

		require.Len(t, pts, 40-2*5+1)
		for _, p := range pts {
			assert.InDelta(t, 100, p.Value, 1e-9)
			assert.InDelta(t, 0, p.Lines["minus_di"], 1e-12)
		}
	})

	t.Run("no directional movement", func(t *testing.T) {
		// +DI + -DI == 0 on every date: DX is null, so ADX has no points
		assert.Empty(t, ADX(barsFromCloses(linear(40, 10, 0)...), 5))
	})
}

func TestIchimoku_Shifts(t *testing.T) {
	closes := linear(60, 100, 1)
	pts := Ichimoku(barsFromCloses(closes...), 9, 26, 52, 26)

	// 60 bars plus 26 projected cloud points
	require.Len(t, pts, 86)

	first := pts[0].Lines
	assert.Equal(t, closes[26], first["chikou"])
	_, ok := first["tenkan"]
	assert.False(t, ok)

	_, ok = pts[8].Lines["tenkan"]
	assert.True(t, ok)

	// senkou A needs kijun at the source index (i-26 >= 25)
	_, ok = pts[50].Lines["senkou_a"]
	assert.False(t, ok)
	spanA, ok := pts[51].Lines["senkou_a"]
	require.True(t, ok)
	assert.InDelta(t, (pts[25].Lines["tenkan"]+pts[25].Lines["kijun"])/2, spanA, 1e-12)

	_, ok = pts[59].Lines["chikou"]
	assert.False(t, ok)
	assert.Equal(t, closes[59], pts[59].Value)
	assert.False(t, pts[59].Projected)

	// projected cloud: the span computed at bar 34+k is shown k+1 weekdays after the last bar
	projected := pts[60:]
	last := pts[59].Date // Thursday 2024-02-29
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), projected[0].Date)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), projected[1].Date)
	for i, p := range projected {
		assert.True(t, p.Projected, i)
		assert.True(t, p.Date.After(last), i)
		assert.NotEqual(t, time.Saturday, p.Date.Weekday())
		assert.NotEqual(t, time.Sunday, p.Date.Weekday())
		_, hasChikou := p.Lines["chikou"]
		assert.False(t, hasChikou)
	}
	end := projected[len(projected)-1]
	assert.InDelta(t, (pts[59].Lines["tenkan"]+pts[59].Lines["kijun"])/2, end.Lines["senkou_a"], 1e-12)
	assert.Equal(t, end.Lines["senkou_a"], end.Value)
	_, ok = end.Lines["senkou_b"]
	assert.True(t, ok)
}

func TestIchimoku_ProjectionSkipsWarmup(t *testing.T) {
	// 10 bars: kijun (26) never warms up, so no Senkou line exists anywhere
	pts := Ichimoku(barsFromCloses(linear(10, 100, 1)...), 9, 26, 52, 26)
	require.Len(t, pts, 10)
	for _, p := range pts {
		assert.False(t, p.Projected)
	}
}

func TestOBV(t *testing.T) {
	pts := OBV(barsFromCloses(1, 2, 2, 1))
	assert.Equal(t, []float64{0, 1000, 1000, 0}, values(pts))
}

func TestCompute(t *testing.T) {
	bars := barsFromCloses(linear(30, 10, 1)...)

	t.Run("restartable", func(t *testing.T) {
		seq, err := Compute(KindSMA, bars, Params{Period: 5})
		require.NoError(t, err)

		first := Collect(seq)
		second := Collect(seq)
		assert.Equal(t, first, second)
		assert.Len(t, first, 26)
	})

	t.Run("early stop", func(t *testing.T) {
		seq, err := Compute(KindRSI, bars, Params{})
		require.NoError(t, err)

		count := 0
		for range seq {
			count++
			if count == 2 {
				break
			}
		}
		assert.Equal(t, 2, count)
	})

	t.Run("every kind", func(t *testing.T) {
		for _, k := range Kinds() {
			_, err := Compute(k, bars, Params{})
			assert.NoError(t, err, k)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Compute("vwap", bars, Params{})
		var cfgErr *contracts.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalid params", func(t *testing.T) {
		_, err := Compute(KindMACD, bars, Params{Fast: 30, Slow: 10})
		assert.Error(t, err)

		_, err = Compute(KindSMA, bars, Params{Period: -1})
		assert.Error(t, err)
	})
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	p, ok := Latest(SMA(barsFromCloses(1, 2, 3), 2))
	require.True(t, ok)
	assert.InDelta(t, 2.5, p.Value, 1e-12)
}

func TestSupportResistance(t *testing.T) {
	bars := barsFromCloses(10, 12, 11, 14, 9, 13, 15, 12, 16)

	tests := []struct {
		name       string
		bar        int
		support    float64
		resistance float64
	}{
		{"high confirmed after its window", 5, 0, 14},
		{"breakout above the only high", 6, 9, 0},
		{"between both levels", 7, 9, 14},
		{"new high not yet confirmed", 8, 9, 0},
	}

	got := SupportResistance(bars, 2)
	require.Len(t, got, len(tests))
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := got[i]
			assert.Equal(t, bars[tt.bar].Date, p.Date)
			assert.InDelta(t, bars[tt.bar].Close.InexactFloat64(), p.Value, 1e-9)

			s, ok := p.Lines["support"]
			assert.Equal(t, tt.support != 0, ok)
			assert.InDelta(t, tt.support, s, 1e-9)

			r, ok := p.Lines["resistance"]
			assert.Equal(t, tt.resistance != 0, ok)
			assert.InDelta(t, tt.resistance, r, 1e-9)
		})
	}

	t.Run("flat series has no levels", func(t *testing.T) {
		assert.Empty(t, SupportResistance(barsFromCloses(5, 5, 5, 5, 5, 5, 5), 2))
	})

	t.Run("window longer than series", func(t *testing.T) {
		assert.Nil(t, SupportResistance(bars, 5))
	})

	t.Run("default window through compute", func(t *testing.T) {
		seq, err := Compute(KindLevels, barsFromCloses(linear(60, 100, 1)...), Params{})
		require.NoError(t, err)
		assert.Empty(t, Collect(seq))
	})
}
