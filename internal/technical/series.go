// Package technical computes price-series indicators.
// Every function is a pure function of its input slice; nothing is retained between calls.
package technical

import (
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// Kind names an indicator
type Kind string

const (
	KindSMA        Kind = "sma"
	KindEMA        Kind = "ema"
	KindRSI        Kind = "rsi"
	KindMACD       Kind = "macd"
	KindBollinger  Kind = "bollinger"
	KindATR        Kind = "atr"
	KindADX        Kind = "adx"
	KindIchimoku   Kind = "ichimoku"
	KindStochastic Kind = "stochastic"
	KindWilliamsR  Kind = "williams_r"
	KindOBV        Kind = "obv"
	KindROC        Kind = "roc"
	KindVolatility Kind = "volatility"
	KindLevels     Kind = "support_resistance"
)

// Kinds lists every supported indicator
func Kinds() []Kind {
	return []Kind{
		KindSMA, KindEMA, KindRSI, KindMACD, KindBollinger, KindATR, KindADX,
		KindIchimoku, KindStochastic, KindWilliamsR, KindOBV, KindROC, KindVolatility,
		KindLevels,
	}
}

// Point is one output value. Multi-line indicators carry extra lines in Lines.
type Point struct {
	Date      time.Time          `json:"date"`
	Value     float64            `json:"value"`
	Lines     map[string]float64 `json:"lines,omitempty"`
	Projected bool               `json:"projected,omitempty"` // dated past the last bar
}

// Params configures an indicator; zero fields take the kind's default
type Params struct {
	Period       int     `json:"period,omitempty"`
	Fast         int     `json:"fast,omitempty"`
	Slow         int     `json:"slow,omitempty"`
	Signal       int     `json:"signal,omitempty"`
	StdDev       float64 `json:"stddev,omitempty"`
	Tenkan       int     `json:"tenkan,omitempty"`
	Kijun        int     `json:"kijun,omitempty"`
	SenkouB      int     `json:"senkou_b,omitempty"`
	Displacement int     `json:"displacement,omitempty"`
}

// Defaults
const (
	DefaultRSIPeriod       = 14
	DefaultATRPeriod       = 14
	DefaultADXPeriod       = 14
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultStochasticK     = 14
	DefaultStochasticD     = 3
	DefaultVolatilityDays  = 63
	TradingDaysPerYear     = 252
)

func (p Params) withDefaults(kind Kind) Params {
	def := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}
	switch kind {
	case KindSMA, KindEMA:
		def(&p.Period, 20)
	case KindRSI:
		def(&p.Period, DefaultRSIPeriod)
	case KindATR:
		def(&p.Period, DefaultATRPeriod)
	case KindADX:
		def(&p.Period, DefaultADXPeriod)
	case KindBollinger:
		def(&p.Period, DefaultBollingerPeriod)
		if p.StdDev == 0 {
			p.StdDev = DefaultBollingerStdDev
		}
	case KindMACD:
		def(&p.Fast, DefaultMACDFast)
		def(&p.Slow, DefaultMACDSlow)
		def(&p.Signal, DefaultMACDSignal)
	case KindStochastic:
		def(&p.Period, DefaultStochasticK)
		def(&p.Signal, DefaultStochasticD)
	case KindWilliamsR, KindROC:
		def(&p.Period, 14)
	case KindVolatility:
		def(&p.Period, DefaultVolatilityDays)
	case KindLevels:
		def(&p.Period, DefaultPivotWindow)
	case KindIchimoku:
		def(&p.Tenkan, 9)
		def(&p.Kijun, 26)
		def(&p.SenkouB, 52)
		def(&p.Displacement, 26)
	}
	return p
}

func (p Params) validate(kind Kind) error {
	fields := []struct {
		name string
		v    int
	}{
		{"period", p.Period}, {"fast", p.Fast}, {"slow", p.Slow}, {"signal", p.Signal},
		{"tenkan", p.Tenkan}, {"kijun", p.Kijun}, {"senkou_b", p.SenkouB}, {"displacement", p.Displacement},
	}
	for _, f := range fields {
		if f.v < 0 {
			return &contracts.ConfigurationError{Field: string(kind) + "." + f.name, Message: "must be >= 0"}
		}
	}
	if p.StdDev < 0 {
		return &contracts.ConfigurationError{Field: string(kind) + ".stddev", Message: "must be >= 0"}
	}
	if kind == KindMACD && p.Fast >= p.Slow {
		return &contracts.ConfigurationError{Field: "macd.fast", Message: "must be less than slow"}
	}
	return nil
}

// Compute returns a restartable lazy sequence of indicator points.
// Points inside the warm-up window are omitted.
func Compute(kind Kind, bars []contracts.PriceBar, params Params) (iter.Seq[Point], error) {
	p := params.withDefaults(kind)
	if err := p.validate(kind); err != nil {
		return nil, err
	}

	var fn func() []Point
	switch kind {
	case KindSMA:
		fn = func() []Point { return SMA(bars, p.Period) }
	case KindEMA:
		fn = func() []Point { return EMA(bars, p.Period) }
	case KindRSI:
		fn = func() []Point { return RSI(bars, p.Period) }
	case KindMACD:
		fn = func() []Point { return MACD(bars, p.Fast, p.Slow, p.Signal) }
	case KindBollinger:
		fn = func() []Point { return Bollinger(bars, p.Period, p.StdDev) }
	case KindATR:
		fn = func() []Point { return ATR(bars, p.Period) }
	case KindADX:
		fn = func() []Point { return ADX(bars, p.Period) }
	case KindIchimoku:
		fn = func() []Point { return Ichimoku(bars, p.Tenkan, p.Kijun, p.SenkouB, p.Displacement) }
	case KindStochastic:
		fn = func() []Point { return Stochastic(bars, p.Period, p.Signal) }
	case KindWilliamsR:
		fn = func() []Point { return WilliamsR(bars, p.Period) }
	case KindOBV:
		fn = func() []Point { return OBV(bars) }
	case KindROC:
		fn = func() []Point { return ROC(bars, p.Period) }
	case KindVolatility:
		fn = func() []Point { return Volatility(bars, p.Period) }
	case KindLevels:
		fn = func() []Point { return SupportResistance(bars, p.Period) }
	default:
		return nil, &contracts.ConfigurationError{Field: "kind", Message: fmt.Sprintf("unknown indicator %q", kind)}
	}

	return func(yield func(Point) bool) {
		for _, pt := range fn() {
			if !yield(pt) {
				return
			}
		}
	}, nil
}

// Collect drains a sequence into a slice
func Collect(seq iter.Seq[Point]) []Point {
	var out []Point
	for pt := range seq {
		out = append(out, pt)
	}
	return out
}

// Latest returns the last point, if any
func Latest(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	return points[len(points)-1], true
}

// ohlc holds float columns extracted from bars
type ohlc struct {
	dates  []time.Time
	high   []float64
	low    []float64
	close  []float64
	volume []float64
}

func columns(bars []contracts.PriceBar) ohlc {
	c := ohlc{
		dates:  make([]time.Time, len(bars)),
		high:   make([]float64, len(bars)),
		low:    make([]float64, len(bars)),
		close:  make([]float64, len(bars)),
		volume: make([]float64, len(bars)),
	}
	for i := range bars {
		c.dates[i] = bars[i].Date
		c.high[i] = bars[i].High.InexactFloat64()
		c.low[i] = bars[i].Low.InexactFloat64()
		c.close[i] = bars[i].Close.InexactFloat64()
		c.volume[i] = float64(bars[i].Volume)
	}
	return c
}

// points converts a NaN-padded column into points, skipping NaN entries
func points(dates []time.Time, vals []float64) []Point {
	out := make([]Point, 0, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, Point{Date: dates[i], Value: v})
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
