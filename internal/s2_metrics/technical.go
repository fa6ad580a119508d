package s2_metrics

import (
	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/technical"
)

// momentumBars is the 12-month lookback in trading days
const momentumBars = 252

// TechnicalSnapshot derives the latest technical metrics from date-ordered bars
// ending on the as-of date. Indicators still in warm-up are null.
func TechnicalSnapshot(bars []contracts.PriceBar) map[string]contracts.MetricValue {
	out := make(map[string]contracts.MetricValue)

	latest := func(pts []technical.Point) *technical.Point {
		p, ok := technical.Latest(pts)
		if !ok || !p.Date.Equal(bars[len(bars)-1].Date) {
			return nil
		}
		return &p
	}
	value := func(p *technical.Point) contracts.MetricValue {
		if p == nil {
			return contracts.Null
		}
		return contracts.Number(p.Value)
	}
	line := func(p *technical.Point, name string) contracts.MetricValue {
		if p == nil {
			return contracts.Null
		}
		v, ok := p.Lines[name]
		if !ok {
			return contracts.Null
		}
		return contracts.Number(v)
	}

	names := []string{
		contracts.MetricRSI14, contracts.MetricSMA50, contracts.MetricSMA200, contracts.MetricPriceToSMA200,
		contracts.MetricMACDHistogram, contracts.MetricATR14, contracts.MetricADX14,
		contracts.MetricBollingerPctB, contracts.MetricVolatility63, contracts.MetricMomentum12M,
	}
	for _, n := range names {
		out[n] = contracts.Null
	}
	if len(bars) == 0 {
		return out
	}

	closeNow := bars[len(bars)-1].Close.InexactFloat64()

	out[contracts.MetricRSI14] = value(latest(technical.RSI(bars, technical.DefaultRSIPeriod)))
	out[contracts.MetricSMA50] = value(latest(technical.SMA(bars, 50)))

	sma200 := latest(technical.SMA(bars, 200))
	out[contracts.MetricSMA200] = value(sma200)
	if sma200 != nil && sma200.Value > 0 {
		out[contracts.MetricPriceToSMA200] = contracts.Number(closeNow / sma200.Value)
	}

	macd := latest(technical.MACD(bars, technical.DefaultMACDFast, technical.DefaultMACDSlow, technical.DefaultMACDSignal))
	out[contracts.MetricMACDHistogram] = line(macd, "histogram")
	out[contracts.MetricATR14] = value(latest(technical.ATR(bars, technical.DefaultATRPeriod)))
	out[contracts.MetricADX14] = value(latest(technical.ADX(bars, technical.DefaultADXPeriod)))

	bb := latest(technical.Bollinger(bars, technical.DefaultBollingerPeriod, technical.DefaultBollingerStdDev))
	out[contracts.MetricBollingerPctB] = line(bb, "pct_b")
	out[contracts.MetricVolatility63] = value(latest(technical.Volatility(bars, technical.DefaultVolatilityDays)))

	if len(bars) > momentumBars {
		base := bars[len(bars)-1-momentumBars].Close.InexactFloat64()
		if base > 0 {
			out[contracts.MetricMomentum12M] = contracts.Number(closeNow/base - 1)
		}
	}

	return out
}
