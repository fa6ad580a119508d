package backtest

import (
	"math"
	"sort"
)

// tailConfidence is the confidence level of the reported VaR and CVaR
const tailConfidence = 0.95

// TailRisk is the historical one-day loss profile of a return series
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
type TailRisk struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`  // loss not exceeded with Confidence
	CVaR       float64 `json:"cvar"` // mean loss in the tail beyond VaR
}

// HistoricalTailRisk computes VaR and CVaR by historical simulation.
// Gains in the tail report as zero loss.
func HistoricalTailRisk(returns []float64, confidence float64) TailRisk {
	out := TailRisk{Confidence: confidence}
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return out
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	out.VaR = lossOf(sorted[idx])

	var sum float64
	for _, r := range sorted[:idx+1] {
		sum += r
	}
	out.CVaR = lossOf(sum / float64(idx+1))
	return out
}

func lossOf(r float64) float64 {
	if r < 0 {
		return -r
	}
	return 0
}
