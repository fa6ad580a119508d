package portfolio

import (
	"fmt"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// Candidate is one selected company with its sizing inputs
type Candidate struct {
	Company    string
	MarketCap  *float64
	Volatility *float64 // annualized
}

// CandidatesFromResults reads sizing inputs from screener results, keeping their order
func CandidatesFromResults(results []contracts.ScreenerResult) []Candidate {
	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		c := Candidate{Company: r.Company, MarketCap: r.MarketCap}
		if v, ok := r.Metrics.Get(contracts.MetricVolatility63).Float(); ok {
			c.Volatility = &v
		}
		out = append(out, c)
	}
	return out
}

// Constructor converts a ranked selection into target weights
// ⭐ SSOT: 포트폴리오 구성 로직은 여기서만
type Constructor struct {
	constraints Constraints
	logger      *logger.Logger
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(constraints Constraints, logger *logger.Logger) *Constructor {
	return &Constructor{
		constraints: constraints,
		logger:      logger,
	}
}

// Target is the weight assigned to each company, summing to at most 1
type Target map[string]float64

// Holdings lists the target as weight-only holdings ordered by company
func (t Target) Holdings() []contracts.Holding {
	out := make([]contracts.Holding, 0, len(t))
	for _, company := range sortedKeys(t) {
		out = append(out, contracts.Holding{Company: company, Weight: t[company]})
	}
	return out
}

// Construct sizes the candidates and applies the constraints.
// Candidates missing the sizing input take the mean input of the others;
// when none has it, weights fall back to equal.
func (c *Constructor) Construct(sizing contracts.PositionSizing, candidates []Candidate) (Target, error) {
	if len(candidates) == 0 {
		return Target{}, nil
	}

	var raw map[string]float64
	switch sizing {
	case contracts.SizingEqual:
		raw = equalWeight(candidates)
	case contracts.SizingCapWeight:
		raw = c.weightBy(sizing, candidates, func(cd Candidate) (float64, bool) {
			if cd.MarketCap == nil || *cd.MarketCap <= 0 {
				return 0, false
			}
			return *cd.MarketCap, true
		})
	case contracts.SizingInverseVol:
		raw = c.weightBy(sizing, candidates, func(cd Candidate) (float64, bool) {
			if cd.Volatility == nil || *cd.Volatility <= 0 {
				return 0, false
			}
			return 1 / *cd.Volatility, true
		})
	default:
		return nil, &contracts.ConfigurationError{Field: "position_sizing", Message: fmt.Sprintf("unknown sizing %q", sizing)}
	}

	return Target(c.constraints.Apply(raw)), nil
}

// equalWeight calculates equal weights for all candidates
func equalWeight(candidates []Candidate) map[string]float64 {
	weight := 1.0 / float64(len(candidates))

	weights := make(map[string]float64, len(candidates))
	for _, cd := range candidates {
		weights[cd.Company] = weight
	}
	return weights
}

// weightBy weights proportionally to score; missing scores take the mean of the present ones
func (c *Constructor) weightBy(sizing contracts.PositionSizing, candidates []Candidate, score func(Candidate) (float64, bool)) map[string]float64 {
	scores := make(map[string]float64, len(candidates))
	var missing []string
	sum := 0.0
	for _, cd := range candidates {
		if s, ok := score(cd); ok {
			scores[cd.Company] = s
			sum += s
		} else {
			missing = append(missing, cd.Company)
		}
	}

	if len(scores) == 0 {
		if c.logger != nil {
			c.logger.WithField("sizing", string(sizing)).Warn("Sizing input missing for every holding, using equal weight")
		}
		return equalWeight(candidates)
	}

	mean := sum / float64(len(scores))
	for _, company := range missing {
		scores[company] = mean
	}
	return scores
}
