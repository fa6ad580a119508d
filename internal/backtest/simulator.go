package backtest

import (
	"math"
	"sort"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/portfolio"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// Simulator holds the cash and fractional positions of one run
// ⭐ SSOT: 백테스팅 시뮬레이션은 여기서만
type Simulator struct {
	logger *logger.Logger

	// Current state
	cash      float64
	positions map[string]*Position

	// Statistics
	totalTrades     int
	totalCommission float64
	totalTurnover   float64
}

// Position is a fractional holding marked at its last known price
type Position struct {
	Company   string
	Units     float64
	LastPrice float64
}

// Fill summarizes one executed rebalance
type Fill struct {
	Holdings   []contracts.Holding
	Turnover   float64 // traded notional / pre-trade value
	Commission float64
	Value      float64 // post-trade value
}

// Stats holds simulation statistics
type Stats struct {
	TotalTrades     int
	TotalCommission float64
	TotalTurnover   float64
}

// NewSimulator creates a new trading simulator
func NewSimulator(logger *logger.Logger) *Simulator {
	return &Simulator{
		logger:    logger,
		positions: make(map[string]*Position),
	}
}

// Initialize resets the simulator with initial capital
func (s *Simulator) Initialize(capital float64) {
	s.cash = capital
	s.positions = make(map[string]*Position)
	s.totalTrades = 0
	s.totalCommission = 0
	s.totalTurnover = 0
}

// Held lists the held companies, ordered by ID
func (s *Simulator) Held() []string {
	out := make([]string, 0, len(s.positions))
	for c := range s.positions {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Mark updates last prices of held companies; missing ones keep their last price
func (s *Simulator) Mark(prices map[string]float64) {
	for c, pos := range s.positions {
		if px, ok := prices[c]; ok && px > 0 {
			pos.LastPrice = px
		}
	}
}

// GetEquity returns cash plus positions at their last prices
func (s *Simulator) GetEquity() float64 {
	equity := s.cash
	for _, c := range s.Held() {
		pos := s.positions[c]
		equity += pos.Units * pos.LastPrice
	}
	return equity
}

// Holdings returns the current positions with their share of equity
func (s *Simulator) Holdings() []contracts.Holding {
	equity := s.GetEquity()
	out := make([]contracts.Holding, 0, len(s.positions))
	for _, c := range s.Held() {
		pos := s.positions[c]
		h := contracts.Holding{Company: c, Units: pos.Units, Price: pos.LastPrice}
		if equity > 0 {
			h.Weight = pos.Units * pos.LastPrice / equity
		}
		out = append(out, h)
	}
	return out
}

// Rebalance trades to target at prices, which must cover every target company.
// Commission is charged on the notional needed to reach the pre-commission
// targets; the targets are then set on the equity left after commission.
func (s *Simulator) Rebalance(target portfolio.Target, prices map[string]float64, commissionRate float64) Fill {
	s.Mark(prices)
	before := s.GetEquity()

	companies := make(map[string]bool, len(target)+len(s.positions))
	for c := range target {
		companies[c] = true
	}
	for c := range s.positions {
		companies[c] = true
	}
	ids := make([]string, 0, len(companies))
	for c := range companies {
		ids = append(ids, c)
	}
	sort.Strings(ids)

	notional := 0.0
	trades := 0
	for _, c := range ids {
		current := 0.0
		if pos, ok := s.positions[c]; ok {
			current = pos.Units * pos.LastPrice
		}
		delta := target[c]*before - current
		if math.Abs(delta) > 1e-9 {
			trades++
		}
		notional += math.Abs(delta)
	}

	commission := commissionRate * notional
	after := before - commission

	invested := 0.0
	positions := make(map[string]*Position, len(target))
	holdings := make([]contracts.Holding, 0, len(target))
	for _, h := range target.Holdings() {
		px := prices[h.Company]
		value := h.Weight * after
		h.Units = value / px
		h.Price = px
		positions[h.Company] = &Position{Company: h.Company, Units: h.Units, LastPrice: px}
		holdings = append(holdings, h)
		invested += value
	}
	s.positions = positions
	s.cash = after - invested

	turnover := 0.0
	if before > 0 {
		turnover = notional / before
	}
	s.totalTrades += trades
	s.totalCommission += commission
	s.totalTurnover += turnover

	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"holdings":   len(holdings),
			"trades":     trades,
			"turnover":   turnover,
			"commission": commission,
		}).Debug("Rebalance executed in simulation")
	}

	return Fill{Holdings: holdings, Turnover: turnover, Commission: commission, Value: after}
}

// GetStats returns simulation statistics
func (s *Simulator) GetStats() Stats {
	return Stats{
		TotalTrades:     s.totalTrades,
		TotalCommission: s.totalCommission,
		TotalTurnover:   s.totalTurnover,
	}
}
