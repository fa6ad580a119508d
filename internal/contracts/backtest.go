package contracts

import "time"

// RebalanceFrequency is the backtest rebalance cadence
type RebalanceFrequency string

const (
	RebalanceWeekly     RebalanceFrequency = "weekly"
	RebalanceMonthly    RebalanceFrequency = "monthly"
	RebalanceQuarterly  RebalanceFrequency = "quarterly"
	RebalanceSemiannual RebalanceFrequency = "semiannual"
	RebalanceAnnual     RebalanceFrequency = "annual"
)

// Valid reports whether f is a known frequency
func (f RebalanceFrequency) Valid() bool {
	switch f {
	case RebalanceWeekly, RebalanceMonthly, RebalanceQuarterly, RebalanceSemiannual, RebalanceAnnual:
		return true
	}
	return false
}

// PositionSizing converts a ranked list into target weights
type PositionSizing string

const (
	SizingEqual      PositionSizing = "equal_weight"
	SizingCapWeight  PositionSizing = "cap_weight"
	SizingInverseVol PositionSizing = "inverse_volatility"
)

// Valid reports whether s is a known sizing method
func (s PositionSizing) Valid() bool {
	switch s {
	case SizingEqual, SizingCapWeight, SizingInverseVol:
		return true
	}
	return false
}

// UniverseFilter narrows the provider universe before screening
type UniverseFilter struct {
	Include        []string `json:"include,omitempty" yaml:"include,omitempty"`
	ExcludeSectors []string `json:"exclude_sectors,omitempty" yaml:"exclude_sectors,omitempty"`
	MinMarketCap   *float64 `json:"min_market_cap,omitempty" yaml:"min_market_cap,omitempty"`
	MaxMarketCap   *float64 `json:"max_market_cap,omitempty" yaml:"max_market_cap,omitempty"`
}

// BacktestConfig fully describes one backtest run
type BacktestConfig struct {
	Screen             Screen             `json:"screen" yaml:"screen"`
	RebalanceFrequency RebalanceFrequency `json:"rebalance_frequency" yaml:"rebalance_frequency"`
	PositionSizing     PositionSizing     `json:"position_sizing" yaml:"position_sizing"`
	UniverseFilter     UniverseFilter     `json:"universe_filter" yaml:"universe_filter"`
	PeriodStart        time.Time          `json:"period_start" yaml:"period_start"`
	PeriodEnd          time.Time          `json:"period_end" yaml:"period_end"`
	StartingCapital    float64            `json:"starting_capital" yaml:"starting_capital"`
	Benchmark          string             `json:"benchmark,omitempty" yaml:"benchmark,omitempty"`
	RiskFreeRate       float64            `json:"risk_free_rate" yaml:"risk_free_rate"`
	CommissionRate     float64            `json:"commission_rate" yaml:"commission_rate"`
	ReinvestDividends  bool               `json:"reinvest_dividends" yaml:"reinvest_dividends"`
	MaxPositionWeight  float64            `json:"max_position_weight,omitempty" yaml:"max_position_weight,omitempty"`
}

// Validate rejects configurations that cannot run
func (c *BacktestConfig) Validate() error {
	if c.PeriodStart.IsZero() || c.PeriodEnd.IsZero() {
		return &ConfigurationError{Field: "period", Message: "period_start and period_end are required"}
	}
	if !c.PeriodEnd.After(c.PeriodStart) {
		return &ConfigurationError{Field: "period_end", Message: "must be after period_start"}
	}
	if !c.RebalanceFrequency.Valid() {
		return &ConfigurationError{Field: "rebalance_frequency", Message: "unknown frequency " + string(c.RebalanceFrequency)}
	}
	if !c.PositionSizing.Valid() {
		return &ConfigurationError{Field: "position_sizing", Message: "unknown sizing " + string(c.PositionSizing)}
	}
	if c.StartingCapital <= 0 {
		return &ConfigurationError{Field: "starting_capital", Message: "must be > 0"}
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return &ConfigurationError{Field: "commission_rate", Message: "must be in [0, 1)"}
	}
	if c.MaxPositionWeight < 0 || c.MaxPositionWeight > 1 {
		return &ConfigurationError{Field: "max_position_weight", Message: "must be in [0, 1]"}
	}
	return nil
}

// Holding is one position after a rebalance
type Holding struct {
	Company string  `json:"company"`
	Weight  float64 `json:"weight"`
	Units   float64 `json:"units"`
	Price   float64 `json:"price"`
}

// RebalanceRecord captures the portfolio produced on one rebalance date
type RebalanceRecord struct {
	Date           time.Time `json:"date"`
	Qualified      int       `json:"qualified"`
	Holdings       []Holding `json:"holdings"`
	Turnover       float64   `json:"turnover"`
	Commission     float64   `json:"commission"`
	HeldPrior      bool      `json:"held_prior"` // empty universe: prior allocation kept
	PortfolioValue float64   `json:"portfolio_value"`
}

// EquityPoint is the marked-to-market portfolio value on one date
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PerformanceSummary holds statistics over one equity curve
type PerformanceSummary struct {
	StartValue  float64 `json:"start_value"`
	EndValue    float64 `json:"end_value"`
	TotalReturn float64 `json:"total_return"`
	CAGR        float64 `json:"cagr"`
	Years       float64 `json:"years"`
	Volatility  float64 `json:"volatility"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	VaR95       float64 `json:"var_95"`  // one-day historical loss, positive
	CVaR95      float64 `json:"cvar_95"` // mean loss beyond VaR95
	TradingDays int     `json:"trading_days"`
}

// YearlyReturn compares strategy and benchmark for one calendar year
type YearlyReturn struct {
	Year            int      `json:"year"`
	StrategyReturn  float64  `json:"strategy_return"`
	BenchmarkReturn *float64 `json:"benchmark_return"`
	ExcessReturn    *float64 `json:"excess_return"`
}

// WarningKind classifies a partial-completion warning
type WarningKind string

const (
	WarningEmptyUniverse WarningKind = "empty_universe"
	WarningInterrupted   WarningKind = "interrupted"
)

// Warning is a non-fatal condition recorded on a BacktestResult
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Date    time.Time   `json:"date"`
	Message string      `json:"message"`
}

// BacktestResult is the immutable report of one backtest run
type BacktestResult struct {
	ID          string              `json:"id"`
	ConfigHash  string              `json:"config_hash,omitempty"`
	Config      BacktestConfig      `json:"config"`
	Summary     PerformanceSummary  `json:"summary"`
	Benchmark   *PerformanceSummary `json:"benchmark,omitempty"`
	Yearly      []YearlyReturn      `json:"yearly"`
	Rebalances  []RebalanceRecord   `json:"rebalances"`
	EquityCurve []EquityPoint       `json:"equity_curve"`
	Partial     bool                `json:"partial"`
	Warnings    []Warning           `json:"warnings,omitempty"`
}

// HasWarning reports whether a warning of kind was recorded
func (r *BacktestResult) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
