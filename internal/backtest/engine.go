package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/portfolio"
	"github.com/lalith1997/quantscreen/internal/s0_data"
	"github.com/lalith1997/quantscreen/internal/s1_universe"
	"github.com/lalith1997/quantscreen/internal/s2_metrics"
	"github.com/lalith1997/quantscreen/internal/selection"
	"github.com/lalith1997/quantscreen/internal/strategyconfig"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// Engine runs point-in-time backtests of a screen
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	provider contracts.DataProvider
	calc     *s2_metrics.Calculator
	opts     s2_metrics.BuilderOptions
	logger   *logger.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(provider contracts.DataProvider, opts s2_metrics.BuilderOptions, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("backtest")
	return &Engine{
		provider: provider,
		calc:     s2_metrics.NewCalculator(log),
		opts:     opts,
		logger:   log,
	}
}

// run is the mutable state of one Run call
type run struct {
	cfg       contracts.BacktestConfig
	machine   machine
	sim       *Simulator
	book      *priceBook
	result    *contracts.BacktestResult
	benchmark []contracts.EquityPoint
	benchBase float64
}

// Run executes a backtest simulation.
// Cancellation between or during dates ends the run early with Partial set
// and the in-flight rebalance discarded; it is not an error.
func (e *Engine) Run(ctx context.Context, cfg contracts.BacktestConfig) (*contracts.BacktestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := selection.ValidateScreen(cfg.Screen); err != nil {
		return nil, err
	}
	cfg.Screen = cfg.Screen.WithDefaults()

	e.logger.WithFields(map[string]interface{}{
		"start_date":      cfg.PeriodStart.Format("2006-01-02"),
		"end_date":        cfg.PeriodEnd.Format("2006-01-02"),
		"initial_capital": cfg.StartingCapital,
		"frequency":       string(cfg.RebalanceFrequency),
		"sizing":          string(cfg.PositionSizing),
	}).Info("Starting backtest")
	startTime := time.Now()

	r := &run{
		cfg:  cfg,
		sim:  NewSimulator(e.logger),
		book: newPriceBook(e.provider, cfg.PeriodStart, cfg.PeriodEnd, cfg.ReinvestDividends),
		result: &contracts.BacktestResult{
			ID:          uuid.New().String(),
			Config:      cfg,
			EquityCurve: []contracts.EquityPoint{},
			Rebalances:  []contracts.RebalanceRecord{},
		},
	}
	if hash, err := strategyconfig.Hash(cfg); err == nil {
		r.result.ConfigHash = hash
	} else {
		e.logger.WithError(err).Warn("Failed to hash backtest config")
	}
	r.sim.Initialize(cfg.StartingCapital)

	days, hasBenchmark, err := tradingCalendar(ctx, e.provider, r.book, &cfg)
	if err != nil {
		return nil, fmt.Errorf("build trading calendar: %w", err)
	}
	if len(days) == 0 {
		return nil, &contracts.ConfigurationError{Field: "period", Message: "no trading days between period_start and period_end"}
	}

	interrupted := false
	for i, date := range days {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		if i == 0 || periodKey(cfg.RebalanceFrequency, date) != periodKey(cfg.RebalanceFrequency, days[i-1]) {
			if err := r.machine.transition(StateRebalancing); err != nil {
				return nil, err
			}
			record, err := e.rebalance(ctx, r, date)
			if err != nil {
				if ctx.Err() != nil {
					interrupted = true
					break
				}
				return nil, fmt.Errorf("rebalance %s: %w", date.Format("2006-01-02"), err)
			}
			r.result.Rebalances = append(r.result.Rebalances, *record)
			if err := r.machine.transition(StateHolding); err != nil {
				return nil, err
			}
		}

		if err := e.markToMarket(ctx, r, date, hasBenchmark); err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			return nil, fmt.Errorf("mark to market %s: %w", date.Format("2006-01-02"), err)
		}
	}

	if interrupted && len(r.result.EquityCurve) == 0 {
		return nil, fmt.Errorf("backtest interrupted before first trading date: %w", ctx.Err())
	}
	if err := r.machine.transition(StateFinished); err != nil {
		return nil, err
	}
	if interrupted {
		last := r.result.EquityCurve[len(r.result.EquityCurve)-1].Date
		r.result.Partial = true
		r.result.Warnings = append(r.result.Warnings, contracts.Warning{
			Kind:    contracts.WarningInterrupted,
			Date:    last,
			Message: fmt.Sprintf("interrupted after %s: %v", last.Format("2006-01-02"), ctx.Err()),
		})
		e.logger.WithField("last_date", last.Format("2006-01-02")).Warn("Backtest interrupted, returning partial result")
	}

	e.finalize(r, hasBenchmark)

	stats := r.sim.GetStats()
	e.logger.WithFields(map[string]interface{}{
		"id":           r.result.ID,
		"duration":     time.Since(startTime).Seconds(),
		"trading_days": r.result.Summary.TradingDays,
		"rebalances":   len(r.result.Rebalances),
		"trades":       stats.TotalTrades,
		"commission":   stats.TotalCommission,
		"total_return": fmt.Sprintf("%.2f%%", r.result.Summary.TotalReturn*100),
		"cagr":         fmt.Sprintf("%.2f%%", r.result.Summary.CAGR*100),
		"sharpe_ratio": fmt.Sprintf("%.2f", r.result.Summary.Sharpe),
		"max_drawdown": fmt.Sprintf("%.2f%%", r.result.Summary.MaxDrawdown*100),
		"partial":      r.result.Partial,
	}).Info("Backtest completed")

	return r.result, nil
}

// rebalance screens as of date and trades to the new target.
// Nothing in r changes unless the whole rebalance succeeds.
func (e *Engine) rebalance(ctx context.Context, r *run, date time.Time) (*contracts.RebalanceRecord, error) {
	pit := s0_data.NewPointInTime(e.provider, date)

	universePolicy := s1_universe.PolicyFromFilter(r.cfg.UniverseFilter)
	universe, err := s1_universe.NewBuilder(pit, universePolicy, e.logger).Build(ctx, date)
	if err != nil {
		return nil, err
	}

	screen := effectiveScreen(r.cfg.Screen, universePolicy)
	builder := s2_metrics.NewBuilder(pit, e.calc, e.opts, e.logger)
	resp, err := selection.NewRunner(builder, e.logger).Run(ctx, screen, universe.Companies, date)
	if err != nil {
		return nil, err
	}

	candidates := make([]portfolio.Candidate, 0, len(resp.Results))
	for _, c := range portfolio.CandidatesFromResults(resp.Results) {
		_, ok, err := r.book.price(ctx, c.Company, date)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		held, err := r.book.prices(ctx, r.sim.Held(), date)
		if err != nil {
			return nil, err
		}
		r.sim.Mark(held)
		r.result.Warnings = append(r.result.Warnings, contracts.Warning{
			Kind:    contracts.WarningEmptyUniverse,
			Date:    date,
			Message: fmt.Sprintf("no qualifying companies (%d screened); prior allocation held", len(universe.Companies)),
		})
		e.logger.WithFields(map[string]interface{}{
			"date":      date.Format("2006-01-02"),
			"universe":  len(universe.Companies),
			"qualified": resp.TotalCount,
		}).Warn("Empty rebalance, holding prior allocation")

		return &contracts.RebalanceRecord{
			Date:           date,
			Qualified:      resp.TotalCount,
			Holdings:       r.sim.Holdings(),
			HeldPrior:      true,
			PortfolioValue: r.sim.GetEquity(),
		}, nil
	}

	constructor := portfolio.NewConstructor(portfolio.Constraints{MaxWeight: r.cfg.MaxPositionWeight}, e.logger)
	target, err := constructor.Construct(r.cfg.PositionSizing, candidates)
	if err != nil {
		return nil, err
	}

	ids := r.sim.Held()
	for c := range target {
		ids = append(ids, c)
	}
	prices, err := r.book.prices(ctx, ids, date)
	if err != nil {
		return nil, err
	}

	fill := r.sim.Rebalance(target, prices, r.cfg.CommissionRate)
	return &contracts.RebalanceRecord{
		Date:           date,
		Qualified:      resp.TotalCount,
		Holdings:       fill.Holdings,
		Turnover:       fill.Turnover,
		Commission:     fill.Commission,
		PortfolioValue: fill.Value,
	}, nil
}

// effectiveScreen narrows the screen's market cap bounds and sector exclusions to the universe filter
func effectiveScreen(screen contracts.Screen, universe s1_universe.Policy) contracts.Screen {
	combined := s1_universe.PolicyFromScreen(screen).Combine(universe)
	screen.ExcludeSectors = combined.ExcludeSectors
	screen.MinMarketCap = combined.MinMarketCap
	screen.MaxMarketCap = combined.MaxMarketCap
	return screen
}

func (e *Engine) markToMarket(ctx context.Context, r *run, date time.Time, hasBenchmark bool) error {
	held, err := r.book.prices(ctx, r.sim.Held(), date)
	if err != nil {
		return err
	}

	var benchPoint *contracts.EquityPoint
	if hasBenchmark {
		px, ok, err := r.book.price(ctx, r.cfg.Benchmark, date)
		if err != nil {
			return err
		}
		if ok {
			if r.benchBase == 0 {
				r.benchBase = px
			}
			benchPoint = &contracts.EquityPoint{Date: date, Value: r.cfg.StartingCapital * px / r.benchBase}
		}
	}

	r.sim.Mark(held)
	r.result.EquityCurve = append(r.result.EquityCurve, contracts.EquityPoint{Date: date, Value: r.sim.GetEquity()})
	if benchPoint != nil {
		r.benchmark = append(r.benchmark, *benchPoint)
	}
	return nil
}

func (e *Engine) finalize(r *run, hasBenchmark bool) {
	capital := r.cfg.StartingCapital
	r.result.Summary = Summarize(r.result.EquityCurve, capital, r.cfg.RiskFreeRate)

	var bench []contracts.EquityPoint
	if hasBenchmark && len(r.benchmark) > 0 {
		summary := Summarize(r.benchmark, capital, r.cfg.RiskFreeRate)
		r.result.Benchmark = &summary
		bench = r.benchmark
	}
	r.result.Yearly = YearlyTable(r.result.EquityCurve, capital, bench, capital)
}
