package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/s0_data"
	"github.com/lalith1997/quantscreen/internal/s1_universe"
	"github.com/lalith1997/quantscreen/internal/s2_metrics"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// Service screens a provider's listed universe as of a date.
// Every fetch is clamped to the as-of date.
type Service struct {
	provider contracts.DataProvider
	calc     *s2_metrics.Calculator
	opts     s2_metrics.BuilderOptions
	logger   *logger.Logger
}

// NewService creates a new screening service
func NewService(provider contracts.DataProvider, opts s2_metrics.BuilderOptions, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		provider: provider,
		calc:     s2_metrics.NewCalculator(log),
		opts:     opts,
		logger:   log,
	}
}

// Provider returns the underlying data provider
func (s *Service) Provider() contracts.DataProvider {
	return s.provider
}

// Run screens every company listed as of asOf
func (s *Service) Run(ctx context.Context, screen contracts.Screen, asOf time.Time) (*contracts.ScreenerResponse, error) {
	if err := ValidateScreen(screen); err != nil {
		return nil, err
	}

	pit := s0_data.NewPointInTime(s.provider, asOf)
	universe, err := s1_universe.NewBuilder(pit, s1_universe.PolicyFromScreen(screen), s.logger).Build(ctx, asOf)
	if err != nil {
		return nil, err
	}

	builder := s2_metrics.NewBuilder(pit, s.calc, s.opts, s.logger)
	return NewRunner(builder, s.logger).Run(ctx, screen, universe.Companies, asOf)
}

// RunPreset runs a built-in screen, optionally overriding its limit
func (s *Service) RunPreset(ctx context.Context, id string, limit int, asOf time.Time) (*contracts.ScreenerResponse, error) {
	screen, ok := LookupPreset(id)
	if !ok {
		return nil, fmt.Errorf("preset %q: %w", id, contracts.ErrNotFound)
	}
	if limit > 0 {
		screen.Limit = limit
	}
	return s.Run(ctx, screen, asOf)
}
