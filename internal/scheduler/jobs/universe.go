package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/lalith1997/quantscreen/internal/s0_data/quality"
	"github.com/lalith1997/quantscreen/internal/s1_universe"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// QualityChecker measures data coverage as of a date
type QualityChecker interface {
	Check(ctx context.Context, date time.Time) (*quality.Report, error)
}

// ReportStore persists quality reports
type ReportStore interface {
	SaveReport(ctx context.Context, report *quality.Report) error
}

// UniverseBuilder lists the eligible companies as of a date
type UniverseBuilder interface {
	Build(ctx context.Context, asOf time.Time) (*s1_universe.Universe, error)
}

// UniverseStore persists universe snapshots
type UniverseStore interface {
	SaveUniverse(ctx context.Context, universe *s1_universe.Universe) error
}

// UniverseJob checks data quality and snapshots the universe daily
// ⭐ SSOT: Universe 생성 스케줄은 이 Job에서만
type UniverseJob struct {
	gate      QualityChecker
	reports   ReportStore // optional
	builder   UniverseBuilder
	universes UniverseStore // optional
	now       func() time.Time
	logger    *logger.Logger
}

// NewUniverseJob creates a new universe job; either store may be nil
func NewUniverseJob(gate QualityChecker, reports ReportStore, builder UniverseBuilder, universes UniverseStore, log *logger.Logger) *UniverseJob {
	return &UniverseJob{
		gate:      gate,
		reports:   reports,
		builder:   builder,
		universes: universes,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe_snapshot"
}

// Schedule returns the cron schedule (weekdays at 6 PM, before the preset screens)
func (j *UniverseJob) Schedule() string {
	return "0 0 18 * * 1-5"
}

// Run executes the quality check and universe snapshot
func (j *UniverseJob) Run(ctx context.Context) error {
	date := truncateDay(j.now())
	j.logger.WithField("date", date.Format("2006-01-02")).Info("Starting scheduled universe snapshot")

	// 1. Validate data quality
	report, err := j.gate.Check(ctx, date)
	if err != nil {
		return fmt.Errorf("quality validation failed: %w", err)
	}
	if j.reports != nil {
		if err := j.reports.SaveReport(ctx, report); err != nil {
			return fmt.Errorf("save quality report: %w", err)
		}
	}

	if !report.Passed {
		j.logger.WithFields(map[string]interface{}{
			"quality_score":   report.Score,
			"total_companies": report.TotalCompanies,
			"valid_companies": report.ValidCompanies,
			"failures":        report.Failures,
		}).Warn("Data quality below threshold, but continuing with universe snapshot")
	}

	// 2. Build universe
	universe, err := j.builder.Build(ctx, date)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}
	if j.universes != nil {
		if err := j.universes.SaveUniverse(ctx, universe); err != nil {
			return fmt.Errorf("save universe: %w", err)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"total_count":    universe.TotalCount,
		"excluded_count": len(universe.Excluded),
		"quality_score":  report.Score,
	}).Info("Universe snapshot completed")

	return nil
}
