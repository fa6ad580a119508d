package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// PresetRunner runs a built-in screen as of a date
type PresetRunner interface {
	RunPreset(ctx context.Context, id string, limit int, asOf time.Time) (*contracts.ScreenerResponse, error)
}

// RunStore persists screener responses
type RunStore interface {
	SaveRun(ctx context.Context, screenName string, resp *contracts.ScreenerResponse) (uuid.UUID, error)
}

// NightlyPresetsJob runs every configured preset as of the run date
// ⭐ SSOT: 프리셋 정기 스크리닝은 이 Job에서만
type NightlyPresetsJob struct {
	runner   PresetRunner
	store    RunStore // optional
	presets  []string
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewNightlyPresetsJob creates a new preset screening job; store may be nil
func NewNightlyPresetsJob(runner PresetRunner, store RunStore, presets []string, schedule string, log *logger.Logger) *NightlyPresetsJob {
	return &NightlyPresetsJob{
		runner:   runner,
		store:    store,
		presets:  presets,
		schedule: schedule,
		now:      time.Now,
		logger:   log,
	}
}

// Name returns the job name
func (j *NightlyPresetsJob) Name() string {
	return "nightly_presets"
}

// Schedule returns the cron schedule (weekdays after the close by default)
func (j *NightlyPresetsJob) Schedule() string {
	return j.schedule
}

// Run screens each preset; one failing preset does not stop the others
func (j *NightlyPresetsJob) Run(ctx context.Context) error {
	asOf := truncateDay(j.now())
	j.logger.WithFields(map[string]interface{}{
		"as_of":   asOf.Format("2006-01-02"),
		"presets": len(j.presets),
	}).Info("Starting scheduled preset screening")

	var errs []error
	for _, id := range j.presets {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := j.runner.RunPreset(ctx, id, 0, asOf)
		if err != nil {
			errs = append(errs, fmt.Errorf("preset %s: %w", id, err))
			continue
		}

		fields := map[string]interface{}{
			"preset":       id,
			"total_count":  resp.TotalCount,
			"results":      len(resp.Results),
			"execution_ms": resp.ExecutionTimeMS,
		}
		if j.store != nil {
			runID, err := j.store.SaveRun(ctx, id, resp)
			if err != nil {
				errs = append(errs, fmt.Errorf("save preset %s: %w", id, err))
				continue
			}
			fields["run_id"] = runID.String()
		}
		j.logger.WithFields(fields).Info("Preset screened")
	}

	return errors.Join(errs...)
}

// truncateDay returns midnight UTC of t's calendar day
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
