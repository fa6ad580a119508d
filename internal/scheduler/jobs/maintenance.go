package jobs

import (
	"context"
	"time"

	"github.com/lalith1997/quantscreen/pkg/logger"
)

// RunPruner deletes stored screen runs older than a cutoff
type RunPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob prunes old screen runs
type RetentionJob struct {
	store  RunPruner
	keep   time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewRetentionJob creates a new retention job keeping runs for keep
func NewRetentionJob(store RunPruner, keep time.Duration, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		store:  store,
		keep:   keep,
		now:    time.Now,
		logger: log,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "screen_run_retention"
}

// Schedule returns the cron schedule (Sundays at 3 AM)
func (j *RetentionJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Run deletes runs older than the retention window
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := truncateDay(j.now()).Add(-j.keep)

	count, err := j.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if count > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": count,
			"cutoff":  cutoff.Format("2006-01-02"),
		}).Info("Screen run retention completed")
	}
	return nil
}
