package jobs

import (
	"context"
	"fmt"

	"github.com/lalith1997/quantscreen/internal/s0_data"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// SnapshotImporter writes a snapshot into the store
type SnapshotImporter interface {
	Import(ctx context.Context, snap *s0_data.Snapshot) error
}

// SnapshotImportJob reloads a snapshot file or URL into PostgreSQL
// ⭐ SSOT: 데이터 적재 스케줄은 이 Job에서만
type SnapshotImportJob struct {
	path       string
	downloader s0_data.Downloader
	importer   SnapshotImporter
	schedule   string
	logger     *logger.Logger
}

// NewSnapshotImportJob creates a new snapshot import job
func NewSnapshotImportJob(path string, importer SnapshotImporter, schedule string, log *logger.Logger) *SnapshotImportJob {
	return &SnapshotImportJob{
		path:     path,
		importer: importer,
		schedule: schedule,
		logger:   log,
	}
}

// WithDownloader lets the job read http(s) sources
func (j *SnapshotImportJob) WithDownloader(dl s0_data.Downloader) *SnapshotImportJob {
	j.downloader = dl
	return j
}

// Name returns the job name
func (j *SnapshotImportJob) Name() string {
	return "snapshot_import"
}

// Schedule returns the cron schedule
func (j *SnapshotImportJob) Schedule() string {
	return j.schedule
}

// Run loads and validates the snapshot, then imports it
func (j *SnapshotImportJob) Run(ctx context.Context) error {
	j.logger.WithField("path", j.path).Info("Starting scheduled snapshot import")

	provider, err := s0_data.OpenSnapshot(ctx, j.downloader, j.path)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	snap := provider.Snapshot()

	if err := j.importer.Import(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"companies":    len(snap.Companies),
		"fundamentals": len(snap.Fundamentals),
		"prices":       len(snap.Prices),
	}).Info("Scheduled snapshot import completed successfully")
	return nil
}
