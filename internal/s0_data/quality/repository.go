package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// Repository handles data quality report persistence
// ⭐ SSOT: S0 품질 스냅샷 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveReport upserts a report keyed by its date
func (r *Repository) SaveReport(ctx context.Context, report *Report) error {
	coverage, err := json.Marshal(report.Coverage)
	if err != nil {
		return fmt.Errorf("marshal coverage: %w", err)
	}
	failures := report.Failures
	if failures == nil {
		failures = []string{}
	}

	query := `
		INSERT INTO engine.quality_snapshots (
			snapshot_date, score, total_companies, valid_companies, coverage, passed, failures
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			score = EXCLUDED.score,
			total_companies = EXCLUDED.total_companies,
			valid_companies = EXCLUDED.valid_companies,
			coverage = EXCLUDED.coverage,
			passed = EXCLUDED.passed,
			failures = EXCLUDED.failures,
			updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		report.Date,
		report.Score,
		report.TotalCompanies,
		report.ValidCompanies,
		coverage,
		report.Passed,
		failures,
	)
	if err != nil {
		return fmt.Errorf("save quality snapshot: %w", err)
	}
	return nil
}

// GetByDate retrieves the report for an exact date
func (r *Repository) GetByDate(ctx context.Context, date time.Time) (*Report, error) {
	query := `
		SELECT snapshot_date, score, total_companies, valid_companies, coverage, passed, failures
		FROM engine.quality_snapshots
		WHERE snapshot_date = $1
	`
	return scanReport(r.pool.QueryRow(ctx, query, date))
}

// GetLatest retrieves the most recent report
func (r *Repository) GetLatest(ctx context.Context) (*Report, error) {
	query := `
		SELECT snapshot_date, score, total_companies, valid_companies, coverage, passed, failures
		FROM engine.quality_snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1
	`
	return scanReport(r.pool.QueryRow(ctx, query))
}

func scanReport(row pgx.Row) (*Report, error) {
	var (
		report   Report
		coverage []byte
	)
	err := row.Scan(
		&report.Date,
		&report.Score,
		&report.TotalCompanies,
		&report.ValidCompanies,
		&coverage,
		&report.Passed,
		&report.Failures,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quality snapshot: %w", err)
	}
	if err := json.Unmarshal(coverage, &report.Coverage); err != nil {
		return nil, fmt.Errorf("decode coverage: %w", err)
	}
	return &report, nil
}
