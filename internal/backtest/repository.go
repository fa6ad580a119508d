package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// RunSummary is one row of the stored backtest list
type RunSummary struct {
	ID         string    `json:"id"`
	ConfigHash string    `json:"config_hash"`
	Partial    bool      `json:"partial"`
	CAGR       float64   `json:"cagr"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository handles backtest result persistence
// ⭐ SSOT: 백테스트 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new backtest repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveResult stores a finished result under its ID
func (r *Repository) SaveResult(ctx context.Context, result *contracts.BacktestResult) error {
	id, err := uuid.Parse(result.ID)
	if err != nil {
		return fmt.Errorf("invalid result id %q: %w", result.ID, err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO engine.backtest_runs (
			id, config_hash, partial, cagr, result
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			config_hash = EXCLUDED.config_hash,
			partial = EXCLUDED.partial,
			cagr = EXCLUDED.cagr,
			result = EXCLUDED.result
	`

	if _, err := r.pool.Exec(ctx, query, id, result.ConfigHash, result.Partial, result.Summary.CAGR, payload); err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}
	return nil
}

// GetResult retrieves one stored result by ID
func (r *Repository) GetResult(ctx context.Context, id string) (*contracts.BacktestResult, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, contracts.ErrNotFound
	}

	var payload []byte
	err = r.pool.QueryRow(ctx, `SELECT result FROM engine.backtest_runs WHERE id = $1`, parsed).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest run: %w", err)
	}

	var result contracts.BacktestResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode backtest run: %w", err)
	}
	return &result, nil
}

// ListRecent returns the newest runs first
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, config_hash, partial, cagr, created_at
		FROM engine.backtest_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var (
			run RunSummary
			id  uuid.UUID
		)
		if err := rows.Scan(&id, &run.ConfigHash, &run.Partial, &run.CAGR, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		run.ID = id.String()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
