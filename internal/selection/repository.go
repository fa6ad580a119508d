package selection

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

// ScreenRun is one persisted screener response
type ScreenRun struct {
	ID         uuid.UUID                   `json:"id"`
	ScreenName string                      `json:"screen_name"`
	AsOf       time.Time                   `json:"as_of"`
	TotalCount int                         `json:"total_count"`
	Response   *contracts.ScreenerResponse `json:"response"`
	CreatedAt  time.Time                   `json:"created_at"`
}

// Repository handles screen run persistence
// ⭐ SSOT: 스크리닝 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores a response under a new run ID
func (r *Repository) SaveRun(ctx context.Context, screenName string, resp *contracts.ScreenerResponse) (uuid.UUID, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO engine.screen_runs (
			id, screen_name, as_of, total_count, response
		) VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.pool.Exec(ctx, query, id, screenName, resp.AsOf, resp.TotalCount, payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save screen run: %w", err)
	}

	return id, nil
}

// GetRun retrieves one run by ID
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (*ScreenRun, error) {
	query := `
		SELECT id, screen_name, as_of, total_count, response, created_at
		FROM engine.screen_runs
		WHERE id = $1
	`
	return r.scanRun(r.pool.QueryRow(ctx, query, id))
}

// LatestRun retrieves the newest run of a screen on or before asOf
func (r *Repository) LatestRun(ctx context.Context, screenName string, asOf time.Time) (*ScreenRun, error) {
	query := `
		SELECT id, screen_name, as_of, total_count, response, created_at
		FROM engine.screen_runs
		WHERE screen_name = $1 AND as_of <= $2
		ORDER BY as_of DESC, created_at DESC
		LIMIT 1
	`
	return r.scanRun(r.pool.QueryRow(ctx, query, screenName, asOf))
}

func (r *Repository) scanRun(row pgx.Row) (*ScreenRun, error) {
	var run ScreenRun
	var payload []byte

	err := row.Scan(&run.ID, &run.ScreenName, &run.AsOf, &run.TotalCount, &payload, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screen run: %w", err)
	}

	run.Response = &contracts.ScreenerResponse{}
	if err := json.Unmarshal(payload, run.Response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &run, nil
}

// DeleteBefore removes runs screened before cutoff and returns how many were removed
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM engine.screen_runs WHERE as_of < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete screen runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
