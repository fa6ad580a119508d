package s1_universe

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

// Repository handles universe snapshot persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveUniverse upserts the snapshot for its as-of date
func (r *Repository) SaveUniverse(ctx context.Context, universe *Universe) error {
	excludedJSON, err := json.Marshal(universe.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}

	query := `
		INSERT INTO engine.universe_snapshots (
			as_of,
			companies,
			total_count,
			excluded,
			created_at
		) VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (as_of) DO UPDATE SET
			companies = EXCLUDED.companies,
			total_count = EXCLUDED.total_count,
			excluded = EXCLUDED.excluded,
			created_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		universe.AsOf,
		universe.IDs(),
		universe.TotalCount,
		excludedJSON,
	)
	if err != nil {
		return fmt.Errorf("insert universe: %w", err)
	}

	return nil
}

// GetUniverse returns the latest snapshot taken on or before asOf.
// Only company IDs are stored; names and sectors are not restored.
func (r *Repository) GetUniverse(ctx context.Context, asOf time.Time) (*Universe, error) {
	query := `
		SELECT
			as_of,
			companies,
			total_count,
			excluded
		FROM engine.universe_snapshots
		WHERE as_of <= $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	universe := &Universe{
		Excluded: make(map[string]string),
	}

	var ids []string
	var excludedJSON []byte
	err := r.db.QueryRow(ctx, query, asOf).Scan(
		&universe.AsOf,
		&ids,
		&universe.TotalCount,
		&excludedJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}

	universe.Companies = make([]contracts.Company, len(ids))
	for i, id := range ids {
		universe.Companies[i] = contracts.Company{ID: id}
	}

	if len(excludedJSON) > 0 {
		if err := json.Unmarshal(excludedJSON, &universe.Excluded); err != nil {
			return nil, fmt.Errorf("unmarshal excluded: %w", err)
		}
	}

	return universe, nil
}
