package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// PriceRepository stores daily bars in market.prices
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// FetchPrices retrieves bars for a company within [from, to], oldest first
func (r *PriceRepository) FetchPrices(ctx context.Context, company string, from, to time.Time) ([]contracts.PriceBar, error) {
	query := `
		SELECT company, date, open, high, low, close, adjusted_close, volume
		FROM market.prices
		WHERE company = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, company, from, to)
	if err != nil {
		return nil, fmt.Errorf("query prices for %s: %w", company, err)
	}
	defer rows.Close()

	bars := []contracts.PriceBar{}
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Company, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjustedClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price for %s: %w", company, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LatestDate returns the most recent bar date across all companies
func (r *PriceRepository) LatestDate(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	if err := r.pool.QueryRow(ctx, `SELECT MAX(date) FROM market.prices`).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query latest price date: %w", err)
	}
	if latest == nil {
		return time.Time{}, contracts.ErrNotFound
	}
	return *latest, nil
}

// SaveBatch upserts bars in a single transaction
func (r *PriceRepository) SaveBatch(ctx context.Context, bars []contracts.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.prices (company, date, open, high, low, close, adjusted_close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			adjusted_close = EXCLUDED.adjusted_close,
			volume = EXCLUDED.volume
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range bars {
		_, err := tx.Exec(ctx, query,
			b.Company, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjustedClose, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("insert price for %s: %w", b.Company, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
