package s0_data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// FinancialRepository stores fundamental records in market.fundamentals
// ⭐ SSOT: 재무 데이터 저장소는 여기서만
type FinancialRepository struct {
	pool *pgxpool.Pool
}

// NewFinancialRepository creates a new financial repository
func NewFinancialRepository(pool *pgxpool.Pool) *FinancialRepository {
	return &FinancialRepository{pool: pool}
}

// FetchFundamentals retrieves a company's records available on or before asOf.
// A record without filed_at becomes available at its period end.
func (r *FinancialRepository) FetchFundamentals(ctx context.Context, company string, asOf time.Time) ([]contracts.FundamentalRecord, error) {
	query := `
		SELECT record
		FROM market.fundamentals
		WHERE company = $1 AND COALESCE(filed_at, period_end) <= $2
		ORDER BY period_end ASC, period_type ASC
	`

	rows, err := r.pool.Query(ctx, query, company, asOf)
	if err != nil {
		return nil, fmt.Errorf("query fundamentals for %s: %w", company, err)
	}
	defer rows.Close()

	history := []contracts.FundamentalRecord{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan fundamentals for %s: %w", company, err)
		}
		var rec contracts.FundamentalRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode fundamentals for %s: %w", company, err)
		}
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	contracts.SortHistory(history)
	return history, nil
}

// SaveBatch upserts records in a single transaction
func (r *FinancialRepository) SaveBatch(ctx context.Context, records []contracts.FundamentalRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := contracts.ValidateHistory(records); err != nil {
		return err
	}

	query := `
		INSERT INTO market.fundamentals (company, period_end, period_type, filed_at, record)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company, period_end, period_type) DO UPDATE SET
			filed_at = EXCLUDED.filed_at,
			record = EXCLUDED.record
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", rec.Key(), err)
		}
		if _, err := tx.Exec(ctx, query, rec.Company, rec.PeriodEnd, string(rec.PeriodType), rec.FiledAt, body); err != nil {
			return fmt.Errorf("insert fundamentals %s: %w", rec.Key(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
