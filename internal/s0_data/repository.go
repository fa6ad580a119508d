package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// Repository is the PostgreSQL DataProvider over the market schema
// ⭐ SSOT: DB 기반 데이터 제공은 여기서만
type Repository struct {
	db         *pgxpool.Pool
	prices     *PriceRepository
	financials *FinancialRepository
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db:         db,
		prices:     NewPriceRepository(db),
		financials: NewFinancialRepository(db),
	}
}

// Pool returns the underlying database pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

// Prices returns the price repository
func (r *Repository) Prices() *PriceRepository { return r.prices }

// Financials returns the fundamentals repository
func (r *Repository) Financials() *FinancialRepository { return r.financials }

// FetchUniverse lists companies listed as of asOf, ordered by ID
func (r *Repository) FetchUniverse(ctx context.Context, asOf time.Time) ([]contracts.Company, error) {
	query := `
		SELECT id, name, sector, industry, exchange
		FROM market.companies
		WHERE (listed_on IS NULL OR listed_on <= $1)
		  AND (delisted_on IS NULL OR delisted_on > $1)
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()

	companies := []contracts.Company{}
	for rows.Next() {
		var c contracts.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Sector, &c.Industry, &c.Exchange); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// FetchFundamentals delegates to the fundamentals repository
func (r *Repository) FetchFundamentals(ctx context.Context, company string, asOf time.Time) ([]contracts.FundamentalRecord, error) {
	return r.financials.FetchFundamentals(ctx, company, asOf)
}

// FetchPrices delegates to the price repository
func (r *Repository) FetchPrices(ctx context.Context, company string, from, to time.Time) ([]contracts.PriceBar, error) {
	return r.prices.FetchPrices(ctx, company, from, to)
}

// SaveCompanies upserts listings (bulk upsert)
func (r *Repository) SaveCompanies(ctx context.Context, listings []Listing) error {
	if len(listings) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.companies (id, name, sector, industry, exchange, listed_on, delisted_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			exchange = EXCLUDED.exchange,
			listed_on = EXCLUDED.listed_on,
			delisted_on = EXCLUDED.delisted_on
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, l := range listings {
		_, err := tx.Exec(ctx, query, l.ID, l.Name, l.Sector, l.Industry, l.Exchange, l.ListedOn, l.DelistedOn)
		if err != nil {
			return fmt.Errorf("insert company %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Import writes a whole snapshot: companies first, then fundamentals and prices
func (r *Repository) Import(ctx context.Context, snap *Snapshot) error {
	if err := r.SaveCompanies(ctx, snap.Companies); err != nil {
		return fmt.Errorf("save companies: %w", err)
	}
	if err := r.financials.SaveBatch(ctx, snap.Fundamentals); err != nil {
		return fmt.Errorf("save fundamentals: %w", err)
	}
	if err := r.prices.SaveBatch(ctx, snap.Prices); err != nil {
		return fmt.Errorf("save prices: %w", err)
	}
	return nil
}
