package database

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate; every statement is idempotent.
// Fundamentals keep the whole record as JSONB so new line items need no migration.
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS market`,
	`CREATE TABLE IF NOT EXISTS market.companies (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		sector      TEXT NOT NULL DEFAULT '',
		industry    TEXT NOT NULL DEFAULT '',
		exchange    TEXT NOT NULL DEFAULT '',
		listed_on   DATE,
		delisted_on DATE
	)`,
	`CREATE TABLE IF NOT EXISTS market.fundamentals (
		company     TEXT NOT NULL REFERENCES market.companies(id),
		period_end  DATE NOT NULL,
		period_type TEXT NOT NULL,
		filed_at    DATE,
		record      JSONB NOT NULL,
		PRIMARY KEY (company, period_end, period_type)
	)`,
	// prices carry benchmark series too, so company is not a foreign key
	`CREATE TABLE IF NOT EXISTS market.prices (
		company        TEXT NOT NULL,
		date           DATE NOT NULL,
		open           NUMERIC NOT NULL,
		high           NUMERIC NOT NULL,
		low            NUMERIC NOT NULL,
		close          NUMERIC NOT NULL,
		adjusted_close NUMERIC NOT NULL,
		volume         BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (company, date)
	)`,
	`CREATE SCHEMA IF NOT EXISTS engine`,
	`CREATE TABLE IF NOT EXISTS engine.screen_runs (
		id           UUID PRIMARY KEY,
		screen_name  TEXT NOT NULL,
		as_of        DATE NOT NULL,
		total_count  INT NOT NULL,
		response     JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS engine.universe_snapshots (
		as_of        DATE PRIMARY KEY,
		companies    TEXT[] NOT NULL,
		total_count  INT NOT NULL,
		excluded     JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS engine.quality_snapshots (
		snapshot_date   DATE PRIMARY KEY,
		score           DOUBLE PRECISION NOT NULL,
		total_companies INT NOT NULL,
		valid_companies INT NOT NULL,
		coverage        JSONB NOT NULL,
		passed          BOOLEAN NOT NULL,
		failures        TEXT[] NOT NULL DEFAULT '{}',
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS screen_runs_name_as_of ON engine.screen_runs (screen_name, as_of DESC)`,
	`CREATE TABLE IF NOT EXISTS engine.backtest_runs (
		id           UUID PRIMARY KEY,
		config_hash  TEXT NOT NULL,
		partial      BOOLEAN NOT NULL,
		cagr         DOUBLE PRECISION NOT NULL,
		result       JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables used by the PostgreSQL provider and run repositories
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i, err)
		}
	}
	return nil
}
