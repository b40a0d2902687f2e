package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create the screener schema. Every statement is
// idempotent so initdb can run against a live database.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS screener`,

	`CREATE TABLE IF NOT EXISTS screener.constituents (
		cohort   TEXT             NOT NULL,
		symbol   TEXT             NOT NULL,
		name     TEXT             NOT NULL DEFAULT '',
		weight   DOUBLE PRECISION NOT NULL DEFAULT 0,
		as_of    DATE             NOT NULL,
		PRIMARY KEY (cohort, symbol)
	)`,

	`CREATE TABLE IF NOT EXISTS screener.universe_changes (
		run_date DATE NOT NULL,
		cohort   TEXT NOT NULL,
		action   TEXT NOT NULL,
		symbol   TEXT NOT NULL,
		PRIMARY KEY (run_date, cohort, action, symbol)
	)`,

	`CREATE TABLE IF NOT EXISTS screener.daily_prices (
		symbol     TEXT             NOT NULL,
		trade_date DATE             NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		volume     BIGINT           NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, trade_date)
	)`,

	`CREATE INDEX IF NOT EXISTS daily_prices_trade_date_idx
		ON screener.daily_prices (trade_date)`,

	`CREATE TABLE IF NOT EXISTS screener.momentum_scores (
		cohort            TEXT             NOT NULL,
		symbol            TEXT             NOT NULL,
		name              TEXT             NOT NULL DEFAULT '',
		as_of             DATE             NOT NULL,
		price             DOUBLE PRECISION NOT NULL,
		current_return    DOUBLE PRECISION NOT NULL,
		last_week_return  DOUBLE PRECISION NOT NULL,
		last_month_return DOUBLE PRECISION NOT NULL,
		current_rank      INTEGER          NOT NULL,
		last_month_rank   INTEGER          NOT NULL,
		rank_change       INTEGER          NOT NULL,
		PRIMARY KEY (cohort, symbol, as_of)
	)`,

	`CREATE TABLE IF NOT EXISTS screener.top_picks (
		cohort            TEXT             NOT NULL,
		symbol            TEXT             NOT NULL,
		name              TEXT             NOT NULL DEFAULT '',
		as_of             DATE             NOT NULL,
		price             DOUBLE PRECISION NOT NULL,
		current_return    DOUBLE PRECISION NOT NULL,
		last_week_return  DOUBLE PRECISION NOT NULL,
		last_month_return DOUBLE PRECISION NOT NULL,
		current_rank      INTEGER          NOT NULL,
		last_month_rank   INTEGER          NOT NULL,
		rank_change       INTEGER          NOT NULL,
		PRIMARY KEY (cohort, symbol, as_of)
	)`,

	`CREATE TABLE IF NOT EXISTS screener.company_metadata (
		symbol      TEXT        NOT NULL PRIMARY KEY,
		name        TEXT        NOT NULL DEFAULT '',
		description TEXT        NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS screener.company_news (
		symbol        TEXT        NOT NULL,
		published_utc TIMESTAMPTZ NOT NULL,
		headline      TEXT        NOT NULL DEFAULT '',
		url           TEXT        NOT NULL DEFAULT '',
		PRIMARY KEY (symbol, published_utc)
	)`,
}

// InitSchema creates the screener schema and all tables
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
