package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements - схема БД сверки. Все операторы идемпотентны.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL,
		external_order_id  TEXT,
		base_asset         TEXT NOT NULL,
		quote_asset        TEXT NOT NULL,
		side               TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
		amount             NUMERIC NOT NULL,
		filled_amount      NUMERIC,
		price              NUMERIC,
		total_value        NUMERIC,
		platform_fee       NUMERIC,
		venue_fee          NUMERIC,
		status             TEXT NOT NULL DEFAULT 'PENDING',
		venue_status       TEXT NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at       TIMESTAMPTZ,
		last_reconciled_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_pending
		ON orders (created_at, id) WHERE status = 'PENDING' AND external_order_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS balances (
		user_id           TEXT NOT NULL,
		asset             TEXT NOT NULL,
		balance           NUMERIC NOT NULL DEFAULT 0,
		available_balance NUMERIC NOT NULL DEFAULT 0,
		locked_balance    NUMERIC NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, asset)
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_fills (
		id                BIGSERIAL PRIMARY KEY,
		external_order_id TEXT NOT NULL UNIQUE,
		order_id          TEXT NOT NULL,
		user_id           TEXT NOT NULL,
		side              TEXT NOT NULL,
		base_asset        TEXT NOT NULL,
		quote_asset       TEXT NOT NULL,
		filled_amount     NUMERIC NOT NULL,
		total_value       NUMERIC NOT NULL,
		platform_fee      NUMERIC NOT NULL,
		applied_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS fee_schedule (
		asset      TEXT PRIMARY KEY,
		rate       NUMERIC NOT NULL CHECK (rate >= 0 AND rate < 1),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS reconcile_runs (
		id            BIGSERIAL PRIMARY KEY,
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ,
		trigger       TEXT NOT NULL,
		total         INTEGER NOT NULL DEFAULT 0,
		completed     INTEGER NOT NULL DEFAULT 0,
		cancelled     INTEGER NOT NULL DEFAULT 0,
		failed        INTEGER NOT NULL DEFAULT 0,
		still_pending INTEGER NOT NULL DEFAULT 0,
		errors        INTEGER NOT NULL DEFAULT 0,
		settled       INTEGER NOT NULL DEFAULT 0,
		skipped       INTEGER NOT NULL DEFAULT 0,
		aborted       BOOLEAN NOT NULL DEFAULT false,
		last_error    TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate создает таблицы, если их нет. Выполняется в одной транзакции.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}
