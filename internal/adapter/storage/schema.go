package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables on startup if they do not exist yet.
// Balances and amounts are numeric(12,2): exact fixed-point, never floats.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id          uuid PRIMARY KEY,
			name        varchar(255) NOT NULL,
			email       varchar(255) NOT NULL UNIQUE,
			balance     numeric(12,2) NOT NULL DEFAULT 0.00 CHECK (balance >= 0),
			is_agent    boolean NOT NULL DEFAULT false,
			created_at  timestamptz NOT NULL DEFAULT now(),
			updated_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS payment_methods (
			id          uuid PRIMARY KEY,
			account_id  uuid NOT NULL REFERENCES accounts(id),
			method_type varchar(100) NOT NULL,
			token_id    varchar(255) NOT NULL UNIQUE,
			is_active   boolean NOT NULL DEFAULT true,
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id              uuid PRIMARY KEY,
			from_account_id uuid NOT NULL REFERENCES accounts(id),
			to_account_id   uuid NOT NULL REFERENCES accounts(id),
			amount          numeric(12,2) NOT NULL CHECK (amount > 0),
			status          varchar(20) NOT NULL CHECK (status IN ('Pending', 'Completed', 'Failed')),
			description     varchar(500),
			created_at      timestamptz NOT NULL,
			completed_at    timestamptz,
			CHECK (from_account_id <> to_account_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions (from_account_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions (to_account_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS webhook_jobs (
			id          uuid PRIMARY KEY,
			url         text NOT NULL,
			payload     jsonb NOT NULL,
			status      varchar(20) NOT NULL DEFAULT 'PENDING',
			attempts    int NOT NULL DEFAULT 0,
			next_run_at timestamptz NOT NULL DEFAULT now(),
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range ddl {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
	}
	return nil
}
