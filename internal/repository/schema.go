package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS goals (
		id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		traveler_name text NOT NULL,
		destination text NOT NULL,
		car text NOT NULL,
		date timestamptz NOT NULL,
		passengers integer NOT NULL DEFAULT 1 CHECK (passengers >= 1),
		image text NOT NULL,
		user_id text,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS goals_date_idx ON goals (date, created_at)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		uid uuid PRIMARY KEY,
		email text NOT NULL UNIQUE,
		password_hash text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables owned by the pgx repositories.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
