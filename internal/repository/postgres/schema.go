package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash BYTEA NOT NULL,
		verified      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pending_verifications (
		user_id              BIGINT PRIMARY KEY REFERENCES users(id),
		purpose              TEXT NOT NULL CHECK (purpose IN ('verification', 'passwordReset', 'passwordChange')),
		code_hash            BYTEA NOT NULL,
		expires_at           TIMESTAMPTZ NOT NULL,
		staged_password_hash BYTEA,
		created_at           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_verifications_expires ON pending_verifications(expires_at)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id              BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL,
		description     TEXT,
		location        TEXT NOT NULL,
		contact         TEXT NOT NULL,
		date_reported   TEXT NOT NULL,
		type            TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		submitter_email TEXT NOT NULL,
		submitter_id    BIGINT NOT NULL REFERENCES users(id),
		created_at      TIMESTAMPTZ NOT NULL,
		resolved_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_submitter ON reports(submitter_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status)`,
	`CREATE TABLE IF NOT EXISTS found_items (
		id               BIGSERIAL PRIMARY KEY,
		name             TEXT NOT NULL,
		description      TEXT,
		location         TEXT NOT NULL,
		contact          TEXT NOT NULL,
		date_found       TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'claimed', 'expired')),
		source_report_id BIGINT REFERENCES reports(id),
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_found_items_status ON found_items(status)`,
	`CREATE TABLE IF NOT EXISTS lost_items (
		id               BIGSERIAL PRIMARY KEY,
		name             TEXT NOT NULL,
		description      TEXT,
		location         TEXT NOT NULL,
		contact          TEXT NOT NULL,
		owner            TEXT,
		date_lost        TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'missing' CHECK (status IN ('missing', 'found', 'expired')),
		source_report_id BIGINT REFERENCES reports(id),
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lost_items_status ON lost_items(status)`,
}

// Migrate creates any missing tables and indexes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
