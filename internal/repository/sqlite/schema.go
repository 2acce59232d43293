package sqlite

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash BLOB NOT NULL,
    verified      BOOLEAN NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_verifications (
    user_id              INTEGER PRIMARY KEY REFERENCES users(id),
    purpose              TEXT NOT NULL CHECK (purpose IN ('verification', 'passwordReset', 'passwordChange')),
    code_hash            BLOB NOT NULL,
    expires_at           DATETIME NOT NULL,
    staged_password_hash BLOB,
    created_at           DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pending_verifications_expires
    ON pending_verifications(expires_at);

CREATE TABLE IF NOT EXISTS reports (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL,
    description     TEXT,
    location        TEXT NOT NULL,
    contact         TEXT NOT NULL,
    date_reported   TEXT NOT NULL,
    type            TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    submitter_email TEXT NOT NULL,
    submitter_id    INTEGER NOT NULL REFERENCES users(id),
    created_at      DATETIME NOT NULL,
    resolved_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_reports_submitter ON reports(submitter_id);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);

CREATE TABLE IF NOT EXISTS found_items (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    name             TEXT NOT NULL,
    description      TEXT,
    location         TEXT NOT NULL,
    contact          TEXT NOT NULL,
    date_found       TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'claimed', 'expired')),
    source_report_id INTEGER REFERENCES reports(id),
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_found_items_status ON found_items(status);

CREATE TABLE IF NOT EXISTS lost_items (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    name             TEXT NOT NULL,
    description      TEXT,
    location         TEXT NOT NULL,
    contact          TEXT NOT NULL,
    owner            TEXT,
    date_lost        TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'missing' CHECK (status IN ('missing', 'found', 'expired')),
    source_report_id INTEGER REFERENCES reports(id),
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lost_items_status ON lost_items(status);
`

// Migrate creates any missing tables and indexes.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
