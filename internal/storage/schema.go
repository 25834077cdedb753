package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema is the engine's relational DDL. Statements are idempotent so the
// migration can run on every startup.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id                      TEXT PRIMARY KEY,
    platform                TEXT NOT NULL,
    platform_user_id        TEXT,
    platform_username       TEXT,
    encrypted_access_token  TEXT NOT NULL,
    encrypted_refresh_token TEXT,
    token_expires_at        TIMESTAMPTZ,
    is_active               BOOLEAN NOT NULL DEFAULT TRUE,
    last_fetched_at         TIMESTAMPTZ,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS account_members (
    user_id    TEXT NOT NULL,
    account_id TEXT NOT NULL REFERENCES accounts (id),
    role       TEXT NOT NULL DEFAULT 'member',
    PRIMARY KEY (user_id, account_id)
);

CREATE INDEX IF NOT EXISTS account_members_account_idx
    ON account_members (account_id);

CREATE TABLE IF NOT EXISTS rate_limits (
    account_id           TEXT PRIMARY KEY,
    remaining            INTEGER,
    limit_total          INTEGER,
    reset_at             TIMESTAMPTZ,
    consecutive_failures INTEGER NOT NULL DEFAULT 0,
    last_failure_at      TIMESTAMPTZ,
    circuit_open_until   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS corpus_snapshots (
    store_id     TEXT NOT NULL,
    version      TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    tags         TEXT[] NOT NULL DEFAULT '{}',
    PRIMARY KEY (store_id, version)
);

CREATE INDEX IF NOT EXISTS corpus_snapshots_created_idx
    ON corpus_snapshots (store_id, created_at DESC, version DESC);

CREATE TABLE IF NOT EXISTS corpus_parents (
    store_id       TEXT NOT NULL,
    version        TEXT NOT NULL,
    parent_store_id TEXT NOT NULL,
    parent_version TEXT NOT NULL,
    role           TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (store_id, version, parent_store_id, parent_version),
    FOREIGN KEY (store_id, version) REFERENCES corpus_snapshots (store_id, version)
);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}
