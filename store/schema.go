// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates the poll table and its indexes.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// One row per poll aggregate. The doc column holds the whole aggregate
// (options, ballots, versions) as JSON; the other columns are denormalized
// copies kept in sync on every write so discovery queries never have to
// parse documents. rev guards compare-and-swap updates.
const schema = `
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    creator_id TEXT NOT NULL,
    privacy TEXT NOT NULL,
    total_votes INTEGER NOT NULL DEFAULT 0,
    expires_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    rev INTEGER NOT NULL DEFAULT 1,
    doc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_slug ON poll(slug);
CREATE INDEX IF NOT EXISTS idx_poll_creator ON poll(creator_id, created_at);
CREATE INDEX IF NOT EXISTS idx_poll_privacy_created ON poll(privacy, created_at);
`
