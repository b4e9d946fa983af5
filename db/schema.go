// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema is kept portable between PostgreSQL and SQLite: timestamps are
// always supplied by the application, and winning is an integer flag.
const schema = `
-- Project ideas (the authoritative vote ledger)
CREATE TABLE IF NOT EXISTS idea (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    author TEXT NOT NULL,
    votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
    winning INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_idea_votes ON idea(votes);

-- One row per (identity, idea) vote; quarter label enforces the per-period quota
CREATE TABLE IF NOT EXISTS user_vote (
    user_id TEXT NOT NULL,
    idea_id TEXT NOT NULL REFERENCES idea(id) ON DELETE CASCADE,
    quarter TEXT NOT NULL,
    voted_at TIMESTAMP NOT NULL,
    PRIMARY KEY (user_id, idea_id)
);

CREATE INDEX IF NOT EXISTS idx_user_vote_quarter ON user_vote(user_id, quarter);

-- Chat history, capped by the hub at 200 messages
CREATE TABLE IF NOT EXISTS chat_message (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    body TEXT NOT NULL,
    sent_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_message_sent_at ON chat_message(sent_at);
`
