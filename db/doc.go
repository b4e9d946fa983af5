// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db creates the database schema.

# Tables

  - idea: the authoritative ledger of project ideas and their vote counts
  - user_vote: one row per identity/idea pair, labeled with the quarter it
    was cast in so the per-period quota survives rollovers
  - chat_message: recent chat history for replay on connect

# Portability

The same schema string runs on PostgreSQL (lib/pq) and SQLite
(modernc.org/sqlite). Application code always passes timestamps explicitly
and uses $1-style placeholders, which both drivers accept.
*/
package db
