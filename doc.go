// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quarter Vote server.

Quarter Vote is a community voting service for quarterly mapping projects:
members submit project ideas, spend two votes per quarter, chat, and watch
OpenStreetMap activity stats — all synchronized live over WebSockets.

# Starting the Server

The server runs on SQLite out of the box:

	go run main.go

Or against PostgreSQL:

	DATABASE_TYPE=postgres DATABASE_URL=postgres://... go run main.go

A .env file in the working directory is also honored.

# Configuration

Optional settings:

  - PORT (-p): Server port (default: 4040)
  - DATABASE_URL (-d): Connection string (default: local SQLite file)
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)
  - OSM_API_URL (-osm-api): OpenStreetMap API base URL
  - STATS_HASHTAG (-hashtag): Changeset hashtag tracked by the dashboard
  - STATS_BBOX (-bbox): Bounding box for changeset queries
  - ANNOUNCE_AT (-announce-at): Winner announcement time, RFC3339

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (ideas, votes, stats)
  - router: Route definitions using Go 1.22+ routing
  - hub: WebSocket fan-out and chat persistence
  - osmstats: OpenStreetMap changeset aggregation and the winner sweep
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - db: Schema creation
  - cliparse: Configuration parsing

The engine, votestore, ideacache, ledger, quota, and realtime packages
form the client-side synchronization library that talks to this API.

See package documentation for each component.
*/
package main
