// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first (via godotenv);
real environment variables take precedence over it, and CLI flags take
precedence over both.

# Config Fields

  - Port: Server listen port (default: 4040)
  - DatabaseURL: Database connection string (defaults to a local SQLite
    file; required for postgres)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - OSMAPIBaseURL: OpenStreetMap API base URL
  - StatsHashtag: Changeset hashtag tracked by the stats service
  - StatsBBox: Bounding box the stats service queries changesets in
  - AnnounceAt: Optional winner announcement time (zero means never)

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type
	-osm-api      OpenStreetMap API base URL
	-hashtag      Changeset hashtag to track
	-bbox         Changeset bounding box
	-announce-at  Winner announcement time (RFC3339)

# Environment Variables

Flags fall back to environment variables:

	PORT          → -p
	DATABASE_URL  → -d
	DATABASE_TYPE → -t
	OSM_API_URL   → -osm-api
	STATS_HASHTAG → -hashtag
	STATS_BBOX    → -bbox
	ANNOUNCE_AT   → -announce-at

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open(cfg.DatabaseType, cfg.DatabaseURL)
	// ...
	mux := router.NewRouter(db, cfg)
*/
package cliparse
