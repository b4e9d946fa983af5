package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	OSMAPIBaseURL string
	StatsHashtag  string
	StatsBBox     string
	AnnounceAt    time.Time
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	// Load .env if present; real env variables win over the file
	_ = godotenv.Load()

	var cfg Config
	var announceAt string

	fs := flag.NewFlagSet("quarter-vote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Mapping stats config
	fs.StringVar(&cfg.OSMAPIBaseURL, "osm-api", "", "OpenStreetMap API base URL")
	fs.StringVar(&cfg.StatsHashtag, "hashtag", "", "Changeset hashtag to track")
	fs.StringVar(&cfg.StatsBBox, "bbox", "", "Changeset bounding box (minLon,minLat,maxLon,maxLat)")
	fs.StringVar(&announceAt, "announce-at", "", "Winner announcement time (RFC3339, optional)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 4040 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType == "sqlite" {
			cfg.DatabaseURL = "file:quarter-vote.db"
		} else {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
	}

	if cfg.OSMAPIBaseURL == "" {
		cfg.OSMAPIBaseURL = os.Getenv("OSM_API_URL")
		if cfg.OSMAPIBaseURL == "" {
			cfg.OSMAPIBaseURL = "https://api.openstreetmap.org"
		}
	}
	if cfg.StatsHashtag == "" {
		cfg.StatsHashtag = os.Getenv("STATS_HASHTAG")
		if cfg.StatsHashtag == "" {
			cfg.StatsHashtag = "#projektctvrtleti"
		}
	}
	if cfg.StatsBBox == "" {
		cfg.StatsBBox = os.Getenv("STATS_BBOX")
		if cfg.StatsBBox == "" {
			cfg.StatsBBox = "12.09,48.55,18.87,51.06"
		}
	}

	if announceAt == "" {
		announceAt = os.Getenv("ANNOUNCE_AT")
	}
	if announceAt != "" {
		at, err := time.Parse(time.RFC3339, announceAt)
		if err != nil {
			return Config{}, errors.New("invalid announce time (want RFC3339)")
		}
		cfg.AnnounceAt = at
	}

	return cfg, nil
}
