// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quarter-vote/middleware"
	"github.com/danielhkuo/quarter-vote/models"
)

// StatsProvider serves mapping activity statistics, typically from a cache
// over the OpenStreetMap changeset API.
type StatsProvider interface {
	Current(ctx context.Context) (models.Stats, error)
}

type StatsHandler struct {
	db    *sql.DB
	stats StatsProvider
}

func NewStatsHandler(db *sql.DB, stats StatsProvider) *StatsHandler {
	return &StatsHandler{db: db, stats: stats}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Current(r.Context())
	if err != nil {
		slog.Error("failed to fetch stats", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Stats unavailable")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, stats)
}

// GetCurrentProject handles GET /api/current-project. It returns the
// winning idea, or an empty object before any winner is announced.
func (h *StatsHandler) GetCurrentProject(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, title, description, author, votes, winning, created_at
		FROM idea WHERE winning = 1
		ORDER BY votes DESC LIMIT 1
	`)
	if err != nil {
		slog.Error("failed to query winning idea", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	if !rows.Next() {
		middleware.JSONResponse(w, http.StatusOK, struct{}{})
		return
	}

	idea, err := scanIdea(rows)
	if err != nil {
		slog.Error("failed to scan winning idea", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, idea)
}
