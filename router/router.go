// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/quarter-vote/handlers"
	"github.com/danielhkuo/quarter-vote/hub"
	"github.com/danielhkuo/quarter-vote/middleware"
)

func NewRouter(db *sql.DB, h *hub.Hub, stats handlers.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	ideaHandler := handlers.NewIdeaHandler(db, h)
	voteHandler := handlers.NewVoteHandler(db, h)
	statsHandler := handlers.NewStatsHandler(db, stats)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Ideas and voting
	mux.HandleFunc("GET /api/ideas", middleware.WithLogging(ideaHandler.List))
	mux.HandleFunc("POST /api/idea", middleware.WithLogging(ideaHandler.Create))
	mux.HandleFunc("POST /api/vote", middleware.WithLogging(voteHandler.Cast))

	// Mapping stats and the announced project
	mux.HandleFunc("GET /api/stats", middleware.WithLogging(statsHandler.GetStats))
	mux.HandleFunc("GET /api/current-project", middleware.WithLogging(statsHandler.GetCurrentProject))

	// Realtime channel
	mux.HandleFunc("GET /ws", h.ServeWS)

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quarter-vote API v1"))
	})

	return mux
}
