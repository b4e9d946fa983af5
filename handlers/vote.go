// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/quarter-vote/middleware"
	"github.com/danielhkuo/quarter-vote/models"
	"github.com/danielhkuo/quarter-vote/quota"
	"github.com/danielhkuo/quarter-vote/realtime"
)

type VoteHandler struct {
	db  *sql.DB
	hub Broadcaster
}

func NewVoteHandler(db *sql.DB, hub Broadcaster) *VoteHandler {
	return &VoteHandler{db: db, hub: hub}
}

// Cast handles POST /api/vote
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.IdeaID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "idea_id is required")
		return
	}
	if req.UserID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	// Verify the idea exists
	var exists bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM idea WHERE id = $1)
	`, req.IdeaID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query idea", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Idea not found")
		return
	}

	// One vote per idea per identity, ever
	var voted bool
	err = h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM user_vote WHERE user_id = $1 AND idea_id = $2)
	`, req.UserID, req.IdeaID).Scan(&voted)
	if err != nil {
		slog.Error("failed to query vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if voted {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Already voted for this idea")
		return
	}

	// Per-quarter quota
	now := time.Now().UTC()
	currentQuarter := quota.CurrentPeriod(now)

	var used int
	err = h.db.QueryRow(`
		SELECT COUNT(*) FROM user_vote WHERE user_id = $1 AND quarter = $2
	`, req.UserID, currentQuarter).Scan(&used)
	if err != nil {
		slog.Error("failed to count votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if used >= models.VotesPerQuarter {
		middleware.ErrorResponse(w, http.StatusBadRequest, "No votes remaining this quarter")
		return
	}

	// Increment and record atomically
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE idea SET votes = votes + 1 WHERE id = $1`, req.IdeaID); err != nil {
		slog.Error("failed to increment votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO user_vote (user_id, idea_id, quarter, voted_at)
		VALUES ($1, $2, $3, $4)
	`, req.UserID, req.IdeaID, currentQuarter, now)
	if err != nil {
		slog.Error("failed to insert vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	var votes int
	if err := tx.QueryRow(`SELECT votes FROM idea WHERE id = $1`, req.IdeaID).Scan(&votes); err != nil {
		slog.Error("failed to read vote count", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	slog.Info("vote recorded", "idea_id", req.IdeaID, "quarter", currentQuarter)

	h.hub.Broadcast(realtime.EventVoteUpdate, realtime.VoteUpdate{
		IdeaID: req.IdeaID,
		Votes:  votes,
	})

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		Success: true,
		Votes:   votes,
	})
}
