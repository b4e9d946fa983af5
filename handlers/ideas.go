// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/quarter-vote/middleware"
	"github.com/danielhkuo/quarter-vote/models"
	"github.com/danielhkuo/quarter-vote/realtime"
	"github.com/google/uuid"
)

// Broadcaster pushes realtime frames to connected WebSocket clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

type IdeaHandler struct {
	db  *sql.DB
	hub Broadcaster
}

func NewIdeaHandler(db *sql.DB, hub Broadcaster) *IdeaHandler {
	return &IdeaHandler{db: db, hub: hub}
}

// List handles GET /api/ideas
func (h *IdeaHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, title, description, author, votes, winning, created_at
		FROM idea ORDER BY created_at
	`)
	if err != nil {
		slog.Error("failed to query ideas", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	ideas := []models.Idea{}
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			slog.Error("failed to scan idea", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to query ideas", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, ideas)
}

// Create handles POST /api/idea
func (h *IdeaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIdeaRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	author := strings.TrimSpace(req.Author)

	if len(title) < models.MinTitleLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Title is too short")
		return
	}
	if len(description) < models.MinDescriptionLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Description is too short")
		return
	}
	if author == "" {
		author = models.DefaultAuthor
	}

	idea := models.Idea{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Author:      author,
		Votes:       0,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := h.db.Exec(`
		INSERT INTO idea (id, title, description, author, votes, winning, created_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5)
	`, idea.ID, idea.Title, idea.Description, idea.Author, idea.CreatedAt)
	if err != nil {
		slog.Error("failed to insert idea", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create idea")
		return
	}

	slog.Info("idea created", "idea_id", idea.ID, "author", idea.Author)

	h.hub.Broadcast(realtime.EventNewIdea, idea)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateIdeaResponse{
		Success: true,
		Idea:    idea,
	})
}

// scanIdea reads one idea row. The winning column is stored as an integer
// flag for SQLite/PostgreSQL portability.
func scanIdea(rows *sql.Rows) (models.Idea, error) {
	var idea models.Idea
	var winning int
	err := rows.Scan(&idea.ID, &idea.Title, &idea.Description, &idea.Author,
		&idea.Votes, &winning, &idea.CreatedAt)
	if err != nil {
		return models.Idea{}, err
	}
	idea.Winning = winning != 0
	return idea, nil
}
