// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package osmstats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/quarter-vote/models"
	"github.com/danielhkuo/quarter-vote/realtime"
)

const updateInterval = 30 * time.Second

// Broadcaster pushes realtime frames to connected WebSocket clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Updater periodically refreshes statistics for connected clients and
// announces the winning idea once the configured time arrives.
type Updater struct {
	svc        *Service
	db         *sql.DB
	hub        Broadcaster
	announceAt time.Time
	now        func() time.Time
}

// NewUpdater creates an updater. A zero announceAt disables the winner
// announcement.
func NewUpdater(svc *Service, db *sql.DB, hub Broadcaster, announceAt time.Time) *Updater {
	return &Updater{
		svc:        svc,
		db:         db,
		hub:        hub,
		announceAt: announceAt,
		now:        time.Now,
	}
}

// Run ticks until the context is cancelled, broadcasting stats_update
// frames and sweeping for the winner announcement.
func (u *Updater) Run(ctx context.Context) {
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.tick(ctx)
		}
	}
}

func (u *Updater) tick(ctx context.Context) {
	stats, err := u.svc.Current(ctx)
	if err != nil {
		slog.Warn("stats refresh failed", "error", err)
	} else {
		u.hub.Broadcast(realtime.EventStatsUpdate, stats)
	}

	if err := u.sweepWinner(u.now().UTC()); err != nil {
		slog.Error("winner sweep failed", "error", err)
	}
}

// sweepWinner marks the top-voted idea as winning once the announcement
// time has passed. An already-announced winner makes this a no-op, so the
// sweep survives restarts without extra state.
func (u *Updater) sweepWinner(now time.Time) error {
	if u.announceAt.IsZero() || now.Before(u.announceAt) {
		return nil
	}

	tx, err := u.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var announced bool
	err = tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM idea WHERE winning = 1)`).Scan(&announced)
	if err != nil {
		return err
	}
	if announced {
		return nil
	}

	var id, title string
	err = tx.QueryRow(`
		SELECT id, title FROM idea
		ORDER BY votes DESC, created_at ASC LIMIT 1
	`).Scan(&id, &title)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE idea SET winning = 1 WHERE id = $1`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("winner announced", "idea_id", id, "title", title)

	u.hub.Broadcast(realtime.EventChatMessage, models.ChatMessage{
		User:      "System",
		Text:      fmt.Sprintf("The community has chosen: %s", title),
		Timestamp: now,
	})

	return nil
}
