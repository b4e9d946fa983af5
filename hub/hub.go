// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/quarter-vote/models"
	"github.com/danielhkuo/quarter-vote/realtime"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// chatReplayLimit is how many recent messages a fresh connection receives.
	chatReplayLimit = 50
	// chatHistoryCap bounds the persisted chat history.
	chatHistoryCap = 200

	pingInterval = 15 * time.Second
	// sendBuffer must hold a full chat replay plus the user_count frame.
	sendBuffer = chatReplayLimit + 16
)

// Package-level WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Hub fans realtime frames out to every connected WebSocket client.
type Hub struct {
	db *sql.DB

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub backed by the given database for chat persistence.
func New(conn *sql.DB) *Hub {
	return &Hub{
		db:      conn,
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request to a WebSocket connection and pumps frames
// until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	// The write pump must drain before replay so a full history cannot
	// overflow the send buffer.
	go c.writePump()

	h.broadcastUserCount()
	h.replayChat(c)

	h.readPump(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
	conn.Close()

	h.broadcastUserCount()
}

// Broadcast sends an event frame to every connected client. Slow clients
// with a full send buffer miss the frame rather than stall the hub.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := encodeFrame(event, payload)
	if err != nil {
		slog.Error("failed to encode broadcast frame", "event", event, "error", err)
		return
	}
	h.deliver(data, nil)
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// deliver enqueues data to all clients except skip (nil means everyone).
func (h *Hub) deliver(data []byte, skip *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c == skip {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) broadcastUserCount() {
	h.Broadcast(realtime.EventUserCount, h.ClientCount())
}

// replayChat sends the most recent persisted messages to a new client,
// oldest first.
func (h *Hub) replayChat(c *client) {
	rows, err := h.db.Query(`
		SELECT username, body, sent_at FROM chat_message
		ORDER BY sent_at DESC LIMIT $1
	`, chatReplayLimit)
	if err != nil {
		slog.Error("failed to load chat history", "error", err)
		return
	}
	defer rows.Close()

	var history []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.User, &msg.Text, &msg.Timestamp); err != nil {
			slog.Error("failed to scan chat message", "error", err)
			return
		}
		history = append(history, msg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to load chat history", "error", err)
		return
	}

	for i := len(history) - 1; i >= 0; i-- {
		data, err := encodeFrame(realtime.EventChatMessage, history[i])
		if err != nil {
			return
		}
		select {
		case c.send <- data:
		default:
			return
		}
	}
}

// readPump consumes inbound frames from one client until its connection
// drops. Chat messages are validated, persisted, and fanned out; vote
// updates are relayed to the other clients. Anything else is dropped.
func (h *Hub) readPump(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame realtime.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("dropping malformed frame", "error", err)
			continue
		}

		switch frame.Event {
		case realtime.EventChatMessage:
			h.handleChat(frame.Payload)
		case realtime.EventVoteUpdate:
			// The vote endpoint broadcasts the authoritative count; a
			// client-relayed frame only nudges peers that missed it.
			h.deliver(data, c)
		default:
			slog.Warn("dropping unknown client frame", "event", frame.Event)
		}
	}
}

// handleChat validates, persists, and broadcasts one chat message.
func (h *Hub) handleChat(payload json.RawMessage) {
	var msg models.ChatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		slog.Warn("dropping malformed chat message", "error", err)
		return
	}

	msg.User = truncate(strings.TrimSpace(msg.User), models.MaxChatUserLen)
	msg.Text = truncate(strings.TrimSpace(msg.Text), models.MaxChatTextLen)
	if msg.User == "" || msg.Text == "" {
		return
	}
	// The server's clock is authoritative for chat ordering.
	msg.Timestamp = time.Now().UTC()

	if err := h.persistChat(msg); err != nil {
		slog.Error("failed to persist chat message", "error", err)
	}

	data, err := encodeFrame(realtime.EventChatMessage, msg)
	if err != nil {
		return
	}
	h.deliver(data, nil)
}

func (h *Hub) persistChat(msg models.ChatMessage) error {
	_, err := h.db.Exec(`
		INSERT INTO chat_message (id, username, body, sent_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), msg.User, msg.Text, msg.Timestamp)
	if err != nil {
		return err
	}

	_, err = h.db.Exec(`
		DELETE FROM chat_message WHERE id NOT IN (
			SELECT id FROM chat_message ORDER BY sent_at DESC LIMIT $1
		)
	`, chatHistoryCap)
	return err
}

// writePump drains the send queue and keeps the connection alive with
// periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

func encodeFrame(event string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(realtime.Frame{Event: event, Payload: raw})
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
