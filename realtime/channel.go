// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Reconnection policy: bounded retries with a fixed inter-attempt delay.
const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = time.Second
)

// ErrDisconnected is returned by Emit while the channel is down. Callers
// treat the channel as best-effort; REST remains authoritative.
var ErrDisconnected = errors.New("realtime channel disconnected")

// Handler receives every decoded inbound event, on the channel's read
// goroutine.
type Handler func(Event)

// Channel is the push/subscribe contract the engine consumes.
type Channel interface {
	Connect(ctx context.Context) error
	Emit(event string, payload any) error
	Close() error
}

// WSChannel is a websocket-backed Channel with automatic reconnection.
// Messages missed while disconnected are not buffered or replayed, so the
// OnReconnect hook must trigger a full resync.
type WSChannel struct {
	url         string
	handler     Handler
	onReconnect func()

	maxRetries int
	retryDelay time.Duration
	dialer     *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
}

// NewWSChannel creates a channel for the given websocket URL. The handler is
// required; onReconnect may be nil.
func NewWSChannel(url string, handler Handler, onReconnect func()) *WSChannel {
	return &WSChannel{
		url:         url,
		handler:     handler,
		onReconnect: onReconnect,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		dialer:      websocket.DefaultDialer,
	}
}

// SetRetryPolicy overrides the reconnection bounds, for tests.
func (c *WSChannel) SetRetryPolicy(maxRetries int, delay time.Duration) {
	c.maxRetries = maxRetries
	c.retryDelay = delay
}

// Connect dials the server and starts the read loop. The context bounds the
// initial dial and all later reconnect attempts.
func (c *WSChannel) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(ctx, conn)
	return nil
}

// Connected reports whether the channel currently has a live connection.
func (c *WSChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Emit sends an event frame. Returns ErrDisconnected while the channel is
// down.
func (c *WSChannel) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return ErrDisconnected
	}
	return c.conn.WriteJSON(Frame{Event: event, Payload: data})
}

// Close shuts the channel down permanently; no reconnection is attempted.
func (c *WSChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *WSChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.connected = false
			c.mu.Unlock()
			if closed {
				return
			}
			slog.Warn("channel connection lost", "error", err)
			conn.Close()

			next, ok := c.reconnect(ctx)
			if !ok {
				return
			}
			conn = next
			continue
		}

		ev, err := Decode(frame)
		if err != nil {
			if !errors.Is(err, ErrUnknownEvent) {
				slog.Warn("dropping malformed channel event", "event", frame.Event, "error", err)
			}
			continue
		}
		c.handler(ev)
	}
}

// reconnect tries to re-establish the connection. On success it swaps the
// connection in and fires the OnReconnect hook. Exhausting the retry budget
// leaves the channel in the degraded disconnected state.
func (c *WSChannel) reconnect(ctx context.Context) (*websocket.Conn, bool) {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(c.retryDelay):
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, false
		}
		c.mu.Unlock()

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			slog.Warn("channel reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.connected = true
		c.mu.Unlock()

		slog.Info("channel reconnected", "attempt", attempt)
		if c.onReconnect != nil {
			c.onReconnect()
		}
		return conn, true
	}

	slog.Error("channel reconnect attempts exhausted; continuing without broadcasts")
	return nil, false
}
