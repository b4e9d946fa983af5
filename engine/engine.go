// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/quarter-vote/ideacache"
	"github.com/danielhkuo/quarter-vote/ledger"
	"github.com/danielhkuo/quarter-vote/models"
	"github.com/danielhkuo/quarter-vote/realtime"
	"github.com/danielhkuo/quarter-vote/votestore"
)

// Local guard errors: these short-circuit before any network call.
var (
	ErrTitleTooShort       = errors.New("title must be at least 5 characters")
	ErrDescriptionTooShort = errors.New("description must be at least 10 characters")
	ErrQuotaExhausted      = errors.New("no votes remaining this quarter")
	ErrAlreadyVoted        = errors.New("already voted for this idea")
	ErrUnknownIdea         = errors.New("unknown idea")
	ErrVoteInFlight        = errors.New("vote already being submitted for this idea")
	ErrChatNameRequired    = errors.New("chat name is required")
	ErrChatTextRequired    = errors.New("chat message is empty")
)

// Callbacks let a hosting application observe events the engine merges but
// does not own. All are optional and are invoked with the engine lock
// released.
type Callbacks struct {
	OnIdeaCreated func(models.Idea)       // an unseen idea arrived via broadcast
	OnChat        func(models.ChatMessage)
	OnStats       func(models.Stats)
	OnUserCount   func(int)
}

// Engine reconciles local voting state, the server ledger, and realtime
// broadcasts. One engine per active session; it owns the UserVoteState and
// the idea cache, and serializes every mutation through one mutex.
type Engine struct {
	store  *votestore.Store
	client *ledger.Client
	cb     Callbacks

	mu        sync.Mutex
	state     models.UserVoteState
	cache     *ideacache.Cache
	inflight  map[string]bool // Submitting guard, per idea id
	lastStats models.Stats
	channel   realtime.Channel
}

// New loads the persisted vote state and returns a ready engine. A load that
// falls back to fresh state but cannot persist it is reported as a warning,
// not a failure.
func New(store *votestore.Store, client *ledger.Client, cb Callbacks) *Engine {
	state, err := store.Load()
	if err != nil {
		slog.Warn("vote state not persisted; continuing with in-memory state", "error", err)
	}
	return &Engine{
		store:    store,
		client:   client,
		cb:       cb,
		state:    state,
		cache:    ideacache.New(),
		inflight: map[string]bool{},
	}
}

// SetChannel attaches the realtime channel used for best-effort outbound
// notifications. Construct the channel with HandleEvent as its handler and
// Resync as its reconnect hook.
func (e *Engine) SetChannel(ch realtime.Channel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.channel = ch
}

// CastVote submits one vote for the idea. Guards run locally first: unknown
// idea, duplicate vote, exhausted quota, or an in-flight submission for the
// same idea all fail without a request. On server failure nothing is
// mutated and nothing is retried; re-submission is user-initiated.
func (e *Engine) CastVote(ctx context.Context, ideaID string) error {
	e.mu.Lock()
	if _, ok := e.cache.Get(ideaID); !ok {
		e.mu.Unlock()
		return ErrUnknownIdea
	}
	if e.state.Voted(ideaID) {
		e.mu.Unlock()
		return ErrAlreadyVoted
	}
	if e.state.Remaining <= 0 {
		e.mu.Unlock()
		return ErrQuotaExhausted
	}
	if e.inflight[ideaID] {
		e.mu.Unlock()
		return ErrVoteInFlight
	}
	e.inflight[ideaID] = true
	userID := e.state.UserID
	e.mu.Unlock()

	votes, err := e.client.CastVote(ctx, ideaID, userID)

	e.mu.Lock()
	delete(e.inflight, ideaID)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	// Confirmed: mutate local truth, pin the count against stale broadcasts.
	e.state.Remaining--
	e.state.VotedIdeaIDs[ideaID] = true
	e.cache.SetVotes(ideaID, votes)
	e.cache.PinOwnVote(ideaID)
	e.cache.MarkVoted(ideaID)
	state := e.state
	ch := e.channel
	e.mu.Unlock()

	if err := e.store.Save(state); err != nil {
		slog.Warn("failed to persist vote state", "error", err)
	}
	e.emit(ch, realtime.EventVoteUpdate, realtime.VoteUpdate{IdeaID: ideaID, Votes: votes})
	return nil
}

// SubmitIdea validates locally, creates the idea on the server, inserts it
// into the cache, and — if quota remains — casts an automatic self-vote.
// Returns the created idea and whether the self-vote was cast.
func (e *Engine) SubmitIdea(ctx context.Context, title, description, author string) (models.Idea, bool, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	author = strings.TrimSpace(author)

	if len(title) < models.MinTitleLen {
		return models.Idea{}, false, ErrTitleTooShort
	}
	if len(description) < models.MinDescriptionLen {
		return models.Idea{}, false, ErrDescriptionTooShort
	}
	if author == "" {
		author = models.DefaultAuthor
	}

	idea, err := e.client.CreateIdea(ctx, title, description, author)
	if err != nil {
		return models.Idea{}, false, err
	}

	e.mu.Lock()
	e.cache.Upsert(idea)
	remaining := e.state.Remaining
	e.mu.Unlock()

	if remaining <= 0 {
		return idea, false, nil
	}
	if err := e.CastVote(ctx, idea.ID); err != nil {
		// The idea exists either way; the self-vote is a nudge, not a
		// guarantee.
		slog.Warn("automatic self-vote failed", "idea_id", idea.ID, "error", err)
		return idea, false, nil
	}
	idea, _ = e.Idea(idea.ID)
	return idea, true, nil
}

// SendChat emits a chat message over the channel. Chat is ephemeral; the
// engine does not store it.
func (e *Engine) SendChat(user, text string) (models.ChatMessage, error) {
	user = strings.TrimSpace(user)
	text = strings.TrimSpace(text)
	if user == "" {
		return models.ChatMessage{}, ErrChatNameRequired
	}
	if text == "" {
		return models.ChatMessage{}, ErrChatTextRequired
	}

	msg := models.ChatMessage{User: user, Text: text, Timestamp: time.Now()}

	e.mu.Lock()
	ch := e.channel
	e.mu.Unlock()
	e.emit(ch, realtime.EventChatMessage, msg)
	return msg, nil
}

// HandleEvent merges one inbound channel event. Broadcasts never grant or
// consume quota; they only touch the idea mirror and the peripheral feeds.
func (e *Engine) HandleEvent(ev realtime.Event) {
	switch ev.Kind {
	case realtime.KindVote:
		e.mu.Lock()
		_, known := e.cache.Get(ev.Vote.IdeaID)
		if known {
			e.cache.SetVotes(ev.Vote.IdeaID, ev.Vote.Votes)
		}
		e.mu.Unlock()
		// Unknown ids are a transient desync; dropped, reconciled by the
		// next full resync.

	case realtime.KindNewIdea:
		e.mu.Lock()
		_, known := e.cache.Get(ev.Idea.ID)
		if !known {
			idea := ev.Idea
			idea.UserVoted = e.state.Voted(idea.ID)
			e.cache.Upsert(idea)
		}
		e.mu.Unlock()
		// A creation broadcast for a known idea is ignored entirely: it
		// always carries votes=0 and must not regress a live count.
		if !known && e.cb.OnIdeaCreated != nil {
			e.cb.OnIdeaCreated(ev.Idea)
		}

	case realtime.KindStats:
		e.mu.Lock()
		e.lastStats = ev.Stats
		e.mu.Unlock()
		if e.cb.OnStats != nil {
			e.cb.OnStats(ev.Stats)
		}

	case realtime.KindChat:
		if e.cb.OnChat != nil {
			e.cb.OnChat(ev.Chat)
		}

	case realtime.KindUserCount:
		if e.cb.OnUserCount != nil {
			e.cb.OnUserCount(ev.UserCount)
		}
	}
}

// Resync replaces the idea mirror and stats from the authoritative REST
// endpoints. Wired as the channel's reconnect hook, since broadcasts missed
// while disconnected are gone for good.
func (e *Engine) Resync(ctx context.Context) error {
	ideas, err := e.client.FetchIdeas(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.cache.ReplaceAll(ideas, e.state)
	e.mu.Unlock()

	stats, err := e.client.FetchStats(ctx)
	if err != nil {
		// Ideas are synced; stale stats are a degraded state, not a failure.
		slog.Warn("stats fetch failed during resync", "error", err)
		return nil
	}

	e.mu.Lock()
	e.lastStats = stats
	e.mu.Unlock()
	if e.cb.OnStats != nil {
		e.cb.OnStats(stats)
	}
	return nil
}

// Ideas returns the rendered view: votes descending, ties in arrival order.
func (e *Engine) Ideas() []models.Idea {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.SortedView()
}

// Idea returns one idea by id.
func (e *Engine) Idea(id string) (models.Idea, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Get(id)
}

// Remaining returns the votes left this quarter.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Remaining
}

// State returns a copy of the persisted vote state.
func (e *Engine) State() models.UserVoteState {
	e.mu.Lock()
	defer e.mu.Unlock()
	state := e.state
	ids := make(map[string]bool, len(state.VotedIdeaIDs))
	for k, v := range state.VotedIdeaIDs {
		ids[k] = v
	}
	state.VotedIdeaIDs = ids
	return state
}

// LastStats returns the most recently merged statistics.
func (e *Engine) LastStats() models.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStats
}

// emit sends a best-effort channel notification. A down channel is a
// degraded state, not an error the caller needs.
func (e *Engine) emit(ch realtime.Channel, event string, payload any) {
	if ch == nil {
		return
	}
	if err := ch.Emit(event, payload); err != nil {
		slog.Warn("broadcast emit failed", "event", event, "error", err)
	}
}
