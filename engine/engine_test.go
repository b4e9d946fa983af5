// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/quarter-vote/ledger"
	"github.com/danielhkuo/quarter-vote/models"
	"github.com/danielhkuo/quarter-vote/realtime"
	"github.com/danielhkuo/quarter-vote/votestore"
)

// fakeChannel records emitted frames in place of a live websocket.
type fakeChannel struct {
	mu      sync.Mutex
	emitted []emittedFrame
	err     error
}

type emittedFrame struct {
	event   string
	payload any
}

func (c *fakeChannel) Connect(ctx context.Context) error { return nil }
func (c *fakeChannel) Close() error                      { return nil }

func (c *fakeChannel) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.emitted = append(c.emitted, emittedFrame{event: event, payload: payload})
	return nil
}

func (c *fakeChannel) frames() []emittedFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]emittedFrame(nil), c.emitted...)
}

// voteServer is a minimal authoritative ledger for engine tests.
type voteServer struct {
	mu        sync.Mutex
	ideas     []models.Idea
	voteCalls int
	ideaCalls int
	failVotes bool
	voteHold  chan struct{} // when set, /api/vote blocks until closed
}

func (s *voteServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ideas", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(s.ideas)
	})
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Stats{TotalChangesets: 10, DailyStats: make([]int, 30)})
	})
	mux.HandleFunc("POST /api/vote", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		hold := s.voteHold
		s.mu.Unlock()
		if hold != nil {
			<-hold
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.voteCalls++
		if s.failVotes {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse{Error: "boom"})
			return
		}
		var req models.VoteRequest
		json.NewDecoder(r.Body).Decode(&req)
		for i := range s.ideas {
			if s.ideas[i].ID == req.IdeaID {
				s.ideas[i].Votes++
				json.NewEncoder(w).Encode(models.VoteResponse{Success: true, Votes: s.ideas[i].Votes})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "idea not found"})
	})
	mux.HandleFunc("POST /api/idea", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ideaCalls++
		var req models.CreateIdeaRequest
		json.NewDecoder(r.Body).Decode(&req)
		idea := models.Idea{
			ID: "srv-new", Title: req.Title, Description: req.Description,
			Author: req.Author, Votes: 0, CreatedAt: time.Now(),
		}
		s.ideas = append(s.ideas, idea)
		json.NewEncoder(w).Encode(models.CreateIdeaResponse{Success: true, Idea: idea})
	})
	return mux
}

func newTestEngine(t *testing.T, srv *voteServer) (*Engine, *fakeChannel, func()) {
	t.Helper()
	ts := httptest.NewServer(srv.handler())

	store := votestore.New(filepath.Join(t.TempDir(), "votes.json"))
	eng := New(store, ledger.New(ts.URL), Callbacks{})
	ch := &fakeChannel{}
	eng.SetChannel(ch)

	if err := eng.Resync(context.Background()); err != nil {
		t.Fatalf("initial resync failed: %v", err)
	}
	return eng, ch, ts.Close
}

func seededServer(ideas ...models.Idea) *voteServer {
	return &voteServer{ideas: ideas}
}

func idea(id string, votes int) models.Idea {
	return models.Idea{ID: id, Title: "Idea " + id, Description: "Description of " + id, Votes: votes}
}

func TestCastVoteConfirmed(t *testing.T) {
	srv := seededServer(idea("7", 2), idea("8", 0))
	eng, ch, done := newTestEngine(t, srv)
	defer done()

	if err := eng.CastVote(context.Background(), "7"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	if got := eng.Remaining(); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
	state := eng.State()
	if !state.Voted("7") {
		t.Error("idea 7 missing from voted set")
	}
	cached, _ := eng.Idea("7")
	if cached.Votes != 3 {
		t.Errorf("cached votes = %d, want authoritative 3", cached.Votes)
	}
	if !cached.UserVoted {
		t.Error("UserVoted not set after confirmation")
	}

	frames := ch.frames()
	if len(frames) != 1 || frames[0].event != realtime.EventVoteUpdate {
		t.Errorf("expected one vote_update emit, got %+v", frames)
	}
}

func TestCastVoteIdempotentPerIdea(t *testing.T) {
	srv := seededServer(idea("7", 0))
	eng, _, done := newTestEngine(t, srv)
	defer done()

	if err := eng.CastVote(context.Background(), "7"); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if err := eng.CastVote(context.Background(), "7"); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("second vote err = %v, want ErrAlreadyVoted", err)
	}

	if got := eng.Remaining(); got != 1 {
		t.Errorf("Remaining = %d, want exactly one decrement", got)
	}
	if srv.voteCalls != 1 {
		t.Errorf("server saw %d vote calls, want 1 (guard is pre-network)", srv.voteCalls)
	}
}

func TestCastVoteQuotaNeverNegative(t *testing.T) {
	srv := seededServer(idea("1", 0), idea("2", 0), idea("3", 0))
	eng, _, done := newTestEngine(t, srv)
	defer done()

	ctx := context.Background()
	if err := eng.CastVote(ctx, "1"); err != nil {
		t.Fatalf("vote 1 failed: %v", err)
	}
	if err := eng.CastVote(ctx, "2"); err != nil {
		t.Fatalf("vote 2 failed: %v", err)
	}
	if err := eng.CastVote(ctx, "3"); !errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("vote 3 err = %v, want ErrQuotaExhausted", err)
	}

	if got := eng.Remaining(); got != 0 {
		t.Errorf("Remaining = %d, want 0 and never negative", got)
	}
	if srv.voteCalls != 2 {
		t.Errorf("server saw %d vote calls, want 2", srv.voteCalls)
	}
}

func TestCastVoteUnknownIdea(t *testing.T) {
	srv := seededServer(idea("1", 0))
	eng, _, done := newTestEngine(t, srv)
	defer done()

	if err := eng.CastVote(context.Background(), "ghost"); !errors.Is(err, ErrUnknownIdea) {
		t.Errorf("err = %v, want ErrUnknownIdea", err)
	}
	if srv.voteCalls != 0 {
		t.Error("unknown idea must not reach the server")
	}
}

func TestCastVoteRejectedMutatesNothing(t *testing.T) {
	srv := seededServer(idea("7", 5))
	srv.failVotes = true
	eng, ch, done := newTestEngine(t, srv)
	defer done()

	err := eng.CastVote(context.Background(), "7")
	if err == nil {
		t.Fatal("expected server error")
	}

	if got := eng.Remaining(); got != 2 {
		t.Errorf("Remaining = %d, want untouched 2", got)
	}
	if eng.State().Voted("7") {
		t.Error("voted set mutated on rejection")
	}
	cached, _ := eng.Idea("7")
	if cached.Votes != 5 || cached.UserVoted {
		t.Errorf("cache mutated on rejection: %+v", cached)
	}
	if len(ch.frames()) != 0 {
		t.Error("nothing should be broadcast on rejection")
	}

	// No automatic retry happened.
	if srv.voteCalls != 1 {
		t.Errorf("server saw %d vote calls, want 1", srv.voteCalls)
	}
}

func TestCastVoteInFlightGuard(t *testing.T) {
	srv := seededServer(idea("7", 0))
	hold := make(chan struct{})
	srv.voteHold = hold
	eng, _, done := newTestEngine(t, srv)
	defer done()

	firstDone := make(chan error, 1)
	go func() { firstDone <- eng.CastVote(context.Background(), "7") }()

	// Wait for the first request to be in flight, then double-click.
	deadline := time.After(2 * time.Second)
	for {
		err := eng.CastVote(context.Background(), "7")
		if errors.Is(err, ErrVoteInFlight) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("never observed in-flight guard, last err: %v", err)
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(hold)
	if err := <-firstDone; err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if got := eng.Remaining(); got != 1 {
		t.Errorf("Remaining = %d, want 1 (single decrement)", got)
	}
}

func TestSubmitIdeaValidatesLocally(t *testing.T) {
	srv := seededServer()
	eng, _, done := newTestEngine(t, srv)
	defer done()

	tests := []struct {
		name        string
		title, desc string
		wantErr     error
	}{
		{"short title", "Map", "a perfectly fine description", ErrTitleTooShort},
		{"short description", "Mapping benches", "too short", ErrDescriptionTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := eng.SubmitIdea(context.Background(), tt.title, tt.desc, "Alice")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if srv.ideaCalls != 0 {
		t.Error("validation failures must not reach the server")
	}
}

func TestSubmitIdeaWithAutoSelfVote(t *testing.T) {
	srv := seededServer()
	eng, _, done := newTestEngine(t, srv)
	defer done()

	created, selfVoted, err := eng.SubmitIdea(context.Background(), "New crossing mapping", "Survey pedestrian crossings near downtown", "Alice")
	if err != nil {
		t.Fatalf("SubmitIdea failed: %v", err)
	}
	if !selfVoted {
		t.Error("expected automatic self-vote with quota remaining")
	}
	if created.Votes != 1 {
		t.Errorf("votes = %d, want 1 after self-vote", created.Votes)
	}
	if got := eng.Remaining(); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
	if !eng.State().Voted(created.ID) {
		t.Error("self-voted idea missing from voted set")
	}
}

func TestSubmitIdeaWithoutQuotaSkipsSelfVote(t *testing.T) {
	srv := seededServer(idea("1", 0), idea("2", 0))
	eng, _, done := newTestEngine(t, srv)
	defer done()

	ctx := context.Background()
	eng.CastVote(ctx, "1")
	eng.CastVote(ctx, "2")

	created, selfVoted, err := eng.SubmitIdea(ctx, "Sidewalk surface survey", "Record sidewalk surfaces across the old town", "")
	if err != nil {
		t.Fatalf("SubmitIdea failed: %v", err)
	}
	if selfVoted {
		t.Error("self-vote must never be forced past an exhausted quota")
	}
	if created.Votes != 0 {
		t.Errorf("votes = %d, want 0", created.Votes)
	}
	if created.Author != models.DefaultAuthor {
		t.Errorf("author = %q, want default %q", created.Author, models.DefaultAuthor)
	}
	if got := eng.Remaining(); got != 0 {
		t.Errorf("Remaining = %d, want still 0", got)
	}
}

func TestStaleBroadcastCannotRegressOwnVote(t *testing.T) {
	srv := seededServer(idea("7", 2))
	eng, _, done := newTestEngine(t, srv)
	defer done()

	if err := eng.CastVote(context.Background(), "7"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	// A broadcast queued before our vote arrives late with the old count.
	eng.HandleEvent(realtime.Event{Kind: realtime.KindVote, Vote: realtime.VoteUpdate{IdeaID: "7", Votes: 2}})

	cached, _ := eng.Idea("7")
	if cached.Votes != 3 {
		t.Errorf("votes = %d, want 3 (stale broadcast dropped by max-guard)", cached.Votes)
	}

	// A genuinely newer broadcast still lands.
	eng.HandleEvent(realtime.Event{Kind: realtime.KindVote, Vote: realtime.VoteUpdate{IdeaID: "7", Votes: 6}})
	if cached, _ = eng.Idea("7"); cached.Votes != 6 {
		t.Errorf("votes = %d, want 6", cached.Votes)
	}
}

func TestVoteBroadcastForUnknownIdeaDropped(t *testing.T) {
	srv := seededServer(idea("1", 0))
	eng, _, done := newTestEngine(t, srv)
	defer done()

	eng.HandleEvent(realtime.Event{Kind: realtime.KindVote, Vote: realtime.VoteUpdate{IdeaID: "ghost", Votes: 9}})

	if len(eng.Ideas()) != 1 {
		t.Error("stale broadcast must not create ideas")
	}
}

func TestNewIdeaBroadcastDedupAndNoRegress(t *testing.T) {
	srv := seededServer(idea("7", 4))
	var notified []models.Idea
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	store := votestore.New(filepath.Join(t.TempDir(), "votes.json"))
	eng := New(store, ledger.New(ts.URL), Callbacks{
		OnIdeaCreated: func(i models.Idea) { notified = append(notified, i) },
	})
	if err := eng.Resync(context.Background()); err != nil {
		t.Fatalf("resync failed: %v", err)
	}

	fresh := models.Idea{ID: "new-1", Title: "Hiking trails", Description: "Map the marked hiking trails", Votes: 0}
	eng.HandleEvent(realtime.Event{Kind: realtime.KindNewIdea, Idea: fresh})
	eng.HandleEvent(realtime.Event{Kind: realtime.KindNewIdea, Idea: fresh}) // duplicate

	if len(notified) != 1 {
		t.Errorf("OnIdeaCreated fired %d times, want 1", len(notified))
	}
	if got, _ := eng.Idea("new-1"); got.Title != "Hiking trails" {
		t.Errorf("broadcast idea not inserted: %+v", got)
	}

	// A creation broadcast replaying an existing idea carries votes=0 and
	// must not clobber the live count.
	eng.HandleEvent(realtime.Event{Kind: realtime.KindNewIdea, Idea: models.Idea{ID: "7", Title: "Idea 7", Votes: 0}})
	if got, _ := eng.Idea("7"); got.Votes != 4 {
		t.Errorf("votes = %d, want 4 (creation event ignored for known idea)", got.Votes)
	}
}

func TestResyncMatchesServerAfterMissedBroadcasts(t *testing.T) {
	srv := seededServer(idea("7", 1))
	eng, _, done := newTestEngine(t, srv)
	defer done()

	// Votes land on the server while this client is disconnected.
	srv.mu.Lock()
	srv.ideas[0].Votes = 9
	srv.mu.Unlock()

	if err := eng.Resync(context.Background()); err != nil {
		t.Fatalf("Resync failed: %v", err)
	}

	got, _ := eng.Idea("7")
	if got.Votes != 9 {
		t.Errorf("votes = %d, want the server ledger's 9", got.Votes)
	}
	if eng.LastStats().TotalChangesets != 10 {
		t.Errorf("stats not refreshed: %+v", eng.LastStats())
	}
}

func TestResyncReappliesVotedFlags(t *testing.T) {
	srv := seededServer(idea("7", 0))
	eng, _, done := newTestEngine(t, srv)
	defer done()

	if err := eng.CastVote(context.Background(), "7"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := eng.Resync(context.Background()); err != nil {
		t.Fatalf("Resync failed: %v", err)
	}

	got, _ := eng.Idea("7")
	if !got.UserVoted {
		t.Error("UserVoted lost across resync")
	}
}

func TestSendChat(t *testing.T) {
	srv := seededServer()
	eng, ch, done := newTestEngine(t, srv)
	defer done()

	if _, err := eng.SendChat("", "hello"); !errors.Is(err, ErrChatNameRequired) {
		t.Errorf("err = %v, want ErrChatNameRequired", err)
	}
	if _, err := eng.SendChat("alice", "   "); !errors.Is(err, ErrChatTextRequired) {
		t.Errorf("err = %v, want ErrChatTextRequired", err)
	}

	msg, err := eng.SendChat("alice", "hello there")
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	frames := ch.frames()
	if len(frames) != 1 || frames[0].event != realtime.EventChatMessage {
		t.Errorf("expected one chat_message emit, got %+v", frames)
	}
}

func TestEmitFailureIsNonFatal(t *testing.T) {
	srv := seededServer(idea("7", 0))
	eng, ch, done := newTestEngine(t, srv)
	defer done()

	ch.mu.Lock()
	ch.err = realtime.ErrDisconnected
	ch.mu.Unlock()

	// Vote succeeds over REST even though the broadcast cannot be sent.
	if err := eng.CastVote(context.Background(), "7"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if got := eng.Remaining(); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
}
