// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quarter-vote/models"
	"github.com/danielhkuo/quarter-vote/quota"
	"github.com/danielhkuo/quarter-vote/realtime"
	"github.com/danielhkuo/quarter-vote/testutil"
)

func TestCastVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	hub := &fakeBroadcaster{}
	h := NewVoteHandler(db, hub)

	ideaID := testutil.CreateTestIdea(t, db, "Map the park", 3)

	req := models.VoteRequest{IdeaID: ideaID, UserID: "user_a"}
	w := httptest.NewRecorder()
	h.Cast(w, testutil.MakeRequest("POST", "/api/vote", req, nil))

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.VoteResponse
	testutil.AssertJSON(t, w, &resp)
	if !resp.Success {
		t.Error("Expected success response")
	}
	if resp.Votes != 4 {
		t.Errorf("Expected 4 votes, got %d", resp.Votes)
	}

	var recorded int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM user_vote WHERE user_id = 'user_a' AND idea_id = $1
	`, ideaID).Scan(&recorded)
	if err != nil {
		t.Fatal(err)
	}
	if recorded != 1 {
		t.Errorf("Expected 1 vote row, got %d", recorded)
	}

	if len(hub.events) != 1 || hub.events[0] != realtime.EventVoteUpdate {
		t.Fatalf("Expected one vote_update broadcast, got %v", hub.events)
	}
	update := hub.payloads[0].(realtime.VoteUpdate)
	if update.IdeaID != ideaID || update.Votes != 4 {
		t.Errorf("Unexpected broadcast payload: %+v", update)
	}
}

func TestCastVote_UnknownIdea(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewVoteHandler(db, &fakeBroadcaster{})

	req := models.VoteRequest{IdeaID: "nope", UserID: "user_a"}
	w := httptest.NewRecorder()
	h.Cast(w, testutil.MakeRequest("POST", "/api/vote", req, nil))

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestCastVote_MissingFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewVoteHandler(db, &fakeBroadcaster{})

	for _, req := range []models.VoteRequest{
		{IdeaID: "", UserID: "user_a"},
		{IdeaID: "idea", UserID: ""},
	} {
		w := httptest.NewRecorder()
		h.Cast(w, testutil.MakeRequest("POST", "/api/vote", req, nil))
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	}
}

func TestCastVote_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	hub := &fakeBroadcaster{}
	h := NewVoteHandler(db, hub)

	ideaID := testutil.CreateTestIdea(t, db, "Map the park", 0)

	req := models.VoteRequest{IdeaID: ideaID, UserID: "user_a"}
	w := httptest.NewRecorder()
	h.Cast(w, testutil.MakeRequest("POST", "/api/vote", req, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	w = httptest.NewRecorder()
	h.Cast(w, testutil.MakeRequest("POST", "/api/vote", req, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	// The count must not move on the rejected attempt
	var votes int
	if err := db.QueryRow(`SELECT votes FROM idea WHERE id = $1`, ideaID).Scan(&votes); err != nil {
		t.Fatal(err)
	}
	if votes != 1 {
		t.Errorf("Expected 1 vote, got %d", votes)
	}
	if len(hub.events) != 1 {
		t.Errorf("Expected a single broadcast, got %v", hub.events)
	}
}

func TestCastVote_DuplicateAcrossQuarters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewVoteHandler(db, &fakeBroadcaster{})

	ideaID := testutil.CreateTestIdea(t, db, "Map the park", 5)
	// A vote recorded in a past quarter still blocks this idea forever
	testutil.CreateTestVote(t, db, "user_a", ideaID, "Q1-2020")

	req := models.VoteRequest{IdeaID: ideaID, UserID: "user_a"}
	w := httptest.NewRecorder()
	h.Cast(w, testutil.MakeRequest("POST", "/api/vote", req, nil))

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestCastVote_QuotaExhausted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	hub := &fakeBroadcaster{}
	h := NewVoteHandler(db, hub)

	currentQuarter := quota.CurrentPeriod(time.Now().UTC())
	first := testutil.CreateTestIdea(t, db, "First idea", 1)
	second := testutil.CreateTestIdea(t, db, "Second idea", 1)
	third := testutil.CreateTestIdea(t, db, "Third idea", 1)
	testutil.CreateTestVote(t, db, "user_a", first, currentQuarter)
	testutil.CreateTestVote(t, db, "user_a", second, currentQuarter)

	req := models.VoteRequest{IdeaID: third, UserID: "user_a"}
	w := httptest.NewRecorder()
	h.Cast(w, testutil.MakeRequest("POST", "/api/vote", req, nil))

	testutil.AssertStatus(t, w, http.StatusBadRequest)
	if len(hub.events) != 0 {
		t.Errorf("Rejected votes must not broadcast, got %v", hub.events)
	}
}

func TestCastVote_QuotaResetsNextQuarter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewVoteHandler(db, &fakeBroadcaster{})

	// Quota was exhausted in a past quarter; a fresh one opens two votes
	first := testutil.CreateTestIdea(t, db, "First idea", 1)
	second := testutil.CreateTestIdea(t, db, "Second idea", 1)
	third := testutil.CreateTestIdea(t, db, "Third idea", 1)
	testutil.CreateTestVote(t, db, "user_a", first, "Q1-2020")
	testutil.CreateTestVote(t, db, "user_a", second, "Q1-2020")

	req := models.VoteRequest{IdeaID: third, UserID: "user_a"}
	w := httptest.NewRecorder()
	h.Cast(w, testutil.MakeRequest("POST", "/api/vote", req, nil))

	testutil.AssertStatus(t, w, http.StatusOK)
}
