// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Validation limits shared by the client engine and the server API.
const (
	MinTitleLen       = 5
	MinDescriptionLen = 10
	MaxChatUserLen    = 50
	MaxChatTextLen    = 500
	DefaultAuthor     = "Anonymous"
	VotesPerQuarter   = 2
)

// Request types

type CreateIdeaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

type VoteRequest struct {
	IdeaID string `json:"idea_id"`
	UserID string `json:"user_id"`
}

// Response types

type CreateIdeaResponse struct {
	Success bool   `json:"success"`
	Idea    Idea   `json:"idea"`
	Error   string `json:"error,omitempty"`
}

type VoteResponse struct {
	Success bool   `json:"success"`
	Votes   int    `json:"votes"`
	Error   string `json:"error,omitempty"`
}

// Domain types

type Idea struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Votes       int       `json:"votes"`
	CreatedAt   time.Time `json:"created_at"`
	Winning     bool      `json:"winning"`
	UserVoted   bool      `json:"userVoted,omitempty"` // client-side flag, never set by the server
}

// UserVoteState is the persisted per-identity voting record. For the active
// quarter, Remaining + len(current-quarter VotedIdeaIDs) == VotesPerQuarter.
type UserVoteState struct {
	UserID       string          `json:"userId"`
	Quarter      string          `json:"quarter"`
	Remaining    int             `json:"remaining"`
	VotedIdeaIDs map[string]bool `json:"ideas"`
}

// Voted reports whether this identity already voted for the idea.
func (s UserVoteState) Voted(ideaID string) bool {
	return s.VotedIdeaIDs[ideaID]
}

type ChatMessage struct {
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats types (peripheral, consumed read-only)

type LeaderboardEntry struct {
	User       string `json:"user"`
	Changesets int    `json:"changesets"`
}

type Stats struct {
	TotalChangesets   int                `json:"total_changesets"`
	TotalContributors int                `json:"total_contributors"`
	ChangesetsToday   int                `json:"changesets_today"`
	ChangesetsWeek    int                `json:"changesets_week"`
	DailyStats        []int              `json:"daily_stats"` // 30 entries, oldest first
	Leaderboard       []LeaderboardEntry `json:"leaderboard"`
	LastUpdated       time.Time          `json:"last_updated"`
}

// Error response

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
