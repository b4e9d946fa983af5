// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/danielhkuo/quarter-vote/models"
)

// Wire event names, shared by client and server.
const (
	EventChatMessage = "chat_message"
	EventNewIdea     = "new_idea"
	EventVoteUpdate  = "vote_update"
	EventStatsUpdate = "stats_update"
	EventUserCount   = "user_count"
)

// Frame is the wire envelope for every channel message.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Kind tags the decoded event union.
type Kind int

const (
	KindVote Kind = iota + 1
	KindNewIdea
	KindStats
	KindChat
	KindUserCount
)

// VoteUpdate carries an authoritative vote count for one idea.
type VoteUpdate struct {
	IdeaID string `json:"ideaId"`
	Votes  int    `json:"votes"`
}

// Event is the tagged union of inbound channel events. Exactly one payload
// field is meaningful, selected by Kind.
type Event struct {
	Kind      Kind
	Vote      VoteUpdate
	Idea      models.Idea
	Stats     models.Stats
	Chat      models.ChatMessage
	UserCount int
}

// ErrUnknownEvent is returned by Decode for event names this client does not
// understand; callers drop such frames.
var ErrUnknownEvent = fmt.Errorf("unknown channel event")

// Decode parses a wire frame into the event union.
func Decode(f Frame) (Event, error) {
	switch f.Event {
	case EventVoteUpdate:
		var v VoteUpdate
		if err := json.Unmarshal(f.Payload, &v); err != nil {
			return Event{}, fmt.Errorf("bad vote_update payload: %w", err)
		}
		return Event{Kind: KindVote, Vote: v}, nil
	case EventNewIdea:
		var idea models.Idea
		if err := json.Unmarshal(f.Payload, &idea); err != nil {
			return Event{}, fmt.Errorf("bad new_idea payload: %w", err)
		}
		return Event{Kind: KindNewIdea, Idea: idea}, nil
	case EventStatsUpdate:
		var stats models.Stats
		if err := json.Unmarshal(f.Payload, &stats); err != nil {
			return Event{}, fmt.Errorf("bad stats_update payload: %w", err)
		}
		return Event{Kind: KindStats, Stats: stats}, nil
	case EventChatMessage:
		var msg models.ChatMessage
		if err := json.Unmarshal(f.Payload, &msg); err != nil {
			return Event{}, fmt.Errorf("bad chat_message payload: %w", err)
		}
		return Event{Kind: KindChat, Chat: msg}, nil
	case EventUserCount:
		var count int
		if err := json.Unmarshal(f.Payload, &count); err != nil {
			return Event{}, fmt.Errorf("bad user_count payload: %w", err)
		}
		return Event{Kind: KindUserCount, UserCount: count}, nil
	default:
		return Event{}, ErrUnknownEvent
	}
}
