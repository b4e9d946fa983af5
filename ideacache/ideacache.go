// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ideacache

import (
	"slices"

	"github.com/danielhkuo/quarter-vote/models"
)

// Cache mirrors the server's idea ledger for one client. It is not
// goroutine-safe; the reconciliation engine serializes access.
type Cache struct {
	ideas []models.Idea   // insertion order, preserved for stable sorting
	index map[string]int  // id -> position in ideas
	pins  map[string]bool // own just-cast votes guarded against stale broadcasts
}

func New() *Cache {
	return &Cache{
		index: map[string]int{},
		pins:  map[string]bool{},
	}
}

// ReplaceAll resyncs the mirror from an authoritative fetch. Server values
// win unconditionally: pins are cleared and UserVoted flags are reapplied
// from the given state.
func (c *Cache) ReplaceAll(ideas []models.Idea, state models.UserVoteState) {
	c.ideas = make([]models.Idea, len(ideas))
	c.index = make(map[string]int, len(ideas))
	c.pins = map[string]bool{}
	for i, idea := range ideas {
		idea.UserVoted = state.Voted(idea.ID)
		c.ideas[i] = idea
		c.index[idea.ID] = i
	}
}

// Upsert inserts an unseen idea or merges an update into a known one. The
// votes field is replaced, not summed; for ideas pinned by PinOwnVote the
// count never decreases, so a stale broadcast arriving after the REST ack
// cannot regress the voter's own vote.
func (c *Cache) Upsert(idea models.Idea) {
	i, ok := c.index[idea.ID]
	if !ok {
		c.index[idea.ID] = len(c.ideas)
		c.ideas = append(c.ideas, idea)
		return
	}

	cur := &c.ideas[i]
	votes := idea.Votes
	if c.pins[idea.ID] && cur.Votes > votes {
		votes = cur.Votes
	}
	voted := cur.UserVoted || idea.UserVoted
	*cur = idea
	cur.Votes = votes
	cur.UserVoted = voted
}

// SetVotes updates only the vote count of a known idea, with the same
// pin guard as Upsert. Unknown ids are ignored.
func (c *Cache) SetVotes(id string, votes int) {
	i, ok := c.index[id]
	if !ok {
		return
	}
	if c.pins[id] && c.ideas[i].Votes > votes {
		return
	}
	c.ideas[i].Votes = votes
}

// MarkVoted sets the local user-voted flag. Idempotent; unknown ids are
// ignored.
func (c *Cache) MarkVoted(id string) {
	if i, ok := c.index[id]; ok {
		c.ideas[i].UserVoted = true
	}
}

// PinOwnVote protects an idea's vote count from decreasing until the next
// ReplaceAll. Called for the voter's own just-confirmed vote.
func (c *Cache) PinOwnVote(id string) {
	c.pins[id] = true
}

// Get returns the idea by id.
func (c *Cache) Get(id string) (models.Idea, bool) {
	if i, ok := c.index[id]; ok {
		return c.ideas[i], true
	}
	return models.Idea{}, false
}

// Len returns the number of cached ideas.
func (c *Cache) Len() int {
	return len(c.ideas)
}

// SortedView returns the ideas ordered by votes descending. The sort is
// stable: equal vote counts keep insertion order, so repeated renders do not
// flicker.
func (c *Cache) SortedView() []models.Idea {
	view := slices.Clone(c.ideas)
	slices.SortStableFunc(view, func(a, b models.Idea) int {
		return b.Votes - a.Votes
	})
	return view
}
