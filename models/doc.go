// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types shared by the
client engine and the server API.

# Request Types

Types for parsing incoming JSON:

  - CreateIdeaRequest: title, description, author
  - VoteRequest: idea_id, user_id

# Response Types

Types for JSON responses:

  - CreateIdeaResponse: success, idea
  - VoteResponse: success, votes
  - ErrorResponse: success, error

# Domain Types

  - Idea: server-owned project idea with an authoritative vote count
  - UserVoteState: persisted per-identity record of quarter, remaining
    quota, and voted idea ids
  - ChatMessage: ephemeral chat payload
  - Stats, LeaderboardEntry: changeset statistics, consumed read-only

# Constants

Validation limits:

	MinTitleLen       = 5
	MinDescriptionLen = 10
	VotesPerQuarter   = 2
*/
package models
