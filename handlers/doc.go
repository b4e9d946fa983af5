// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quarter Vote API.

# Handler Types

Each handler is a struct with database and broadcast dependencies:

  - IdeaHandler: idea listing and submission
  - VoteHandler: vote casting with per-quarter quota enforcement
  - StatsHandler: mapping statistics and the current winning project

Handlers are created via constructor functions:

	ideaHandler := handlers.NewIdeaHandler(db, hub)

The Broadcaster interface decouples handlers from the WebSocket hub, so
tests can record broadcasts instead of opening connections.

# Voting Rules

	POST /api/vote

  - 404 when the idea does not exist
  - 400 when the identity already voted for the idea (votes never repeat,
    even in later quarters)
  - 400 when the identity has used its quota for the current quarter
  - otherwise the increment and the vote record commit in one transaction
    and every connected client receives a vote_update frame

# Idea Submission

	POST /api/idea

Titles shorter than 5 characters and descriptions shorter than 10 are
rejected. A blank author becomes "Anonymous". Successful submissions
broadcast a new_idea frame.
*/
package handlers
