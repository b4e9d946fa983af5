// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quarter Vote API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, hub, statsService)

# Endpoints

Health:

	GET /health

Ideas and voting (public):

	GET  /api/ideas - List all ideas in submission order
	POST /api/idea  - Submit a new idea
	POST /api/vote  - Cast a vote (quota enforced per quarter)

Stats and the announced project:

	GET /api/stats           - Mapping activity statistics
	GET /api/current-project - The winning idea, or {} before announcement

Realtime:

	GET /ws - WebSocket channel carrying vote_update, new_idea,
	          stats_update, chat_message, and user_count frames

# Handler Initialization

The router creates handler instances with dependency injection:

	ideaHandler := handlers.NewIdeaHandler(db, hub)
	voteHandler := handlers.NewVoteHandler(db, hub)
	statsHandler := handlers.NewStatsHandler(db, statsService)
*/
package router
