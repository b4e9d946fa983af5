// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package hub manages WebSocket connections and realtime fan-out.

Every connected client receives the frames the API handlers broadcast
(vote_update, new_idea, stats_update) plus user_count on each connect and
disconnect. New connections get the last 50 chat messages replayed in
chronological order.

Inbound frames are limited to chat_message (validated, persisted with the
history capped at 200 rows, and broadcast) and vote_update (relayed to the
other clients); everything else is dropped.
*/
package hub
