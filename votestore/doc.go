// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package votestore persists the client-side voting record.

The stored shape matches the persisted client state contract:

	{ "ideas": {"<ideaId>": true}, "remaining": 2, "userId": "...", "quarter": "Q1-2026" }

Load applies the quota rollover check before returning, so callers always see
a state valid for the current quarter. Save failures are returned rather than
swallowed; the engine logs them as warnings and keeps running, since the
in-memory state stays correct for the session.

Identity is an unauthenticated capability token. It is generated once and
reused across sessions and quarter rollovers; abuse resistance is the
server's concern.
*/
package votestore
