// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine keeps a client's persisted voting state, the server's
authoritative idea ledger, and the realtime broadcast channel mutually
consistent.

Each vote action moves through Idle -> Submitting -> Confirmed/Rejected.
The Submitting state blocks duplicate in-flight requests for the same idea
(rapid double-click); Rejected mutates nothing and is never retried
automatically, because under an ambiguous failure the vote may have landed
server-side and a retry would double-count.

Authority rules: REST responses and full resyncs carry authoritative vote
counts; broadcasts are best-effort hints merged through the cache's
max-guard so a stale broadcast cannot regress the voter's own confirmed
vote. Broadcasts never touch vote quota.

The engine is safe for use from the host goroutine and the channel's read
goroutine; one mutex serializes all state mutation. A hosting application
constructs one engine per session — there are no package-level singletons.
*/
package engine
