// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger is the typed REST client for the authoritative idea/vote
ledger.

It is the engine's external collaborator boundary: idea listing, idea
creation, vote casting, and the read-only stats feed. Every call takes a
context and the underlying http.Client carries a timeout, so a lost response
surfaces as an error instead of hanging.

Server-declined operations (quota exhausted, duplicate vote, validation)
come back as *APIError; transport failures are wrapped network errors.
Callers never retry automatically — under an ambiguous failure the request
may have succeeded server-side, and a blind retry risks a double count.
*/
package ledger
