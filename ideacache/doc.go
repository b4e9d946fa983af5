// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ideacache holds the client's in-memory mirror of server idea state.

The server owns vote counts; this cache is read-mostly and merges three
inputs: full REST resyncs (ReplaceAll, server wins unconditionally),
incremental updates from acks and broadcasts (Upsert/SetVotes, last server
write wins), and local user-voted flags.

The one exception to last-write-wins is the pin guard: after the local user's
own vote is confirmed over REST, a stale broadcast for that idea may still be
in flight carrying an older count. PinOwnVote keeps max(current, incoming)
for that idea until the next full resync.
*/
package ideacache
