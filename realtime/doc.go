// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime carries vote/idea/chat broadcasts between server and
clients.

Every message is a Frame{event, payload} envelope. Inbound frames decode
into the Event tagged union, dispatched through a single Handler so event
handling can be tested exhaustively instead of via ad hoc callback
registration.

The websocket channel reconnects automatically (bounded retries, fixed
delay). Disconnected is a degraded-but-functional state: broadcasts are
best-effort supplementary notifications and REST stays authoritative. The
channel does not buffer missed messages, which is why OnReconnect must
trigger a full resync.
*/
package realtime
