// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package osmstats aggregates OpenStreetMap mapping activity for the
community dashboard.

Service queries the changeset API for the configured bounding box, keeps
only changesets carrying the campaign hashtag (in either the hashtags or
comment tag), and aggregates totals, a 30-day daily series, and a
contributor leaderboard. Results are cached for five minutes; once warm,
a failed refresh serves the stale copy instead of an error.

Updater runs alongside the server, broadcasting stats_update frames every
30 seconds and, once the configured announcement time passes, marking the
top-voted idea as the winning project.
*/
package osmstats
