// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package quota implements the per-quarter vote allowance policy.

Each identity gets VotesPerQuarter votes per calendar quarter. Quarters are
labeled "Q1-2026" through "Q4-2026"; rollover is detected by comparing the
stored label against the freshly computed one, never by a timer.

All functions are pure. Callers persist the result of ResetState themselves.
*/
package quota
