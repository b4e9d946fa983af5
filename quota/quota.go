// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package quota

import (
	"fmt"
	"time"

	"github.com/danielhkuo/quarter-vote/models"
)

// CurrentPeriod returns the quarter label for the given time, e.g. "Q1-2026".
// Months 1-3 are Q1, 4-6 Q2, 7-9 Q3, 10-12 Q4.
func CurrentPeriod(now time.Time) string {
	q := (int(now.Month())-1)/3 + 1
	return fmt.Sprintf("Q%d-%d", q, now.Year())
}

// IsRollover reports whether the stored quarter label no longer matches the
// current one. Comparison, not a timer.
func IsRollover(stored string, now time.Time) bool {
	return stored != CurrentPeriod(now)
}

// ResetState returns a fresh vote state for the current quarter. The user id
// is preserved; only the quarter label and quota reset.
func ResetState(prev models.UserVoteState, now time.Time) models.UserVoteState {
	return models.UserVoteState{
		UserID:       prev.UserID,
		Quarter:      CurrentPeriod(now),
		Remaining:    models.VotesPerQuarter,
		VotedIdeaIDs: map[string]bool{},
	}
}
