// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quarter-vote/models"
	"github.com/danielhkuo/quarter-vote/quota"
)

// Store persists one identity's vote state to a JSON file. One store per
// profile; the file lives for the lifetime of the storage medium.
type Store struct {
	path string
	now  func() time.Time
}

// New creates a store backed by the given file path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// NewWithClock creates a store with an injected clock, for tests.
func NewWithClock(path string, now func() time.Time) *Store {
	return &Store{path: path, now: now}
}

// NewUserID generates an opaque identity token. Uniqueness is advisory:
// collisions are negligible at community scale but nothing verifies them.
func NewUserID() string {
	return "user_" + uuid.NewString()
}

// Load reads the persisted vote state, synthesizing a fresh one with a new
// user id when nothing usable is stored. A stale quarter is reset before
// returning (and persisted, best-effort).
func (s *Store) Load() (models.UserVoteState, error) {
	state, err := s.read()
	if err != nil {
		state = fresh(s.now())
		if saveErr := s.Save(state); saveErr != nil {
			return state, saveErr
		}
		return state, nil
	}

	if quota.IsRollover(state.Quarter, s.now()) {
		state = quota.ResetState(state, s.now())
		if saveErr := s.Save(state); saveErr != nil {
			return state, saveErr
		}
	}
	if state.VotedIdeaIDs == nil {
		state.VotedIdeaIDs = map[string]bool{}
	}
	return state, nil
}

// Save writes the state durably via a temp-file rename. Failures are returned
// for the caller to surface as a non-fatal warning; storage may be
// unavailable in restrictive environments.
func (s *Store) Save(state models.UserVoteState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode vote state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".votestate-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write vote state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist vote state: %w", err)
	}
	return nil
}

func (s *Store) read() (models.UserVoteState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.UserVoteState{}, err
	}
	var state models.UserVoteState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.UserVoteState{}, fmt.Errorf("corrupt vote state: %w", err)
	}
	if state.UserID == "" {
		return models.UserVoteState{}, fmt.Errorf("vote state missing user id")
	}
	return state, nil
}

func fresh(now time.Time) models.UserVoteState {
	return models.UserVoteState{
		UserID:       NewUserID(),
		Quarter:      quota.CurrentPeriod(now),
		Remaining:    models.VotesPerQuarter,
		VotedIdeaIDs: map[string]bool{},
	}
}
