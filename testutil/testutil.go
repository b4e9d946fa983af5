// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quarter-vote/cliparse"
	"github.com/danielhkuo/quarter-vote/db"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SetupTestDB creates a fresh in-memory database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A second connection would see an empty in-memory database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          4040,
		DatabaseURL:   "file::memory:",
		DatabaseType:  "sqlite",
		OSMAPIBaseURL: "https://api.openstreetmap.org",
		StatsHashtag:  "#projektctvrtleti",
		StatsBBox:     "12.09,48.55,18.87,51.06",
	}
}

// CreateTestIdea inserts an idea with the given vote count and returns its ID
func CreateTestIdea(t *testing.T, conn *sql.DB, title string, votes int) string {
	t.Helper()

	id := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO idea (id, title, description, author, votes, winning, created_at)
		VALUES ($1, $2, 'A test idea description', 'TestUser', $3, 0, $4)
	`, id, title, votes, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test idea: %v", err)
	}

	return id
}

// CreateTestVote records a vote row for an identity in the given quarter
func CreateTestVote(t *testing.T, conn *sql.DB, userID, ideaID, quarter string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO user_vote (user_id, idea_id, quarter, voted_at)
		VALUES ($1, $2, $3, $4)
	`, userID, ideaID, quarter, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
