// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielhkuo/quarter-vote/models"
)

// DefaultTimeout bounds every ledger request; a missing response must
// surface as a failure, not hang.
const DefaultTimeout = 15 * time.Second

// APIError is a non-success response from the ledger (quota rejected,
// duplicate vote, validation failure, unknown idea).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("ledger: request failed with status %d", e.StatusCode)
}

// Client is a typed REST client for the idea/vote ledger.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:4040".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// NewWithHTTPClient creates a client with a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// FetchIdeas retrieves the full authoritative idea list.
func (c *Client) FetchIdeas(ctx context.Context) ([]models.Idea, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ideas", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ideas request: %w", err)
	}

	var ideas []models.Idea
	if err := c.do(req, &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

// CreateIdea submits a new idea and returns the server's record of it.
func (c *Client) CreateIdea(ctx context.Context, title, description, author string) (models.Idea, error) {
	body := models.CreateIdeaRequest{Title: title, Description: description, Author: author}
	req, err := c.postJSON(ctx, "/api/idea", body)
	if err != nil {
		return models.Idea{}, err
	}

	var resp models.CreateIdeaResponse
	if err := c.do(req, &resp); err != nil {
		return models.Idea{}, err
	}
	if !resp.Success {
		return models.Idea{}, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return resp.Idea, nil
}

// CastVote records one vote for the idea on behalf of the identity and
// returns the authoritative vote count.
func (c *Client) CastVote(ctx context.Context, ideaID, userID string) (int, error) {
	body := models.VoteRequest{IdeaID: ideaID, UserID: userID}
	req, err := c.postJSON(ctx, "/api/vote", body)
	if err != nil {
		return 0, err
	}

	var resp models.VoteResponse
	if err := c.do(req, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return resp.Votes, nil
}

// FetchStats retrieves the changeset statistics feed.
func (c *Client) FetchStats(ctx context.Context) (models.Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stats", nil)
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to build stats request: %w", err)
	}

	var stats models.Stats
	if err := c.do(req, &stats); err != nil {
		return models.Stats{}, err
	}
	return stats, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr models.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ledger response: %w", err)
	}
	return nil
}
