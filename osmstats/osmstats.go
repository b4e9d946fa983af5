// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package osmstats

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/quarter-vote/models"
)

const (
	cacheTTL     = 5 * time.Minute
	fetchTimeout = 60 * time.Second
	userAgent    = "quarter-vote/1.0"

	// lookbackDays is the window the daily series and totals cover.
	lookbackDays = 30
	// maxPages bounds pagination over the changeset API (100 per page).
	maxPages        = 10
	changesetsPerPg = 100

	leaderboardSize = 10
)

// Changeset is one OpenStreetMap changeset relevant to the tracked
// campaign.
type Changeset struct {
	ID        string
	User      string
	CreatedAt time.Time
}

// Service fetches changesets from the OpenStreetMap API and serves
// aggregated statistics with a short-lived cache.
type Service struct {
	baseURL string
	hashtag string
	bbox    string
	http    *http.Client
	now     func() time.Time

	mu       sync.Mutex
	cached   models.Stats
	cachedAt time.Time
}

// New creates a stats service for the given API base URL, campaign
// hashtag, and bounding box.
func New(baseURL, hashtag, bbox string) *Service {
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		hashtag: strings.ToLower(hashtag),
		bbox:    bbox,
		http:    &http.Client{Timeout: fetchTimeout},
		now:     time.Now,
	}
}

// Current returns the latest statistics, refreshing from the API when the
// cache is older than five minutes. On a cold cache the fetch error is
// returned; once populated, the cache never goes away mid-process.
func (s *Service) Current(ctx context.Context) (models.Stats, error) {
	s.mu.Lock()
	now := s.now().UTC()
	if !s.cachedAt.IsZero() && now.Sub(s.cachedAt) < cacheTTL {
		defer s.mu.Unlock()
		return s.cached, nil
	}
	s.mu.Unlock()

	changesets, err := s.fetchChangesets(ctx, now.AddDate(0, 0, -lookbackDays), now)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.cachedAt.IsZero() {
			// Serve stale data over an error
			return s.cached, nil
		}
		return models.Stats{}, err
	}

	stats := Calculate(changesets, now)

	s.mu.Lock()
	s.cached = stats
	s.cachedAt = now
	s.mu.Unlock()

	return stats, nil
}

// fetchChangesets pages backwards through the changeset API until the
// window is exhausted, keeping only changesets tagged with the campaign
// hashtag.
func (s *Service) fetchChangesets(ctx context.Context, start, end time.Time) ([]Changeset, error) {
	var out []Changeset
	seen := make(map[string]bool)

	windowEnd := end
	for page := 0; page < maxPages; page++ {
		batch, err := s.fetchPage(ctx, start, windowEnd)
		if err != nil {
			return nil, err
		}

		oldest := windowEnd
		for _, cs := range batch {
			if cs.CreatedAt.Before(oldest) {
				oldest = cs.CreatedAt
			}
			if !s.matchesHashtag(cs) || seen[cs.ID] {
				continue
			}
			seen[cs.ID] = true
			out = append(out, Changeset{ID: cs.ID, User: cs.User, CreatedAt: cs.CreatedAt})
		}

		if len(batch) < changesetsPerPg {
			break
		}
		windowEnd = oldest.Add(-time.Second)
		if !windowEnd.After(start) {
			break
		}
	}

	return out, nil
}

type changesetXML struct {
	ID        string    `xml:"id,attr"`
	User      string    `xml:"user,attr"`
	CreatedAt time.Time `xml:"created_at,attr"`
	Tags      []struct {
		K string `xml:"k,attr"`
		V string `xml:"v,attr"`
	} `xml:"tag"`
}

func (s *Service) fetchPage(ctx context.Context, start, end time.Time) ([]changesetXML, error) {
	q := url.Values{}
	q.Set("bbox", s.bbox)
	q.Set("time", start.Format(time.RFC3339)+","+end.Format(time.RFC3339))
	q.Set("closed", "true")

	reqURL := s.baseURL + "/api/0.6/changesets?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("changeset request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("changeset request returned status %d", resp.StatusCode)
	}

	var doc struct {
		Changesets []changesetXML `xml:"changeset"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse changeset XML: %w", err)
	}

	return doc.Changesets, nil
}

// matchesHashtag checks the hashtags and comment tags for the campaign
// hashtag, case-insensitively.
func (s *Service) matchesHashtag(cs changesetXML) bool {
	for _, tag := range cs.Tags {
		if tag.K != "hashtags" && tag.K != "comment" {
			continue
		}
		if strings.Contains(strings.ToLower(tag.V), s.hashtag) {
			return true
		}
	}
	return false
}

// Calculate aggregates changesets into the stats payload. The daily series
// holds one bucket per day over the lookback window, oldest first.
func Calculate(changesets []Changeset, now time.Time) models.Stats {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)
	seriesStart := today.AddDate(0, 0, -(lookbackDays - 1))

	daily := make([]int, lookbackDays)
	byUser := make(map[string]int)
	var todayCount, weekCount int

	for _, cs := range changesets {
		created := cs.CreatedAt.UTC()
		byUser[cs.User]++

		if !created.Before(today) {
			todayCount++
		}
		if created.After(weekAgo) {
			weekCount++
		}

		day := int(created.Sub(seriesStart).Hours() / 24)
		if day >= 0 && day < lookbackDays {
			daily[day]++
		}
	}

	leaderboard := make([]models.LeaderboardEntry, 0, len(byUser))
	for user, count := range byUser {
		leaderboard = append(leaderboard, models.LeaderboardEntry{User: user, Changesets: count})
	}
	sort.Slice(leaderboard, func(i, j int) bool {
		if leaderboard[i].Changesets != leaderboard[j].Changesets {
			return leaderboard[i].Changesets > leaderboard[j].Changesets
		}
		return leaderboard[i].User < leaderboard[j].User
	})
	if len(leaderboard) > leaderboardSize {
		leaderboard = leaderboard[:leaderboardSize]
	}

	return models.Stats{
		TotalChangesets:   len(changesets),
		TotalContributors: len(byUser),
		ChangesetsToday:   todayCount,
		ChangesetsWeek:    weekCount,
		DailyStats:        daily,
		Leaderboard:       leaderboard,
		LastUpdated:       now,
	}
}
