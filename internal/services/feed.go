package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
)

// FeedSource reads a station's recently played tracks from a JSON feed.
//
// The feed is either a bare array of {"title", "artist"} objects or an object wrapping that array in "tracks".
type FeedSource struct {
	url        string
	httpClient *http.Client
	logger     *log.Logger
}

// NewFeedSource creates a [FeedSource] for feedURL. A nil client gets a 30 second timeout.
func NewFeedSource(feedURL string, httpClient *http.Client, logger *log.Logger) *FeedSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &FeedSource{url: feedURL, httpClient: httpClient, logger: logger}
}

// RecentTracks fetches the feed in play order. Fields are trimmed and blank entries skipped; repeat plays are kept.
func (f *FeedSource) RecentTracks(ctx context.Context) ([]models.RawTrack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", shared.ErrAPIRequest, f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, http.MethodGet, f.url)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	raw, err := parseFeed(buf.Bytes())
	if err != nil {
		return nil, err
	}

	tracks := make([]models.RawTrack, 0, len(raw))
	for _, t := range raw {
		t.Title = strings.TrimSpace(t.Title)
		t.Artist = strings.TrimSpace(t.Artist)
		if t.IsBlank() {
			continue
		}
		tracks = append(tracks, t)
	}

	f.logger.Debug("fetched feed", "url", f.url, "entries", len(raw), "tracks", len(tracks))
	return tracks, nil
}

func parseFeed(body []byte) ([]models.RawTrack, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tracks []models.RawTrack
		if err := decodeJSON(trimmed, &tracks); err != nil {
			return nil, fmt.Errorf("failed to decode feed: %w", err)
		}
		return tracks, nil
	}

	var wrapped struct {
		Tracks []models.RawTrack `json:"tracks"`
	}
	if err := decodeJSON(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return wrapped.Tracks, nil
}

func decodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
