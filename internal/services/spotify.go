// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxItemsPerWrite is the largest number of URIs Spotify accepts in one playlist write.
	MaxItemsPerWrite = 100

	pageLimit = 50
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track. Album tracks are returned without the album object.
type SpotifyTrack struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Artists  []SpotifyArtist `json:"artists"`
	Explicit bool            `json:"explicit"`
	IsLocal  bool            `json:"is_local"`
	URI      string          `json:"uri"`
}

// SpotifyAlbum represents a simplified album as listed in an artist catalog.
type SpotifyAlbum struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	AlbumType            string `json:"album_type"`
	AlbumGroup           string `json:"album_group"`
	ReleaseDate          string `json:"release_date"`
	ReleaseDatePrecision string `json:"release_date_precision"`
	URI                  string `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed or unavailable items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// spotifyPage is Spotify's paging object.
type spotifyPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	ClientID          string
	ClientSecret      string
	RefreshToken      string
	Market            string
	RequestsPerSecond float64
	Timeout           time.Duration
	BaseURL           string       // Overrides the API base URL
	HTTPClient        *http.Client // Used as-is instead of an OAuth2 client when set
	Logger            *log.Logger
}

// SpotifyService is a Spotify Web API client providing the catalog reads, search and playlist writes spinlist needs.
//
// Requests are paced by a [rate.Limiter] and authenticated through an [oauth2.TokenSource] built from a refresh token.
type SpotifyService struct {
	baseURL    string
	market     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify client.
//
// Without an explicit HTTPClient, client_id, client_secret and refresh_token are required.
func NewSpotifyService(ctx context.Context, opts SpotifyOpts) (*SpotifyService, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		switch {
		case opts.ClientID == "":
			return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
		case opts.ClientSecret == "":
			return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
		case opts.RefreshToken == "":
			return nil, fmt.Errorf("%w: missing refresh_token", shared.ErrMissingCredentials)
		}

		config := &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: spotifyTokenURL},
		}

		tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: opts.Timeout})
		source := config.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: opts.RefreshToken})
		httpClient = oauth2.NewClient(tokenCtx, source)
		httpClient.Timeout = opts.Timeout
	}

	return &SpotifyService{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		market:     opts.Market,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:     opts.Logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated request against the API and decodes the JSON response into result.
//
// endpoint is either a path relative to the base URL or an absolute paging URL returned by the API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	s.logger.Debug("spotify request", "method", method, "endpoint", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp, method, endpoint)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// collectPages follows the paging object's next links starting at endpoint and returns every item.
func collectPages[T any](ctx context.Context, s *SpotifyService, endpoint string) ([]T, error) {
	var items []T
	next := endpoint
	for next != "" {
		var page spotifyPage[T]
		if err := s.doRequest(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Items...)

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return items, nil
}

// PlaylistTracks returns every track of a playlist in playlist order. Local files and unavailable items are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Song, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), pageLimit)
	if s.market != "" {
		endpoint += "&market=" + url.QueryEscape(s.market)
	}

	items, err := collectPages[SpotifyPlaylistTrack](ctx, s, endpoint)
	if err != nil {
		return nil, err
	}

	songs := make([]models.Song, 0, len(items))
	for _, item := range items {
		if item.Track == nil || item.IsLocal || item.Track.IsLocal || item.Track.URI == "" {
			continue
		}
		songs = append(songs, toSong(*item.Track))
	}
	return songs, nil
}

// AlbumTracks returns every track of an album in disc/track order.
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID string) ([]models.Song, error) {
	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=%d", url.PathEscape(albumID), pageLimit)

	items, err := collectPages[SpotifyTrack](ctx, s, endpoint)
	if err != nil {
		return nil, err
	}
	return toSongs(items), nil
}

// ArtistTopTracks returns the artist's top tracks for the configured market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID string) ([]models.Song, error) {
	market := s.market
	if market == "" {
		market = "US"
	}
	endpoint := fmt.Sprintf("/artists/%s/top-tracks?market=%s", url.PathEscape(artistID), url.QueryEscape(market))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return toSongs(response.Tracks), nil
}

// ArtistAlbums returns the artist's full album catalog across all groups, following pagination.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, artistID string) ([]models.AlbumSummary, error) {
	groups := make([]string, 0, 4)
	for _, t := range models.AllAlbumTypes() {
		groups = append(groups, t.String())
	}
	endpoint := fmt.Sprintf("/artists/%s/albums?include_groups=%s&limit=%d",
		url.PathEscape(artistID), strings.Join(groups, ","), pageLimit)

	items, err := collectPages[SpotifyAlbum](ctx, s, endpoint)
	if err != nil {
		return nil, err
	}

	albums := make([]models.AlbumSummary, 0, len(items))
	for _, a := range items {
		summary, err := toAlbumSummary(a)
		if err != nil {
			s.logger.Warn("skipping album", "album", a.ID, "err", err)
			continue
		}
		albums = append(albums, summary)
	}
	return albums, nil
}

// SearchTracks runs a track search and returns up to limit candidates in relevance order.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Song, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > pageLimit {
		limit = pageLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprint(limit))
	if s.market != "" {
		params.Set("market", s.market)
	}

	var response struct {
		Tracks spotifyPage[SpotifyTrack] `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return toSongs(response.Tracks.Items), nil
}

// ReplaceItems replaces the playlist contents with uris (at most [MaxItemsPerWrite]).
func (s *SpotifyService) ReplaceItems(ctx context.Context, playlistID string, uris []string) error {
	return s.writeItems(ctx, http.MethodPut, playlistID, uris)
}

// AppendItems appends uris (at most [MaxItemsPerWrite]) to the end of the playlist.
func (s *SpotifyService) AppendItems(ctx context.Context, playlistID string, uris []string) error {
	return s.writeItems(ctx, http.MethodPost, playlistID, uris)
}

func (s *SpotifyService) writeItems(ctx context.Context, method, playlistID string, uris []string) error {
	if len(uris) > MaxItemsPerWrite {
		return fmt.Errorf("%w: %d items exceed the per-request maximum of %d", shared.ErrInvalidArgument, len(uris), MaxItemsPerWrite)
	}
	if uris == nil {
		uris = []string{}
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, method, endpoint, map[string][]string{"uris": uris}, nil)
}

// SetDescription updates the playlist description.
func (s *SpotifyService) SetDescription(ctx context.Context, playlistID, description string) error {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, map[string]string{"description": description}, nil)
}

func toSong(t SpotifyTrack) models.Song {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	uri := t.URI
	if uri == "" && t.ID != "" {
		uri = "spotify:track:" + t.ID
	}

	return models.Song{
		ID:       uri,
		Title:    t.Name,
		Explicit: t.Explicit,
		Artists:  artists,
	}
}

func toSongs(tracks []SpotifyTrack) []models.Song {
	songs := make([]models.Song, 0, len(tracks))
	for _, t := range tracks {
		if t.IsLocal {
			continue
		}
		songs = append(songs, toSong(t))
	}
	return songs
}

// toAlbumSummary prefers album_group, which is the only field carrying appears_on.
func toAlbumSummary(a SpotifyAlbum) (models.AlbumSummary, error) {
	group := a.AlbumGroup
	if group == "" {
		group = a.AlbumType
	}

	albumType, err := models.ParseAlbumType(group)
	if err != nil {
		return models.AlbumSummary{}, err
	}

	released, err := models.ParseReleaseDate(a.ReleaseDate)
	if err != nil {
		return models.AlbumSummary{}, err
	}

	return models.AlbumSummary{
		ID:          a.ID,
		Name:        a.Name,
		Type:        albumType,
		ReleaseDate: released,
	}, nil
}
