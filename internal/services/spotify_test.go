package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*SpotifyService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(context.Background(), SpotifyOpts{
		BaseURL:           server.URL,
		HTTPClient:        server.Client(),
		Market:            "DE",
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv, server
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(context.Background(), SpotifyOpts{
				ClientID:     "test_client_id",
				ClientSecret: "test_client_secret",
				RefreshToken: "test_refresh_token",
				Timeout:      5 * time.Second,
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.httpClient.Timeout != 5*time.Second {
				t.Errorf("expected client timeout 5s, got %v", srv.httpClient.Timeout)
			}
		})

		tt := []struct {
			name string
			opts SpotifyOpts
		}{
			{name: "Missing Client ID", opts: SpotifyOpts{ClientSecret: "s", RefreshToken: "r"}},
			{name: "Missing Client Secret", opts: SpotifyOpts{ClientID: "c", RefreshToken: "r"}},
			{name: "Missing Refresh Token", opts: SpotifyOpts{ClientID: "c", ClientSecret: "s"}},
		}
		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewSpotifyService(context.Background(), tc.opts)
				if !errors.Is(err, shared.ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
			})
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		t.Run("follows pagination and skips unavailable items", func(t *testing.T) {
			var serverURL string
			srv, server := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/playlists/pl1/tracks" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("offset") == "" {
					next := serverURL + "/playlists/pl1/tracks?offset=2"
					fmt.Fprintf(w, `{"items": [
						{"track": {"id": "t1", "uri": "spotify:track:t1", "name": "One", "explicit": true, "artists": [{"name": "A"}, {"name": "B"}]}},
						{"track": null}
					], "next": %q}`, next)
					return
				}
				fmt.Fprint(w, `{"items": [
					{"is_local": true, "track": {"uri": "spotify:local:x", "name": "Local"}},
					{"track": {"id": "t2", "uri": "spotify:track:t2", "name": "Two", "artists": [{"name": "C"}]}}
				], "next": null}`)
			})
			serverURL = server.URL

			songs, err := srv.PlaylistTracks(context.Background(), "pl1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(songs) != 2 {
				t.Fatalf("expected 2 songs, got %d", len(songs))
			}
			if songs[0].ID != "spotify:track:t1" || !songs[0].Explicit || len(songs[0].Artists) != 2 {
				t.Errorf("unexpected first song %+v", songs[0])
			}
			if songs[1].ID != "spotify:track:t2" {
				t.Errorf("unexpected second song %+v", songs[1])
			}
		})

		t.Run("not found", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error": {"status": 404, "message": "Resource not found"}}`)
			})

			_, err := srv.PlaylistTracks(context.Background(), "missing")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T", err)
			}
			if apiErr.Message != "Resource not found" {
				t.Errorf("expected message from envelope, got %q", apiErr.Message)
			}
			if IsTransient(err) {
				t.Error("404 should not be transient")
			}
		})
	})

	t.Run("AlbumTracks", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/albums/al1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			fmt.Fprint(w, `{"items": [{"id": "x", "name": "X", "artists": [{"name": "A"}]}], "next": null}`)
		})

		songs, err := srv.AlbumTracks(context.Background(), "al1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 1 || songs[0].ID != "spotify:track:x" {
			t.Errorf("expected URI derived from id, got %+v", songs)
		}
	})

	t.Run("ArtistTopTracks", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("market"); got != "DE" {
				t.Errorf("expected market DE, got %s", got)
			}
			fmt.Fprint(w, `{"tracks": [{"uri": "spotify:track:1", "name": "Hit"}, {"uri": "spotify:track:2", "name": "Other"}]}`)
		})

		songs, err := srv.ArtistTopTracks(context.Background(), "ar1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 2 {
			t.Errorf("expected 2 songs, got %d", len(songs))
		}
	})

	t.Run("ArtistAlbums", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			groups := r.URL.Query().Get("include_groups")
			if groups != "album,single,compilation,appears_on" {
				t.Errorf("unexpected include_groups %q", groups)
			}
			fmt.Fprint(w, `{"items": [
				{"id": "a1", "name": "Normal Album", "album_type": "album", "album_group": "album", "release_date": "2023-01-01"},
				{"id": "a2", "name": "Guest Spot", "album_type": "album", "album_group": "appears_on", "release_date": "2022"},
				{"id": "a3", "name": "Broken", "album_type": "album", "release_date": "soon"}
			], "next": null}`)
		})

		albums, err := srv.ArtistAlbums(context.Background(), "ar1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(albums) != 2 {
			t.Fatalf("expected invalid album to be skipped, got %d albums", len(albums))
		}
		if albums[1].Type != models.AppearsOn {
			t.Errorf("expected album_group to win, got %v", albums[1].Type)
		}
		if albums[1].ReleaseDate.Year() != 2022 {
			t.Errorf("expected year precision date, got %v", albums[1].ReleaseDate)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		t.Run("encodes query", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("q") != `artist:"Udo Lindenberg" track:"Komet"` {
					t.Errorf("unexpected query %q", q.Get("q"))
				}
				if q.Get("type") != "track" || q.Get("limit") != "5" {
					t.Errorf("unexpected params %v", q)
				}
				fmt.Fprint(w, `{"tracks": {"items": [{"uri": "spotify:track:komet", "name": "Komet", "artists": [{"name": "Udo Lindenberg"}, {"name": "Apache 207"}]}]}}`)
			})

			songs, err := srv.SearchTracks(context.Background(), `artist:"Udo Lindenberg" track:"Komet"`, 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(songs) != 1 || songs[0].ID != "spotify:track:komet" {
				t.Errorf("unexpected result %+v", songs)
			}
		})

		t.Run("gateway errors are transient", func(t *testing.T) {
			for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
				srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(status)
				})

				_, err := srv.SearchTracks(context.Background(), "q", 1)
				if !IsTransient(err) {
					t.Errorf("status %d: expected transient error, got %v", status, err)
				}
				if !errors.Is(err, shared.ErrAPIRequest) {
					t.Errorf("status %d: expected ErrAPIRequest, got %v", status, err)
				}
			}
		})

		t.Run("client errors are not transient", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			})

			_, err := srv.SearchTracks(context.Background(), "q", 1)
			if err == nil || IsTransient(err) {
				t.Errorf("expected non-transient error, got %v", err)
			}
		})
	})

	t.Run("Playlist writes", func(t *testing.T) {
		type call struct {
			method string
			path   string
			body   map[string]any
		}
		var calls []call

		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			var body map[string]any
			if err := json.Unmarshal(data, &body); err != nil {
				t.Errorf("invalid body %q: %v", data, err)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON content type")
			}
			calls = append(calls, call{method: r.Method, path: r.URL.Path, body: body})
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"snapshot_id": "abc"}`)
		})

		ctx := context.Background()
		if err := srv.ReplaceItems(ctx, "pl", []string{"spotify:track:1"}); err != nil {
			t.Fatalf("replace failed: %v", err)
		}
		if err := srv.AppendItems(ctx, "pl", []string{"spotify:track:2"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if err := srv.SetDescription(ctx, "pl", "hello"); err != nil {
			t.Fatalf("set description failed: %v", err)
		}

		if len(calls) != 3 {
			t.Fatalf("expected 3 calls, got %d", len(calls))
		}
		if calls[0].method != http.MethodPut || calls[0].path != "/playlists/pl/tracks" {
			t.Errorf("unexpected replace call %+v", calls[0])
		}
		if calls[1].method != http.MethodPost || calls[1].path != "/playlists/pl/tracks" {
			t.Errorf("unexpected append call %+v", calls[1])
		}
		if calls[2].method != http.MethodPut || calls[2].path != "/playlists/pl" || calls[2].body["description"] != "hello" {
			t.Errorf("unexpected description call %+v", calls[2])
		}

		t.Run("rejects oversized pages", func(t *testing.T) {
			uris := make([]string, MaxItemsPerWrite+1)
			err := srv.AppendItems(ctx, "pl", uris)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("Request errors", func(t *testing.T) {
		srv, server := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
		server.Close()

		_, err := srv.AlbumTracks(context.Background(), "x")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "/albums/x/tracks") {
			t.Errorf("expected endpoint in error, got %v", err)
		}
	})
}
