package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
	ttesting "github.com/desertthunder/spinlist/internal/testing"
)

func TestFeedSource(t *testing.T) {
	tt := []struct {
		name    string
		body    string
		status  int
		want    []models.RawTrack
		wantErr bool
	}{
		{
			name: "bare array",
			body: `[{"title": "Komet", "artist": "Udo Lindenberg & Apache 207"}, {"title": "Flowers", "artist": "Miley Cyrus"}]`,
			want: []models.RawTrack{
				{Title: "Komet", Artist: "Udo Lindenberg & Apache 207"},
				{Title: "Flowers", Artist: "Miley Cyrus"},
			},
		},
		{
			name: "wrapped tracks with blanks and repeats",
			body: `{"tracks": [
				{"title": " Komet ", "artist": "Udo Lindenberg"},
				{"title": "", "artist": "Jingle"},
				{"title": "Komet", "artist": "Udo Lindenberg"},
				{"title": "News", "artist": "  "}
			]}`,
			want: []models.RawTrack{
				{Title: "Komet", Artist: "Udo Lindenberg"},
				{Title: "Komet", Artist: "Udo Lindenberg"},
			},
		},
		{
			name:    "invalid json",
			body:    `{"tracks": [`,
			wantErr: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.status != 0 {
					w.WriteHeader(tc.status)
					return
				}
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			feed := NewFeedSource(server.URL, server.Client(), nil)
			got, err := feed.RecentTracks(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("RecentTracks() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}

			if len(got) != len(tc.want) {
				t.Fatalf("RecentTracks() = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("RecentTracks()[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}

	t.Run("server errors wrap ErrAPIRequest", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewFeedSource(server.URL, nil, nil).RecentTracks(context.Background())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if !IsTransient(err) {
			t.Error("expected 502 to be transient")
		}
	})

	t.Run("transport errors wrap ErrAPIRequest", func(t *testing.T) {
		client := &http.Client{Transport: ttesting.NewMockRoundTripper(nil, errors.New("connection refused"))}

		_, err := NewFeedSource("http://feed.invalid/recent", client, nil).RecentTracks(context.Background())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("body read failures are reported", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &ttesting.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: ttesting.NewMockRoundTripper(resp, nil)}

		_, err := NewFeedSource("http://feed.invalid/recent", client, nil).RecentTracks(context.Background())
		if err == nil || !strings.Contains(err.Error(), "failed to read feed") {
			t.Errorf("expected read error, got %v", err)
		}
	})
}
