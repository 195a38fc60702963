package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spinlist/internal/services"
)

// PageSize is the number of URIs sent per playlist write.
const PageSize = services.MaxItemsPerWrite

// Sink writes playlist contents and metadata.
type Sink interface {
	ReplaceItems(ctx context.Context, playlistID string, uris []string) error
	AppendItems(ctx context.Context, playlistID string, uris []string) error
	SetDescription(ctx context.Context, playlistID, description string) error
}

// SinkError is a failed write to a playlist. Offset is the index of the first URI of the failed page.
type SinkError struct {
	PlaylistID string
	Op         string
	Offset     int
	Err        error
}

func (e *SinkError) Error() string {
	if e.Op == "describe" {
		return fmt.Sprintf("playlist %s: set description: %v", e.PlaylistID, e.Err)
	}
	return fmt.Sprintf("playlist %s: %s items at offset %d: %v", e.PlaylistID, e.Op, e.Offset, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// WritePlaylist replaces the playlist's items with uris, one page of [PageSize] at a time.
// An empty list leaves the playlist untouched.
func WritePlaylist(ctx context.Context, sink Sink, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	first := uris[:min(PageSize, len(uris))]
	if err := sink.ReplaceItems(ctx, playlistID, first); err != nil {
		return &SinkError{PlaylistID: playlistID, Op: "replace", Offset: 0, Err: err}
	}

	for start := PageSize; start < len(uris); start += PageSize {
		page := uris[start:min(start+PageSize, len(uris))]
		if err := sink.AppendItems(ctx, playlistID, page); err != nil {
			return &SinkError{PlaylistID: playlistID, Op: "append", Offset: start, Err: err}
		}
	}
	return nil
}

// Description formats a playlist description stamped with the refresh date.
func Description(prefix string, date string) string {
	return fmt.Sprintf("%s · updated %s", prefix, date)
}
