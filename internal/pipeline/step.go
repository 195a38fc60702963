package pipeline

import (
	"github.com/desertthunder/spinlist/internal/models"
)

// Step is one unit of a [Pipe]: a source load or a list transformation.
//
// The set of steps is closed; every implementation lives in this package and is handled by [Evaluator].
type Step interface {
	// Kind returns the step's configuration name, e.g. "load_playlist".
	Kind() string
	step()
}

// LoadPlaylist replaces the current list with a playlist's tracks.
type LoadPlaylist struct {
	PlaylistID string
}

// LoadAlbum replaces the current list with an album's tracks.
type LoadAlbum struct {
	AlbumID string
}

// LoadArtistTopTracks replaces the current list with an artist's top tracks.
type LoadArtistTopTracks struct {
	ArtistID string
}

// LoadArtistNewestAlbum replaces the current list with the tracks of the artist's most recently released album
// among those matching AlbumTypes (all types when empty) whose name contains none of ExcludeTitleContaining.
type LoadArtistNewestAlbum struct {
	ArtistID               string
	AlbumTypes             []models.AlbumType
	ExcludeTitleContaining []string
}

// Combine replaces the current list with the round-robin interleave of its independently evaluated sources.
type Combine struct {
	Sources []Pipe
}

// Shuffle randomly permutes the current list.
type Shuffle struct{}

// Limit keeps the first N songs.
type Limit struct {
	N int
}

// Dedup keeps the first occurrence of every song ID.
type Dedup struct{}

// FilterOutExplicit removes explicit songs.
type FilterOutExplicit struct{}

// FilterArtistsFrom removes songs sharing any artist with the songs produced by Denylist.
type FilterArtistsFrom struct {
	Denylist Pipe
}

func (LoadPlaylist) Kind() string          { return "load_playlist" }
func (LoadAlbum) Kind() string             { return "load_album" }
func (LoadArtistTopTracks) Kind() string   { return "load_artist_top_tracks" }
func (LoadArtistNewestAlbum) Kind() string { return "load_artist_newest_album" }
func (Combine) Kind() string               { return "combine" }
func (Shuffle) Kind() string               { return "shuffle" }
func (Limit) Kind() string                 { return "limit" }
func (Dedup) Kind() string                 { return "dedup" }
func (FilterOutExplicit) Kind() string     { return "filter_out_explicit" }
func (FilterArtistsFrom) Kind() string     { return "filter_artists_from" }

func (LoadPlaylist) step()          {}
func (LoadAlbum) step()             {}
func (LoadArtistTopTracks) step()   {}
func (LoadArtistNewestAlbum) step() {}
func (Combine) step()               {}
func (Shuffle) step()               {}
func (Limit) step()                 {}
func (Dedup) step()                 {}
func (FilterOutExplicit) step()     {}
func (FilterArtistsFrom) step()     {}
