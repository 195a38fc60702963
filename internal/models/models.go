// package models defines the data model for spinlist
package models

import (
	"fmt"
	"strings"
	"time"
)

// RawTrack is a title/artist pair scraped from a non-platform source.
type RawTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// UniqueTracks returns tracks without repeats, keeping first-seen order.
func UniqueTracks(tracks []RawTrack) []RawTrack {
	seen := make(map[RawTrack]bool, len(tracks))
	unique := make([]RawTrack, 0, len(tracks))
	for _, t := range tracks {
		if seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}
	return unique
}

// IsBlank reports whether either field is empty after trimming.
func (t RawTrack) IsBlank() bool {
	return strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Artist) == ""
}

func (t RawTrack) String() string {
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// Song is a canonical platform track. ID is the platform URI and is the dedup identity.
type Song struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Explicit bool     `json:"explicit"`
	Artists  []string `json:"artists"`
}

// ArtistLine joins the song's artists for display.
func (s Song) ArtistLine() string {
	return strings.Join(s.Artists, ", ")
}

// SongIDs returns the IDs of songs in order.
func SongIDs(songs []Song) []string {
	ids := make([]string, len(songs))
	for i, s := range songs {
		ids[i] = s.ID
	}
	return ids
}

// AlbumType is the catalog group of an album.
type AlbumType int

const (
	Album AlbumType = iota
	Single
	Compilation
	AppearsOn
)

func (t AlbumType) String() string {
	switch t {
	case Album:
		return "album"
	case Single:
		return "single"
	case Compilation:
		return "compilation"
	case AppearsOn:
		return "appears_on"
	default:
		return ""
	}
}

// ParseAlbumType maps a Spotify album_group/album_type value (case-insensitive) to an [AlbumType].
func ParseAlbumType(s string) (AlbumType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "album":
		return Album, nil
	case "single":
		return Single, nil
	case "compilation":
		return Compilation, nil
	case "appears_on":
		return AppearsOn, nil
	default:
		return 0, fmt.Errorf("unknown album type %q", s)
	}
}

// AllAlbumTypes returns every album type in declaration order.
func AllAlbumTypes() []AlbumType {
	return []AlbumType{Album, Single, Compilation, AppearsOn}
}

// AlbumSummary is one entry of an artist's album catalog.
type AlbumSummary struct {
	ID          string
	Name        string
	Type        AlbumType
	ReleaseDate time.Time
}

// ParseReleaseDate parses a release date with day, month or year precision.
// Partial dates resolve to the first day of the period.
func ParseReleaseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid release date %q", s)
}

// CacheEntry is a persisted resolution of a raw track.
type CacheEntry struct {
	Artist      string    `json:"artist"`
	Title       string    `json:"title"`
	CanonicalID string    `json:"canonical_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskStatus is the outcome of one task execution.
type TaskStatus string

const (
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// TaskKind distinguishes pipeline tasks from station refresh tasks.
type TaskKind string

const (
	PipelineTask TaskKind = "pipeline"
	StationTask  TaskKind = "station"
)

// TaskRun records one task execution.
type TaskRun struct {
	ID            string
	RunID         string
	Task          string
	Kind          TaskKind
	PlaylistID    string
	TracksWritten int
	Status        TaskStatus
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration is the wall time of the run.
func (r TaskRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// StationConfig is a refresh task that resolves a station's recently played feed into a playlist.
type StationConfig struct {
	Name              string
	FeedURL           string
	PlaylistID        string
	DescriptionPrefix string
	Dedup             bool // collapse repeat plays within one fetch
}

// PlaylistSnapshot is an evaluated song list ready for export.
type PlaylistSnapshot struct {
	Name        string    `json:"name"`
	PlaylistID  string    `json:"playlist_id"`
	Description string    `json:"description,omitempty"`
	Songs       []Song    `json:"songs"`
	GeneratedAt time.Time `json:"generated_at"`
}
