package pipeline

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/desertthunder/spinlist/internal/models"
)

// Interleave merges lists round-robin: the i-th song of every list, in list order, for i up to the longest length.
// Exhausted lists stop contributing; nothing is truncated.
func Interleave(lists ...[]models.Song) []models.Song {
	total, longest := 0, 0
	for _, l := range lists {
		total += len(l)
		longest = max(longest, len(l))
	}

	merged := make([]models.Song, 0, total)
	for i := range longest {
		for _, l := range lists {
			if i < len(l) {
				merged = append(merged, l[i])
			}
		}
	}
	return merged
}

// ShuffleSongs returns a uniformly random permutation of songs. The input is not modified.
func ShuffleSongs(songs []models.Song) []models.Song {
	shuffled := slices.Clone(songs)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// LimitSongs returns the first min(n, len(songs)) songs. Negative n is treated as zero.
func LimitSongs(songs []models.Song, n int) []models.Song {
	n = max(0, min(n, len(songs)))
	return slices.Clone(songs[:n])
}

// DedupSongs keeps the first occurrence of each song ID, preserving order.
func DedupSongs(songs []models.Song) []models.Song {
	seen := make(map[string]bool, len(songs))
	unique := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		unique = append(unique, s)
	}
	return unique
}

// RemoveExplicit drops every song flagged explicit.
func RemoveExplicit(songs []models.Song) []models.Song {
	clean := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		if !s.Explicit {
			clean = append(clean, s)
		}
	}
	return clean
}

// ArtistSet collects the distinct artist names across songs. Names are compared verbatim.
func ArtistSet(songs []models.Song) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range songs {
		for _, a := range s.Artists {
			set[a] = struct{}{}
		}
	}
	return set
}

// RemoveArtists drops every song with at least one artist in denied.
func RemoveArtists(songs []models.Song, denied map[string]struct{}) []models.Song {
	kept := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		if !slices.ContainsFunc(s.Artists, func(a string) bool {
			_, ok := denied[a]
			return ok
		}) {
			kept = append(kept, s)
		}
	}
	return kept
}

// NewestAlbum picks the most recently released album whose type is in types (every type when empty)
// and whose name contains none of exclude. Ties go to the album listed first. ok is false when nothing qualifies.
func NewestAlbum(albums []models.AlbumSummary, types []models.AlbumType, exclude []string) (newest models.AlbumSummary, ok bool) {
	if len(types) == 0 {
		types = models.AllAlbumTypes()
	}

	for _, a := range albums {
		if !slices.Contains(types, a.Type) {
			continue
		}
		if slices.ContainsFunc(exclude, func(sub string) bool { return strings.Contains(a.Name, sub) }) {
			continue
		}
		if !ok || a.ReleaseDate.After(newest.ReleaseDate) {
			newest, ok = a, true
		}
	}
	return newest, ok
}
