package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/spinlist/internal/models"
)

// Queries returns the search queries tried for t, most specific first.
//
// With titleFirst set, the free-text query becomes "<title> - <artist>" when the title is a single word
// and the artist is not, which matches one-word titles far better than "<artist> <title>".
func Queries(t models.RawTrack, titleFirst bool) []string {
	artist := strings.TrimSpace(t.Artist)
	title := t.Title

	queries := []string{quoted(artist, title)}
	if strings.Contains(artist, "&") {
		if first := firstArtist(artist); first != "" {
			queries = append(queries, quoted(first, title))
		}
	}
	queries = append(queries, fmt.Sprintf("artist:%s track:%s", artist, title))

	if titleFirst && !strings.Contains(strings.TrimSpace(title), " ") && strings.Contains(artist, " ") {
		queries = append(queries, fmt.Sprintf("%s - %s", title, artist))
	} else {
		queries = append(queries, fmt.Sprintf("%s %s", artist, title))
	}

	return slices.Compact(queries)
}

func quoted(artist, title string) string {
	return fmt.Sprintf(`artist:"%s" track:"%s"`, artist, title)
}

// firstArtist returns the first non-blank "&"-separated segment of artist.
func firstArtist(artist string) string {
	for seg := range strings.SplitSeq(artist, "&") {
		if seg = strings.TrimSpace(seg); seg != "" {
			return seg
		}
	}
	return ""
}

var ignoredTokens = map[string]bool{
	"x":          true,
	"feat":       true,
	"feat.":      true,
	"featuring":  true,
	"featuring.": true,
	"ft":         true,
	"ft.":        true,
}

var separators = strings.NewReplacer("&amp;", " ", ",", " ", "&", " ")

// Normalize folds case, blanks out artist separators and collaboration markers, and collapses whitespace.
func Normalize(s string) string {
	fields := strings.Fields(separators.Replace(strings.ToLower(s)))
	kept := fields[:0]
	for _, f := range fields {
		if !ignoredTokens[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// sameArtists compares the normalized word sets of a raw artist line and a candidate's artists.
func sameArtists(raw string, artists []string) bool {
	want := strings.Fields(Normalize(raw))
	got := strings.Fields(Normalize(strings.Join(artists, " ")))
	if len(want) != len(got) {
		return false
	}
	slices.Sort(want)
	slices.Sort(got)
	return slices.Equal(want, got)
}

// matches reports whether song is a normalized exact match for t on both title and artist set.
func matches(t models.RawTrack, song models.Song) bool {
	return Normalize(t.Title) == Normalize(song.Title) && sameArtists(t.Artist, song.Artists)
}
