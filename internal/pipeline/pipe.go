package pipeline

import (
	"fmt"
	"strings"
)

// Pipe is an ordered chain of steps threading one song list from an empty start.
type Pipe struct {
	Steps []Step
}

// NewPipe builds a [Pipe] from steps.
func NewPipe(steps ...Step) Pipe {
	return Pipe{Steps: steps}
}

// PipelineConfig is one pipeline task: the tree to evaluate and the playlist it writes to.
type PipelineConfig struct {
	Name              string
	TargetPlaylistID  string
	DescriptionPrefix string
	Root              Pipe
}

// Describe renders the pipe as a single line, e.g. "combine[load_playlist(a); load_album(b)] | dedup | limit(50)".
func Describe(p Pipe) string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = describeStep(s)
	}
	return strings.Join(parts, " | ")
}

func describeStep(s Step) string {
	switch s := s.(type) {
	case LoadPlaylist:
		return fmt.Sprintf("%s(%s)", s.Kind(), s.PlaylistID)
	case LoadAlbum:
		return fmt.Sprintf("%s(%s)", s.Kind(), s.AlbumID)
	case LoadArtistTopTracks:
		return fmt.Sprintf("%s(%s)", s.Kind(), s.ArtistID)
	case LoadArtistNewestAlbum:
		args := []string{s.ArtistID}
		if len(s.AlbumTypes) > 0 {
			types := make([]string, len(s.AlbumTypes))
			for i, t := range s.AlbumTypes {
				types[i] = t.String()
			}
			args = append(args, "types="+strings.Join(types, ","))
		}
		if len(s.ExcludeTitleContaining) > 0 {
			args = append(args, "exclude="+strings.Join(s.ExcludeTitleContaining, ","))
		}
		return fmt.Sprintf("%s(%s)", s.Kind(), strings.Join(args, " "))
	case Combine:
		sources := make([]string, len(s.Sources))
		for i, src := range s.Sources {
			sources[i] = Describe(src)
		}
		return fmt.Sprintf("%s[%s]", s.Kind(), strings.Join(sources, "; "))
	case Limit:
		return fmt.Sprintf("%s(%d)", s.Kind(), s.N)
	case FilterArtistsFrom:
		return fmt.Sprintf("%s[%s]", s.Kind(), Describe(s.Denylist))
	default:
		return s.Kind()
	}
}
