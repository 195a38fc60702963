package pipeline

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
)

// ErrInvalidStep reports a step definition that cannot be turned into a [Step].
var ErrInvalidStep = fmt.Errorf("%w: invalid step", shared.ErrInvalidConfig)

// ParsePipeline converts a configured pipeline into a [PipelineConfig], validating the whole step tree.
func ParsePipeline(def shared.PipelineDef) (PipelineConfig, error) {
	if len(def.Steps) == 0 {
		return PipelineConfig{}, fmt.Errorf("%w: pipeline %q has no steps", ErrInvalidStep, def.Name)
	}

	root, err := parsePipe(def.Steps, def.Name)
	if err != nil {
		return PipelineConfig{}, err
	}

	return PipelineConfig{
		Name:              def.Name,
		TargetPlaylistID:  def.TargetPlaylistID,
		DescriptionPrefix: def.DescriptionPrefix,
		Root:              root,
	}, nil
}

// ParsePipe converts a list of step definitions into a [Pipe].
func ParsePipe(defs []shared.StepDef) (Pipe, error) {
	return parsePipe(defs, "steps")
}

func parsePipe(defs []shared.StepDef, path string) (Pipe, error) {
	steps := make([]Step, 0, len(defs))
	for i, def := range defs {
		s, err := parseStep(def, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return Pipe{}, err
		}
		steps = append(steps, s)
	}
	return Pipe{Steps: steps}, nil
}

// parseStep builds one step; path locates it in the tree for error messages, e.g. "mix[0].sources[1][2]".
func parseStep(def shared.StepDef, path string) (Step, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s (%s): %s", ErrInvalidStep, path, def.Type, fmt.Sprintf(format, args...))
	}

	requireID := func() (string, error) {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			return "", invalid("missing id")
		}
		return id, nil
	}

	switch def.Type {
	case "load_playlist":
		id, err := requireID()
		if err != nil {
			return nil, err
		}
		return LoadPlaylist{PlaylistID: id}, nil

	case "load_album":
		id, err := requireID()
		if err != nil {
			return nil, err
		}
		return LoadAlbum{AlbumID: id}, nil

	case "load_artist_top_tracks":
		id, err := requireID()
		if err != nil {
			return nil, err
		}
		return LoadArtistTopTracks{ArtistID: id}, nil

	case "load_artist_newest_album":
		id, err := requireID()
		if err != nil {
			return nil, err
		}

		var types []models.AlbumType
		for _, raw := range def.AlbumTypes {
			t, err := models.ParseAlbumType(raw)
			if err != nil {
				return nil, invalid("%v", err)
			}
			types = append(types, t)
		}

		var exclude []string
		for _, sub := range def.ExcludeTitleContaining {
			if sub != "" {
				exclude = append(exclude, sub)
			}
		}

		return LoadArtistNewestAlbum{ArtistID: id, AlbumTypes: types, ExcludeTitleContaining: exclude}, nil

	case "combine":
		if len(def.Sources) == 0 {
			return nil, invalid("combine needs at least one source")
		}
		sources := make([]Pipe, 0, len(def.Sources))
		for i, src := range def.Sources {
			p, err := parsePipe(src.Steps, fmt.Sprintf("%s.sources[%d]", path, i))
			if err != nil {
				return nil, err
			}
			sources = append(sources, p)
		}
		return Combine{Sources: sources}, nil

	case "shuffle":
		return Shuffle{}, nil

	case "limit":
		if def.N == nil {
			return nil, invalid("missing n")
		}
		if *def.N < 0 {
			return nil, invalid("n must not be negative, got %d", *def.N)
		}
		return Limit{N: *def.N}, nil

	case "dedup":
		return Dedup{}, nil

	case "filter_out_explicit":
		return FilterOutExplicit{}, nil

	case "filter_artists_from":
		denylist, err := parsePipe(def.Denylist, path+".denylist")
		if err != nil {
			return nil, err
		}
		return FilterArtistsFrom{Denylist: denylist}, nil

	case "":
		return nil, invalid("missing type")

	default:
		return nil, invalid("unknown type")
	}
}
