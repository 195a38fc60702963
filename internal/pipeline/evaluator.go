package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
)

// ErrUnknownStep is returned when the evaluator meets a step it has no rule for.
var ErrUnknownStep = errors.New("unknown pipeline step")

// Loader provides the platform reads used by load steps.
type Loader interface {
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Song, error)
	AlbumTracks(ctx context.Context, albumID string) ([]models.Song, error)
	ArtistTopTracks(ctx context.Context, artistID string) ([]models.Song, error)
	// ArtistAlbums returns the complete catalog; implementations follow pagination themselves.
	ArtistAlbums(ctx context.Context, artistID string) ([]models.AlbumSummary, error)
}

// LoaderError reports a failed [Loader] call and the step that made it.
type LoaderError struct {
	Step string
	ID   string
	Err  error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Step, e.ID, e.Err)
}

func (e *LoaderError) Unwrap() error {
	return e.Err
}

// Evaluator interprets [Pipe] trees against a [Loader].
type Evaluator struct {
	loader  Loader
	logger  *log.Logger
	shuffle func([]models.Song) []models.Song
}

// Option configures an [Evaluator].
type Option func(*Evaluator)

// WithLogger sets the logger used for per-step debug output.
func WithLogger(l *log.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithShuffle replaces the permutation used by [Shuffle] steps.
func WithShuffle(fn func([]models.Song) []models.Song) Option {
	return func(e *Evaluator) {
		if fn != nil {
			e.shuffle = fn
		}
	}
}

// NewEvaluator creates an [Evaluator] reading from loader.
func NewEvaluator(loader Loader, opts ...Option) *Evaluator {
	e := &Evaluator{
		loader:  loader,
		logger:  shared.DiscardLogger(),
		shuffle: ShuffleSongs,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate folds the pipe's steps left to right, starting from an empty list.
//
// The first loader error aborts the whole evaluation; nothing partial is returned.
func (e *Evaluator) Evaluate(ctx context.Context, p Pipe) ([]models.Song, error) {
	return e.evaluate(ctx, p, 0)
}

func (e *Evaluator) evaluate(ctx context.Context, p Pipe, depth int) ([]models.Song, error) {
	songs := []models.Song{}
	for _, s := range p.Steps {
		in := len(songs)

		var err error
		songs, err = e.apply(ctx, s, songs, depth)
		if err != nil {
			return nil, err
		}

		e.logger.Debug("step", "kind", s.Kind(), "depth", depth, "in", in, "out", len(songs))
	}
	return songs, nil
}

// apply runs a single step against the current list and returns the next one.
func (e *Evaluator) apply(ctx context.Context, s Step, songs []models.Song, depth int) ([]models.Song, error) {
	switch s := s.(type) {
	case LoadPlaylist:
		return e.load(ctx, s, s.PlaylistID, e.loader.PlaylistTracks)
	case LoadAlbum:
		return e.load(ctx, s, s.AlbumID, e.loader.AlbumTracks)
	case LoadArtistTopTracks:
		return e.load(ctx, s, s.ArtistID, e.loader.ArtistTopTracks)
	case LoadArtistNewestAlbum:
		return e.loadNewestAlbum(ctx, s)
	case Combine:
		lists := make([][]models.Song, 0, len(s.Sources))
		for _, src := range s.Sources {
			list, err := e.evaluate(ctx, src, depth+1)
			if err != nil {
				return nil, err
			}
			lists = append(lists, list)
		}
		return Interleave(lists...), nil
	case Shuffle:
		return e.shuffle(songs), nil
	case Limit:
		return LimitSongs(songs, s.N), nil
	case Dedup:
		return DedupSongs(songs), nil
	case FilterOutExplicit:
		return RemoveExplicit(songs), nil
	case FilterArtistsFrom:
		denied, err := e.evaluate(ctx, s.Denylist, depth+1)
		if err != nil {
			return nil, err
		}
		return RemoveArtists(songs, ArtistSet(denied)), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownStep, s)
	}
}

func (e *Evaluator) load(ctx context.Context, s Step, id string, fn func(context.Context, string) ([]models.Song, error)) ([]models.Song, error) {
	songs, err := fn(ctx, id)
	if err != nil {
		return nil, &LoaderError{Step: s.Kind(), ID: id, Err: err}
	}
	if songs == nil {
		songs = []models.Song{}
	}
	return songs, nil
}

func (e *Evaluator) loadNewestAlbum(ctx context.Context, s LoadArtistNewestAlbum) ([]models.Song, error) {
	albums, err := e.loader.ArtistAlbums(ctx, s.ArtistID)
	if err != nil {
		return nil, &LoaderError{Step: s.Kind(), ID: s.ArtistID, Err: err}
	}

	album, ok := NewestAlbum(albums, s.AlbumTypes, s.ExcludeTitleContaining)
	if !ok {
		e.logger.Info("no album matches filters", "artist", s.ArtistID, "catalog", len(albums))
		return []models.Song{}, nil
	}

	e.logger.Debug("selected newest album", "artist", s.ArtistID, "album", album.Name, "released", album.ReleaseDate.Format("2006-01-02"))
	return e.load(ctx, s, album.ID, e.loader.AlbumTracks)
}
