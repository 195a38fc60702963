package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/repositories"
	"github.com/desertthunder/spinlist/internal/shared"
	"github.com/desertthunder/spinlist/internal/ui"
	"github.com/urfave/cli/v3"
)

func (r *Runner) trackCache() (*repositories.TrackCacheRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewTrackCacheRepository(db), nil
}

// CacheSize prints the number of cached track resolutions.
func (r *Runner) CacheSize(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.trackCache()
	if err != nil {
		return err
	}

	size, err := cache.Size(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("%d\n", size)
}

// CacheClear deletes every cached track resolution.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to clear the track cache", shared.ErrMissingArgument)
	}

	cache, err := r.trackCache()
	if err != nil {
		return err
	}

	n, err := cache.Clear(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("track cache cleared", "entries", n)
	return r.writePlain("%s removed %d cached tracks\n", ui.Styles().OK("✓"), n)
}

// CacheLookup prints the cached track URI for an exact artist and title.
func (r *Runner) CacheLookup(ctx context.Context, cmd *cli.Command) error {
	artist, title := cmd.String("artist"), cmd.String("title")

	cache, err := r.trackCache()
	if err != nil {
		return err
	}

	id, found, err := cache.Find(ctx, artist, title)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q by %q is not cached", shared.ErrTrackNotFound, title, artist)
	}
	return r.writePlain("%s\n", id)
}

// CacheList prints the most recent cache entries.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.trackCache()
	if err != nil {
		return err
	}

	entries, err := cache.List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if entries == nil {
			entries = []models.CacheEntry{}
		}
		return r.writeJSON(entries, true)
	}
	return r.writePlain("%s", ui.RenderCacheEntries(entries))
}

// Resolve resolves one artist and title through the cache and Spotify search.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	track := models.RawTrack{Artist: cmd.String("artist"), Title: cmd.String("title")}
	if s := cmd.String("strategy"); s != "" {
		r.cfg().Resolver.Strategy = s
	}

	spotify, err := r.spotifyClient(ctx)
	if err != nil {
		return err
	}
	cache, err := r.trackCache()
	if err != nil {
		return err
	}
	res, err := r.newResolver(spotify, cache)
	if err != nil {
		return err
	}

	id, found, err := res.Resolve(ctx, track)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s - %s", shared.ErrTrackNotFound, track.Artist, track.Title)
	}
	return r.writePlain("%s\n", id)
}

// History prints recorded task runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewTaskRunRepository(db).List(ctx, cmd.String("task"), cmd.Int("limit"))
	if err != nil {
		return err
	}
	return r.writePlain("%s", ui.RenderTaskRuns(runs))
}
