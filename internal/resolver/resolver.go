package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/services"
	"github.com/desertthunder/spinlist/internal/shared"
)

const (
	// MaxAttempts is how often one query is sent when the search keeps failing transiently.
	MaxAttempts = 3
	// MatchWindow is how many candidates [BestMatch] inspects per query.
	MatchWindow = 5
	// DefaultBackoff is the pause between attempts of the same query.
	DefaultBackoff = time.Second
)

// Searcher finds candidate tracks for a free-form query.
type Searcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Song, error)
}

// Cache maps verbatim (artist, title) pairs to track URIs.
type Cache interface {
	Find(ctx context.Context, artist, title string) (string, bool, error)
	Store(ctx context.Context, artist, title, canonicalID string) error
}

// Strategy selects how a candidate is picked from search results.
type Strategy int

const (
	// FirstHit takes the first result of the first query that returns anything.
	FirstHit Strategy = iota
	// BestMatch prefers a normalized exact match among the first [MatchWindow] results.
	BestMatch
)

func (s Strategy) String() string {
	switch s {
	case FirstHit:
		return "first_hit"
	case BestMatch:
		return "best_match"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a config value to a [Strategy]. An empty value selects [FirstHit].
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first_hit":
		return FirstHit, nil
	case "best_match":
		return BestMatch, nil
	default:
		return 0, fmt.Errorf("%w: unknown resolver strategy %q", shared.ErrInvalidConfig, s)
	}
}

// Outcome classifies a single resolution for metrics.
type Outcome string

const (
	OutcomeCacheHit  Outcome = "cache_hit"
	OutcomeSearchHit Outcome = "search_hit"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeFailure   Outcome = "failure"
)

// ResolverFailure is a search that failed for good: a non-transient error, or a transient one that outlived [MaxAttempts].
type ResolverFailure struct {
	Track    models.RawTrack
	Query    string
	Attempts int
	Err      error
}

func (e *ResolverFailure) Error() string {
	return fmt.Sprintf("resolve %s: query %q failed after %d attempt(s): %v", e.Track, e.Query, e.Attempts, e.Err)
}

func (e *ResolverFailure) Unwrap() error {
	return e.Err
}

// CacheError is a track cache read or write failure. It is never treated as a miss.
type CacheError struct {
	Op    string
	Track models.RawTrack
	Err   error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("track cache %s %s: %v", e.Op, e.Track, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Resolver resolves raw tracks against a [Searcher], remembering answers in a [Cache].
type Resolver struct {
	searcher Searcher
	cache    Cache
	strategy Strategy
	limit    int
	backoff  time.Duration
	logger   *log.Logger
	observe  func(Outcome)
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithStrategy sets the candidate selection strategy.
func WithStrategy(s Strategy) Option {
	return func(r *Resolver) { r.strategy = s }
}

// WithSearchLimit sets how many results each search asks for.
func WithSearchLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithBackoff sets the pause between retries of a query. Zero retries immediately.
func WithBackoff(d time.Duration) Option {
	return func(r *Resolver) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers fn to be called once per resolution with its outcome.
func WithObserver(fn func(Outcome)) Option {
	return func(r *Resolver) { r.observe = fn }
}

// New creates a [Resolver]. Defaults: [FirstHit], [MatchWindow] results per search, [DefaultBackoff].
func New(searcher Searcher, cache Cache, opts ...Option) *Resolver {
	r := &Resolver{
		searcher: searcher,
		cache:    cache,
		strategy: FirstHit,
		limit:    MatchWindow,
		backoff:  DefaultBackoff,
		logger:   shared.DiscardLogger(),
		observe:  func(Outcome) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategy returns the configured strategy.
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// Resolve returns the track URI for t. found is false, with a nil error, when no query produced a usable candidate.
func (r *Resolver) Resolve(ctx context.Context, t models.RawTrack) (id string, found bool, err error) {
	id, found, outcome, err := r.resolve(ctx, t)
	r.observe(outcome)
	return id, found, err
}

func (r *Resolver) resolve(ctx context.Context, t models.RawTrack) (string, bool, Outcome, error) {
	cached, ok, err := r.cache.Find(ctx, t.Artist, t.Title)
	if err != nil {
		return "", false, OutcomeFailure, &CacheError{Op: "find", Track: t, Err: err}
	}
	if ok {
		r.logger.Debug("cache hit", "track", t, "id", cached)
		return cached, true, OutcomeCacheHit, nil
	}

	for _, q := range Queries(t, r.strategy == BestMatch) {
		candidates, err := r.search(ctx, t, q)
		if err != nil {
			return "", false, OutcomeFailure, err
		}
		candidates = slices.DeleteFunc(slices.Clone(candidates), func(c models.Song) bool { return c.ID == "" })
		if len(candidates) == 0 {
			r.logger.Debug("no hits", "query", q)
			continue
		}

		song := r.pick(t, candidates)
		if err := r.cache.Store(ctx, t.Artist, t.Title, song.ID); err != nil {
			return "", false, OutcomeFailure, &CacheError{Op: "store", Track: t, Err: err}
		}

		r.logger.Debug("resolved", "track", t, "query", q, "id", song.ID, "match", song.ArtistLine()+" - "+song.Title)
		return song.ID, true, OutcomeSearchHit, nil
	}

	r.logger.Info("track not found", "track", t)
	return "", false, OutcomeNotFound, nil
}

// search runs one query, retrying transient failures up to [MaxAttempts] in total.
func (r *Resolver) search(ctx context.Context, t models.RawTrack, query string) ([]models.Song, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		songs, err := r.searcher.SearchTracks(ctx, query, r.limit)
		if err == nil {
			return songs, nil
		}
		lastErr = err

		if !services.IsTransient(err) {
			return nil, &ResolverFailure{Track: t, Query: query, Attempts: attempt, Err: err}
		}
		if attempt == MaxAttempts {
			break
		}

		r.logger.Warn("transient search failure, retrying", "query", query, "attempt", attempt, "error", err)
		if err := sleep(ctx, r.backoff); err != nil {
			return nil, &ResolverFailure{Track: t, Query: query, Attempts: attempt, Err: errors.Join(lastErr, err)}
		}
	}
	return nil, &ResolverFailure{Track: t, Query: query, Attempts: MaxAttempts, Err: lastErr}
}

// pick chooses the candidate for t from a non-empty result list of songs with IDs.
func (r *Resolver) pick(t models.RawTrack, candidates []models.Song) models.Song {
	if r.strategy == BestMatch {
		for _, c := range candidates[:min(MatchWindow, len(candidates))] {
			if matches(t, c) {
				return c
			}
		}
	}
	return candidates[0]
}

// ResolveAll resolves tracks in order and returns the URIs that were found. Unresolved tracks are dropped;
// the first error aborts the whole list.
func (r *Resolver) ResolveAll(ctx context.Context, tracks []models.RawTrack) ([]string, error) {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		id, found, err := r.Resolve(ctx, t)
		if err != nil {
			return nil, err
		}
		if found {
			ids = append(ids, id)
		}
	}

	r.logger.Info("resolved tracks", "requested", len(tracks), "resolved", len(ids))
	return ids, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
