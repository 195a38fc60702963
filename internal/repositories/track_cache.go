package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
)

// TrackCacheRepository stores resolutions of raw title/artist pairs keyed on the verbatim (artist, title) pair.
//
// Entries never expire; only [TrackCacheRepository.Clear] removes them.
type TrackCacheRepository struct {
	db *sql.DB
}

// NewTrackCacheRepository creates a new TrackCacheRepository with the given database connection
func NewTrackCacheRepository(db *sql.DB) *TrackCacheRepository {
	return &TrackCacheRepository{db: db}
}

// Find returns the cached canonical id for (artist, title). The boolean is false on a miss.
func (r *TrackCacheRepository) Find(ctx context.Context, artist, title string) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT canonical_id FROM track_cache WHERE artist = ? AND title = ?`,
		artist, title,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to query track cache: %v", shared.ErrDatabase, err)
	}
	return id, true, nil
}

// Store upserts (artist, title) → canonicalID. An existing entry is overwritten.
func (r *TrackCacheRepository) Store(ctx context.Context, artist, title, canonicalID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO track_cache (artist, title, canonical_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (artist, title) DO UPDATE SET canonical_id = excluded.canonical_id
	`, artist, title, canonicalID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: failed to store track cache entry: %v", shared.ErrDatabase, err)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (r *TrackCacheRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM track_cache`)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to clear track cache: %v", shared.ErrDatabase, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrDatabase, err)
	}
	return rows, nil
}

// Size returns the number of cached entries.
func (r *TrackCacheRepository) Size(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count track cache: %v", shared.ErrDatabase, err)
	}
	return count, nil
}

// List returns up to limit entries, newest first. A non-positive limit returns everything.
func (r *TrackCacheRepository) List(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	query := `SELECT artist, title, canonical_id, created_at FROM track_cache ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query track cache: %v", shared.ErrDatabase, err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		if err := rows.Scan(&e.Artist, &e.Title, &e.CanonicalID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan track cache entry: %v", shared.ErrDatabase, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrDatabase, err)
	}

	return entries, nil
}
