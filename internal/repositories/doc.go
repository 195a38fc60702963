// Package repositories implements SQLite persistence for spinlist.
//
// Key Implementations:
//   - [TrackCacheRepository] : exact-match (artist, title) → canonical track URI cache used by the resolver
//   - [TaskRunRepository] : history of pipeline and station task executions
//
// Both operate on tables created by the embedded migrations in the shared package.
// Driver failures are always returned to the caller wrapped in [shared.ErrDatabase]; only an absent row is reported as a miss.
package repositories
