// Package models defines the value types shared by the pipeline evaluator, the track resolver and the Spotify client.
//
// The package contains two categories of types:
//
// 1. Canonical values: data produced by the platform
//   - [Song] : a track identified by its platform URI
//   - [AlbumSummary] : an entry in an artist's album catalog
//   - [AlbumType] : the catalog group an album belongs to
//
// 2. Raw values: data scraped from outside the platform
//   - [RawTrack] : an unresolved title/artist pair
//   - [CacheEntry] : a persisted resolution of a [RawTrack]
//
// All values are immutable once constructed. Equality for raw tracks is verbatim and case-sensitive.
package models
