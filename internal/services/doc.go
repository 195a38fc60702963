// Package services implements the HTTP clients spinlist depends on.
//
// # Spotify Implementation
//
// [SpotifyService] covers every platform capability the core needs:
//   - catalog reads: [SpotifyService.PlaylistTracks], [SpotifyService.AlbumTracks],
//     [SpotifyService.ArtistTopTracks], [SpotifyService.ArtistAlbums]
//   - search: [SpotifyService.SearchTracks]
//   - playlist writes: [SpotifyService.ReplaceItems], [SpotifyService.AppendItems], [SpotifyService.SetDescription]
//
// Paginated endpoints are followed transparently via the paging object's next link.
// Authentication uses an [oauth2.TokenSource] seeded with a refresh token, so access tokens are refreshed on demand.
// Every request waits on a [rate.Limiter] before it is sent.
//
// # Station Feeds
//
// [FeedSource] reads a JSON list of recently played title/artist pairs. It stands in for per-station scrapers:
// anything that can publish the list as JSON can feed a station task.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which matches [shared.ErrAPIRequest] with [errors.Is].
// 429, 502, 503 and 504 responses report [APIError.Transient]; callers check with [IsTransient].
package services
