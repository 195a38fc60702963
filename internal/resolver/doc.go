// package resolver turns raw (title, artist) pairs scraped from stations into Spotify track URIs.
//
// Lookups go through the track cache first. On a miss the resolver walks a list of search queries
// from most to least specific and stores the first accepted match before returning it.
package resolver
