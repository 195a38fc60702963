// Package pipeline evaluates declarative playlist pipelines.
//
// A [Pipe] is an ordered list of [Step] values. Evaluation starts from an empty song list and applies each step in turn:
//
//   - load steps ([LoadPlaylist], [LoadAlbum], [LoadArtistTopTracks], [LoadArtistNewestAlbum]) replace the list
//     with [Loader] output
//   - [Combine] evaluates nested pipes independently and merges them with [Interleave]
//   - [Shuffle], [Limit], [Dedup], [FilterOutExplicit] transform the list
//   - [FilterArtistsFrom] evaluates a nested pipe and removes songs sharing an artist with its output
//
// Each transformation is also exported as a plain function over []models.Song so it can be used and tested alone.
//
// Pipes are built from TOML definitions with [ParsePipeline], which rejects malformed trees
// (missing ids, negative limits, combine without sources) before anything is evaluated.
package pipeline
