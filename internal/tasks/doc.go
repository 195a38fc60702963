// Package tasks runs spinlist's playlist tasks and reports their progress.
//
// # Tasks
//
// Two kinds of task write to a playlist:
//
//  1. [Engine.RunPipeline] : evaluates a pipeline tree of platform sources and transforms
//     - Loads playlists, albums and artist catalogs through the Spotify client
//     - Writes the resulting song URIs to the target playlist
//     - Sets "<prefix> · updated <date>" as description when a prefix is configured
//
//  2. [Engine.RefreshStation] : rebuilds a playlist from a station's recently played feed
//     - Fetches raw title/artist pairs from the feed
//     - Resolves them to track URIs (cache first, then search)
//     - Writes the resolved URIs and refreshes the description
//
// [Engine.RunAll] runs every configured task in order. A failing task is recorded and the
// next one still runs; the returned [RunSummary] lists each task's outcome.
//
// Within a task any error is fatal. Nothing is written to a playlist unless the songs
// for it were produced without error.
//
// # Writing
//
// [WritePlaylist] replaces the playlist with the first page of 100 URIs and appends the rest
// page by page. Failures are reported as [SinkError].
//
// # Progress Reporting
//
// All operations accept an optional channel for [ProgressUpdate] values.
// Updates use select with default so a slow or absent reader never blocks a task.
//
// # Exports
//
// [Engine.BulkExport] evaluates pipelines without writing them and stores the songs as
// JSON, CSV, Markdown or text files alongside a manifest.
package tasks
