// Package metrics records spinlist run statistics as Prometheus metrics.
//
// spinlist is a batch tool, so nothing is served over HTTP. At the end of a run the registry is
// written to a node_exporter textfile collector file. All metrics are prefixed with "spinlist_".
//
// # Metric Categories
//
// ## Resolver Metrics
//
//   - ResolutionsTotal: Counter of track resolutions by outcome (cache_hit, search_hit, not_found, failure)
//
// ## Task Metrics
//
//   - TasksTotal: Counter of finished tasks by kind and status
//   - TaskDuration: Histogram of task wall time by kind
//   - TracksWritten: Gauge of tracks written by the last run of each task
//   - LastRunTimestamp: Gauge of the unix time the last run finished
//   - TrackCacheEntries: Gauge of rows in the track cache
package metrics
