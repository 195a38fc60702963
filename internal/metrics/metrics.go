package metrics

import (
	"fmt"
	"time"

	"github.com/desertthunder/spinlist/internal/resolver"
	"github.com/desertthunder/spinlist/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds spinlist's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ResolutionsTotal  *prometheus.CounterVec
	TasksTotal        *prometheus.CounterVec
	TaskDuration      *prometheus.HistogramVec
	TracksWritten     *prometheus.GaugeVec
	LastRunTimestamp  prometheus.Gauge
	TrackCacheEntries prometheus.Gauge
}

// New creates a [Metrics] with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinlist_resolutions_total",
				Help: "Total number of raw track resolutions by outcome",
			},
			[]string{"outcome"},
		),

		TasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinlist_tasks_total",
				Help: "Total number of finished tasks",
			},
			[]string{"kind", "status"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spinlist_task_duration_seconds",
				Help:    "Task duration in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),

		TracksWritten: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spinlist_tracks_written",
				Help: "Tracks written to the playlist by the last run of a task",
			},
			[]string{"task"},
		),

		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "spinlist_last_run_timestamp_seconds",
				Help: "Unix timestamp of the last finished run",
			},
		),

		TrackCacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "spinlist_track_cache_entries",
				Help: "Number of entries in the track cache",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveResolution counts one resolver outcome. Pass it to resolver.WithObserver.
func (m *Metrics) ObserveResolution(o resolver.Outcome) {
	m.ResolutionsTotal.WithLabelValues(string(o)).Inc()
}

// ObserveTask records a finished task. Pass it as tasks.EngineOpts.OnResult.
func (m *Metrics) ObserveTask(r tasks.TaskResult) {
	m.TasksTotal.WithLabelValues(string(r.Kind), string(r.Status())).Inc()
	m.TaskDuration.WithLabelValues(string(r.Kind)).Observe(r.Duration.Seconds())
	if r.Err == nil {
		m.TracksWritten.WithLabelValues(r.Task).Set(float64(r.TracksWritten))
	}
}

// ObserveRun stamps the end of a run.
func (m *Metrics) ObserveRun(s *tasks.RunSummary) {
	finished := s.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// SetCacheSize records the current track cache size.
func (m *Metrics) SetCacheSize(n int) {
	m.TrackCacheEntries.Set(float64(n))
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is written to a temporary name and renamed, so collectors never read a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
