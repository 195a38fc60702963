package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/pipeline"
	"github.com/desertthunder/spinlist/internal/shared"
)

// Evaluator produces the song list for a pipeline tree.
type Evaluator interface {
	Evaluate(ctx context.Context, p pipeline.Pipe) ([]models.Song, error)
}

// Resolver maps raw tracks to track URIs, dropping the ones it cannot find.
type Resolver interface {
	ResolveAll(ctx context.Context, tracks []models.RawTrack) ([]string, error)
}

// FeedSource returns a station's recently played tracks.
type FeedSource interface {
	RecentTracks(ctx context.Context) ([]models.RawTrack, error)
}

// RunRecorder persists task outcomes.
type RunRecorder interface {
	Create(ctx context.Context, run *models.TaskRun) error
}

// TaskResult is the outcome of one task.
type TaskResult struct {
	Task          string
	Kind          models.TaskKind
	PlaylistID    string
	TracksWritten int
	StartedAt     time.Time
	Duration      time.Duration
	Err           error
}

// Status maps the result to a [models.TaskStatus].
func (r TaskResult) Status() models.TaskStatus {
	if r.Err != nil {
		return models.TaskFailed
	}
	return models.TaskSucceeded
}

// RunSummary aggregates the results of [Engine.RunAll].
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []TaskResult
}

// Succeeded counts tasks that finished without error.
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts tasks that returned an error.
func (s *RunSummary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Err joins the errors of all failed tasks, prefixed with the task name. Nil when every task succeeded.
func (s *RunSummary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", r.Kind, r.Task, r.Err))
		}
	}
	return errors.Join(errs...)
}

// EngineOpts wires an [Engine] to its collaborators. Only the ones a task needs must be set.
type EngineOpts struct {
	Evaluator Evaluator
	Resolver  Resolver
	Sink      Sink
	Feeds     func(models.StationConfig) FeedSource
	Runs      RunRecorder
	Logger    *log.Logger
	Now       func() time.Time
	OnResult  func(TaskResult)
}

// Engine runs pipeline and station tasks.
type Engine struct {
	evaluator Evaluator
	resolver  Resolver
	sink      Sink
	feeds     func(models.StationConfig) FeedSource
	runs      RunRecorder
	logger    *log.Logger
	now       func() time.Time
	onResult  func(TaskResult)
}

// NewEngine creates an [Engine] from opts.
func NewEngine(opts EngineOpts) *Engine {
	e := &Engine{
		evaluator: opts.Evaluator,
		resolver:  opts.Resolver,
		sink:      opts.Sink,
		feeds:     opts.Feeds,
		runs:      opts.Runs,
		logger:    opts.Logger,
		now:       opts.Now,
		onResult:  opts.OnResult,
	}
	if e.logger == nil {
		e.logger = shared.DiscardLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.onResult == nil {
		e.onResult = func(TaskResult) {}
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// RunPipeline evaluates cfg and writes the songs to its target playlist.
func (e *Engine) RunPipeline(ctx context.Context, cfg pipeline.PipelineConfig, progress chan<- ProgressUpdate) (int, error) {
	if e.evaluator == nil || e.sink == nil {
		return 0, fmt.Errorf("%w: pipeline tasks need an evaluator and a sink", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, evaluateUpdate(cfg.Name))
	songs, err := e.evaluator.Evaluate(ctx, cfg.Root)
	if err != nil {
		return 0, fmt.Errorf("evaluate: %w", err)
	}

	uris := models.SongIDs(songs)
	if err := e.write(ctx, cfg.Name, cfg.TargetPlaylistID, cfg.DescriptionPrefix, uris, progress); err != nil {
		return 0, err
	}
	return len(uris), nil
}

// RefreshStation resolves the station's feed and writes the found tracks to its playlist.
func (e *Engine) RefreshStation(ctx context.Context, cfg models.StationConfig, progress chan<- ProgressUpdate) (int, error) {
	if e.feeds == nil || e.resolver == nil || e.sink == nil {
		return 0, fmt.Errorf("%w: station tasks need a feed source, a resolver and a sink", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchFeedUpdate(cfg.Name, cfg.FeedURL))
	tracks, err := e.feeds(cfg).RecentTracks(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}
	if cfg.Dedup {
		tracks = models.UniqueTracks(tracks)
	}

	e.sendProgress(progress, resolveTracksUpdate(cfg.Name, tracks))
	uris, err := e.resolver.ResolveAll(ctx, tracks)
	if err != nil {
		return 0, fmt.Errorf("resolve: %w", err)
	}

	if err := e.write(ctx, cfg.Name, cfg.PlaylistID, cfg.DescriptionPrefix, uris, progress); err != nil {
		return 0, err
	}
	return len(uris), nil
}

// write replaces the playlist with uris and stamps its description. An empty result leaves the playlist untouched.
func (e *Engine) write(ctx context.Context, task, playlistID, prefix string, uris []string, progress chan<- ProgressUpdate) error {
	if len(uris) == 0 {
		e.logger.Info("no tracks to write, leaving playlist untouched", "task", task, "playlist", playlistID)
		return nil
	}

	e.sendProgress(progress, writeItemsUpdate(task, playlistID, len(uris)))
	if err := WritePlaylist(ctx, e.sink, playlistID, uris); err != nil {
		return err
	}

	if prefix == "" {
		return nil
	}

	desc := Description(prefix, e.now().Format("2006-01-02"))
	e.sendProgress(progress, setDescriptionUpdate(task, desc))
	if err := e.sink.SetDescription(ctx, playlistID, desc); err != nil {
		return &SinkError{PlaylistID: playlistID, Op: "describe", Err: err}
	}
	return nil
}

// RunAll runs every pipeline and then every station, in order.
//
// Each task's failure is recorded in the summary and does not stop the remaining tasks.
// Once ctx is done the remaining tasks are marked failed without running.
func (e *Engine) RunAll(ctx context.Context, pipelines []pipeline.PipelineConfig, stations []models.StationConfig, progress chan<- ProgressUpdate) *RunSummary {
	summary := &RunSummary{
		RunID:     shared.GenerateID(),
		StartedAt: e.now(),
		Results:   make([]TaskResult, 0, len(pipelines)+len(stations)),
	}
	total := len(pipelines) + len(stations)

	for _, p := range pipelines {
		res := e.runTask(ctx, summary.RunID, p.Name, models.PipelineTask, p.TargetPlaylistID, func(ctx context.Context) (int, error) {
			return e.RunPipeline(ctx, p, progress)
		})
		summary.Results = append(summary.Results, res)
		e.sendProgress(progress, taskDoneUpdate(len(summary.Results), total, res))
	}

	for _, s := range stations {
		res := e.runTask(ctx, summary.RunID, s.Name, models.StationTask, s.PlaylistID, func(ctx context.Context) (int, error) {
			return e.RefreshStation(ctx, s, progress)
		})
		summary.Results = append(summary.Results, res)
		e.sendProgress(progress, taskDoneUpdate(len(summary.Results), total, res))
	}

	summary.FinishedAt = e.now()
	e.logger.Info("run finished", "run", summary.RunID, "succeeded", summary.Succeeded(), "failed", summary.Failed(),
		"took", shared.FormatDuration(summary.FinishedAt.Sub(summary.StartedAt)))
	return summary
}

// runTask executes fn as one isolated task, logging and recording its outcome.
func (e *Engine) runTask(ctx context.Context, runID, name string, kind models.TaskKind, playlistID string, fn func(context.Context) (int, error)) TaskResult {
	logger := shared.WithLogger(e.logger, "task", name, "kind", kind, "run", runID)
	res := TaskResult{Task: name, Kind: kind, PlaylistID: playlistID, StartedAt: e.now()}

	if err := ctx.Err(); err != nil {
		res.Err = err
	} else {
		logger.Info("task started", "playlist", playlistID)
		res.TracksWritten, res.Err = fn(ctx)
	}
	res.Duration = e.now().Sub(res.StartedAt)

	if res.Err != nil {
		logger.Error("task failed", "error", res.Err, "took", shared.FormatDuration(res.Duration))
	} else {
		logger.Info("task finished", "tracks", res.TracksWritten, "took", shared.FormatDuration(res.Duration))
	}

	e.record(ctx, logger, runID, res)
	e.onResult(res)
	return res
}

func (e *Engine) record(ctx context.Context, logger *log.Logger, runID string, res TaskResult) {
	if e.runs == nil {
		return
	}

	run := &models.TaskRun{
		RunID:         runID,
		Task:          res.Task,
		Kind:          res.Kind,
		PlaylistID:    res.PlaylistID,
		TracksWritten: res.TracksWritten,
		Status:        res.Status(),
		StartedAt:     res.StartedAt,
		FinishedAt:    res.StartedAt.Add(res.Duration),
	}
	if res.Err != nil {
		run.ErrorMessage = res.Err.Error()
	}

	if err := e.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record task run", "error", err)
	}
}
