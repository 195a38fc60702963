package main

import (
	"cmp"
	"context"
	"fmt"

	"github.com/desertthunder/spinlist/internal/formatter"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/pipeline"
	"github.com/desertthunder/spinlist/internal/repositories"
	"github.com/desertthunder/spinlist/internal/shared"
	"github.com/desertthunder/spinlist/internal/tasks"
	"github.com/desertthunder/spinlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// RunAll runs every configured pipeline and station refresh.
func (r *Runner) RunAll(ctx context.Context, cmd *cli.Command) error {
	pipelines, err := r.pipelines()
	if err != nil {
		return err
	}
	stations, err := r.stations()
	if err != nil {
		return err
	}
	if len(pipelines)+len(stations) == 0 {
		return fmt.Errorf("%w: no pipelines or stations in %s", shared.ErrMissingConfig, r.configPath)
	}

	return r.runTasks(ctx, pipelines, stations, cmp.Or(cmd.String("metrics-textfile"), r.cfg().Metrics.Textfile))
}

// runTasks runs the given tasks, prints the summary and optionally writes metrics.
func (r *Runner) runTasks(ctx context.Context, pipelines []pipeline.PipelineConfig, stations []models.StationConfig, metricsPath string) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("starting run", "pipelines", len(pipelines), "stations", len(stations))

	progress, wait := r.watchProgress()
	summary := engine.RunAll(ctx, pipelines, stations, progress)
	wait()

	if err := r.writePlain("\n%s", ui.RenderSummary(summary)); err != nil {
		return err
	}

	if metricsPath != "" {
		if err := r.exportMetrics(ctx, summary, metricsPath); err != nil {
			r.logger.Error("failed to write metrics", "path", metricsPath, "error", err)
		}
	}

	return summary.Err()
}

func (r *Runner) exportMetrics(ctx context.Context, summary *tasks.RunSummary, path string) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	size, err := repositories.NewTrackCacheRepository(db).Size(ctx)
	if err != nil {
		return err
	}

	r.metrics.SetCacheSize(size)
	r.metrics.ObserveRun(summary)
	if err := r.metrics.WriteTextfile(path); err != nil {
		return err
	}

	r.logger.Debug("metrics written", "path", path)
	return nil
}

// watchProgress prints task progress until the returned wait func is called.
//
// wait closes the channel and blocks until every queued update is printed.
func (r *Runner) watchProgress() (chan tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.TaskDone, tasks.ExportPlaylist:
				r.writePlain("%s\n", update.Message)
			default:
				r.logger.Debug(update.Message, "task", update.Task, "phase", update.Phase)
			}
		}
	}()

	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

// PipelinesList prints the configured pipelines.
func (r *Runner) PipelinesList(ctx context.Context, cmd *cli.Command) error {
	pipelines, err := r.pipelines()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type entry struct {
			Name              string `json:"name"`
			TargetPlaylistID  string `json:"target_playlist_id"`
			DescriptionPrefix string `json:"description_prefix,omitempty"`
			Steps             string `json:"steps"`
		}

		entries := make([]entry, len(pipelines))
		for i, p := range pipelines {
			entries[i] = entry{p.Name, p.TargetPlaylistID, p.DescriptionPrefix, pipeline.Describe(p.Root)}
		}
		return r.writeJSON(entries, true)
	}

	return r.writePlain("%s", ui.RenderPipelines(pipelines))
}

// PipelinesRun runs the named pipelines.
func (r *Runner) PipelinesRun(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()
	if len(names) == 0 {
		return fmt.Errorf("%w: at least one pipeline name", shared.ErrMissingArgument)
	}

	pipelines, err := r.pipelines(names...)
	if err != nil {
		return err
	}
	return r.runTasks(ctx, pipelines, nil, r.cfg().Metrics.Textfile)
}

// PipelinesPreview evaluates a pipeline and prints its songs without touching the target playlist.
func (r *Runner) PipelinesPreview(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: pipeline name", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	pipelines, err := r.pipelines(name)
	if err != nil {
		return err
	}
	p := pipelines[0]

	spotify, err := r.spotifyClient(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("evaluating pipeline", "pipeline", p.Name, "steps", pipeline.Describe(p.Root))
	songs, err := r.newEvaluator(spotify).Evaluate(ctx, p.Root)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", p.Name, err)
	}

	return formatter.Write(r.output, &models.PlaylistSnapshot{
		Name:        p.Name,
		PlaylistID:  p.TargetPlaylistID,
		Description: pipeline.Describe(p.Root),
		Songs:       songs,
		GeneratedAt: r.now(),
	}, format)
}

// PipelinesExport evaluates pipelines and writes their songs to files.
func (r *Runner) PipelinesExport(ctx context.Context, cmd *cli.Command) error {
	pipelines, err := r.pipelines(cmd.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(pipelines) == 0 {
		return fmt.Errorf("%w: no pipelines to export", shared.ErrMissingConfig)
	}

	spotify, err := r.spotifyClient(ctx)
	if err != nil {
		return err
	}

	engine := tasks.NewEngine(tasks.EngineOpts{
		Evaluator: r.newEvaluator(spotify),
		Logger:    r.logger,
		Now:       r.now,
	})

	progress, wait := r.watchProgress()
	result, err := engine.BulkExport(ctx, progress, pipelines, tasks.BulkExportOpts{
		Format:    cmd.String("format"),
		OutputDir: cmd.String("output"),
	})
	wait()
	if err != nil {
		return err
	}

	r.writePlain("\nExported %d/%d pipelines to %s\n", result.SuccessfulExports, result.TotalPipelines, result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d pipeline exports failed", result.FailedExports, result.TotalPipelines)
	}
	return nil
}

// StationsList prints the configured stations.
func (r *Runner) StationsList(ctx context.Context, cmd *cli.Command) error {
	stations, err := r.stations()
	if err != nil {
		return err
	}
	return r.writePlain("%s", ui.RenderStations(stations))
}

// StationsRefresh refreshes the named stations, or every configured station.
func (r *Runner) StationsRefresh(ctx context.Context, cmd *cli.Command) error {
	stations, err := r.stations(cmd.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(stations) == 0 {
		return fmt.Errorf("%w: no stations in %s", shared.ErrMissingConfig, r.configPath)
	}

	return r.runTasks(ctx, nil, stations, r.cfg().Metrics.Textfile)
}
