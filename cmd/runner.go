package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spinlist/internal/metrics"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/pipeline"
	"github.com/desertthunder/spinlist/internal/repositories"
	"github.com/desertthunder/spinlist/internal/resolver"
	"github.com/desertthunder/spinlist/internal/services"
	"github.com/desertthunder/spinlist/internal/shared"
	"github.com/desertthunder/spinlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SpotifyClient is everything the commands need from Spotify.
type SpotifyClient interface {
	pipeline.Loader
	resolver.Searcher
	tasks.Sink
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Config, database and Spotify client are created on first use unless injected through [RunnerOpts].
type Runner struct {
	configPath string
	config     *shared.Config
	spotify    SpotifyClient
	db         *sql.DB
	ownsDB     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	metrics    *metrics.Metrics
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	Spotify    SpotifyClient
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		spotify:    opts.Spotify,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		metrics:    metrics.New(),
		now:        opts.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, runCommand, pipelinesCommand, stationsCommand, cacheCommand, resolveCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration and applies logging settings ahead of every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		path := cmd.String("config")
		if path == "" {
			path = r.configPath
		}
		r.configPath = path

		config, err := shared.LoadConfig(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			r.logger.Debug("config file not found, using defaults", "path", path)
			config = shared.DefaultConfig()
		case err != nil:
			return ctx, err
		}

		if err := config.LoadEnv(cmd.String("env")); err != nil {
			return ctx, err
		}
		r.config = config

		logger, err := shared.NewLoggerFromConfig(config.Logging)
		if err != nil {
			return ctx, err
		}
		r.logger = logger
	}

	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// After closes the database when the runner opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// database opens the configured database and runs pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.ownsDB = true
	return db, nil
}

func (r *Runner) spotifyClient(ctx context.Context) (SpotifyClient, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	sp := r.cfg().Credentials.Spotify
	svc, err := services.NewSpotifyService(ctx, services.SpotifyOpts{
		ClientID:          sp.ClientID,
		ClientSecret:      sp.ClientSecret,
		RefreshToken:      sp.RefreshToken,
		Market:            sp.Market,
		RequestsPerSecond: sp.RequestsPerSecond,
		Timeout:           time.Duration(sp.TimeoutSeconds) * time.Second,
		Logger:            shared.WithLogger(r.logger, "service", "spotify"),
	})
	if err != nil {
		return nil, err
	}
	r.spotify = svc
	return svc, nil
}

func (r *Runner) newResolver(searcher resolver.Searcher, cache resolver.Cache) (*resolver.Resolver, error) {
	rc := r.cfg().Resolver
	strategy, err := resolver.ParseStrategy(rc.Strategy)
	if err != nil {
		return nil, err
	}

	return resolver.New(searcher, cache,
		resolver.WithStrategy(strategy),
		resolver.WithSearchLimit(rc.SearchLimit),
		resolver.WithBackoff(time.Duration(rc.RetryBackoffMS)*time.Millisecond),
		resolver.WithLogger(shared.WithLogger(r.logger, "component", "resolver")),
		resolver.WithObserver(r.metrics.ObserveResolution),
	), nil
}

func (r *Runner) newEvaluator(loader pipeline.Loader) *pipeline.Evaluator {
	return pipeline.NewEvaluator(loader, pipeline.WithLogger(shared.WithLogger(r.logger, "component", "pipeline")))
}

// engine wires a task engine to Spotify, the track cache and the task history.
func (r *Runner) engine(ctx context.Context) (*tasks.Engine, error) {
	spotify, err := r.spotifyClient(ctx)
	if err != nil {
		return nil, err
	}
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	res, err := r.newResolver(spotify, repositories.NewTrackCacheRepository(db))
	if err != nil {
		return nil, err
	}

	return tasks.NewEngine(tasks.EngineOpts{
		Evaluator: r.newEvaluator(spotify),
		Resolver:  res,
		Sink:      spotify,
		Feeds: func(s models.StationConfig) tasks.FeedSource {
			return services.NewFeedSource(s.FeedURL, r.httpClient, shared.WithLogger(r.logger, "station", s.Name))
		},
		Runs:     repositories.NewTaskRunRepository(db),
		Logger:   r.logger,
		Now:      r.now,
		OnResult: r.metrics.ObserveTask,
	}), nil
}

// pipelines parses the named pipeline definitions, or all of them when names is empty.
func (r *Runner) pipelines(names ...string) ([]pipeline.PipelineConfig, error) {
	defs := r.cfg().Pipelines
	if len(names) > 0 {
		defs = make([]shared.PipelineDef, 0, len(names))
		for _, name := range names {
			def, ok := r.cfg().Pipeline(name)
			if !ok {
				return nil, fmt.Errorf("%w: no pipeline named %q", shared.ErrInvalidArgument, name)
			}
			defs = append(defs, def)
		}
	}

	configs := make([]pipeline.PipelineConfig, 0, len(defs))
	for _, def := range defs {
		cfg, err := pipeline.ParsePipeline(def)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// stations returns the named station definitions, or all of them when names is empty.
func (r *Runner) stations(names ...string) ([]models.StationConfig, error) {
	defs := r.cfg().Stations
	if len(names) > 0 {
		defs = make([]shared.StationDef, 0, len(names))
		for _, name := range names {
			def, ok := r.cfg().Station(name)
			if !ok {
				return nil, fmt.Errorf("%w: no station named %q", shared.ErrInvalidArgument, name)
			}
			defs = append(defs, def)
		}
	}

	configs := make([]models.StationConfig, len(defs))
	for i, def := range defs {
		configs[i] = models.StationConfig{
			Name:              def.Name,
			FeedURL:           def.FeedURL,
			PlaylistID:        def.PlaylistID,
			DescriptionPrefix: def.DescriptionPrefix,
			Dedup:             def.Dedup,
		}
	}
	return configs, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
