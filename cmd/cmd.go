// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles first-time setup of the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recently applied migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// runCommand runs every configured task.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run all pipelines and station refreshes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-textfile",
				Usage: "Write Prometheus metrics to this file (overrides metrics.textfile)",
			},
		},
		Action: r.RunAll,
	}
}

// pipelinesCommand handles pipeline tasks
func pipelinesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "pipelines",
		Aliases: []string{"pl"},
		Usage:   "Inspect and run playlist pipelines",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List configured pipelines",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PipelinesList,
			},
			{
				Name:      "run",
				Usage:     "Run the named pipelines and write their playlists",
				ArgsUsage: "NAME [NAME...]",
				Action:    r.PipelinesRun,
			},
			{
				Name:  "preview",
				Usage: "Evaluate a pipeline and print the songs without writing",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "name",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: json, csv, markdown, txt",
						Value:   "txt",
					},
				},
				Action: r.PipelinesPreview,
			},
			{
				Name:      "export",
				Usage:     "Evaluate pipelines and save the songs to files",
				ArgsUsage: "[NAME...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: spinlist_export_{epoch})",
					},
				},
				Action: r.PipelinesExport,
			},
		},
	}
}

// stationsCommand handles station refresh tasks
func stationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stations",
		Usage: "Refresh playlists from station feeds",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List configured stations",
				Action: r.StationsList,
			},
			{
				Name:      "refresh",
				Usage:     "Refresh the named stations, or all of them",
				ArgsUsage: "[NAME...]",
				Action:    r.StationsRefresh,
			},
		},
	}
}

// cacheCommand handles the track cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the track cache",
		Commands: []*cli.Command{
			{
				Name:   "size",
				Usage:  "Print the number of cached tracks",
				Action: r.CacheSize,
			},
			{
				Name:  "clear",
				Usage: "Delete every cached track",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm deletion",
					},
				},
				Action: r.CacheClear,
			},
			{
				Name:  "lookup",
				Usage: "Look up a cached track by exact artist and title",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Artist exactly as scraped",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Title exactly as scraped",
						Required: true,
					},
				},
				Action: r.CacheLookup,
			},
			{
				Name:  "list",
				Usage: "List cached tracks, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
		},
	}
}

// resolveCommand resolves a single raw track
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve an artist and title to a Spotify track URI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "artist",
				Usage:    "Artist name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "title",
				Usage:    "Track title",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Resolver strategy: first_hit or best_match (overrides resolver.strategy)",
			},
		},
		Action: r.Resolve,
	}
}

// historyCommand lists recorded task runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent task runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "task",
				Usage: "Only show runs of this task",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs",
				Value: 20,
			},
		},
		Action: r.History,
	}
}
