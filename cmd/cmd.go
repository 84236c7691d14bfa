// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json, csv)",
		Value:   "text",
	}
}

func statsFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "stats",
		Usage: "Print provider statistics after the run",
	}
}

func delayFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:  "delay",
		Usage: "Pause between artists (overrides import.artist_delay_ms)",
		Value: -1,
	}
}

// setupCommand handles setup operations for the configuration file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Action: r.SetupConfig,
			},
			{
				Name:   "migrations",
				Usage:  "List migrations and whether they are applied",
				Action: r.SetupMigrations,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// importCommand runs the orchestrator in the foreground.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import artists and releases from playlists",
		Commands: []*cli.Command{
			{
				Name:      "playlist",
				Usage:     "Import every artist on one playlist",
				ArgsUsage: "<url>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags:  []cli.Flag{formatFlag(), statsFlag(), delayFlag()},
				Action: r.ImportPlaylist,
			},
			{
				Name:      "batch",
				Usage:     "Import the union of artists on several playlists",
				ArgsUsage: "<url>...",
				Flags:     []cli.Flag{formatFlag(), statsFlag(), delayFlag()},
				Action:    r.ImportBatch,
			},
		},
	}
}

// refreshCommand re-syncs artists already in the catalog.
func refreshCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Refresh artists already in the catalog",
		Commands: []*cli.Command{
			{
				Name:   "all",
				Usage:  "Refresh every artist with a provider ID",
				Flags:  []cli.Flag{formatFlag(), statsFlag(), delayFlag()},
				Action: r.RefreshAll,
			},
			{
				Name:   "stale",
				Usage:  "Refresh artists not updated within import.stale_after_hours",
				Flags:  []cli.Flag{formatFlag(), statsFlag(), delayFlag()},
				Action: r.RefreshStale,
			},
			{
				Name:   "dates",
				Usage:  "Fill missing release dates from the fallback provider",
				Flags:  []cli.Flag{formatFlag(), statsFlag(), delayFlag()},
				Action: r.RefreshDates,
			},
		},
	}
}

// jobsCommand manages persisted import jobs and scheduled runs.
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Background import jobs",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Run an import as a tracked job and wait for it",
				ArgsUsage: "<url>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:  "created-by",
						Usage: "Recorded as the job's creator",
						Value: "cli",
					},
				},
				Action: r.JobsRun,
			},
			{
				Name:   "list",
				Usage:  "List import jobs, newest first",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.JobsList,
			},
			{
				Name:      "show",
				Usage:     "Show one import job",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{formatFlag()},
				Action: r.JobsShow,
			},
			{
				Name:  "logs",
				Usage: "List scheduled run logs",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of logs to show",
						Value: 20,
					},
				},
				Action: r.JobsLogs,
			},
			{
				Name:   "schedule",
				Usage:  "Run the scheduled playlist import once",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.JobsSchedule,
			},
		},
	}
}

// serveCommand starts the admin server, job runner and scheduler.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the admin HTTP server and the scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.host and server.port)",
			},
		},
		Action: r.Serve,
	}
}
