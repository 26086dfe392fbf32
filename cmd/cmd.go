// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write the example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path to write",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// storeCommand handles model store operations
func storeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Read and write the persisted model",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the full model as JSON",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.StoreGet,
			},
			{
				Name:  "set",
				Usage: "Replace a singleton (setting, view) or upsert records (feeds, items)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "table",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON document, or an array of records for feeds and items",
						Required: true,
					},
				},
				Action: r.StoreSet,
			},
			{
				Name:  "delete-feed",
				Usage: "Delete a feed and every item that belongs to it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Feed URL",
						Required: true,
					},
				},
				Action: r.StoreDeleteFeed,
			},
			{
				Name:  "destroy",
				Usage: "Remove every record from every table",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the destroy",
					},
				},
				Action: r.StoreDestroy,
			},
			{
				Name:  "export",
				Usage: "Export feeds and items to CSV, Markdown or text",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md or txt",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (directory for md)",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download feed images next to the Markdown export",
					},
				},
				Action: r.StoreExport,
			},
		},
	}
}

// playCommand plays a single URL headless
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play an audio URL or file until it ends",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "url",
			},
		},
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:  "seek",
				Usage: "Start position in seconds (negative for none)",
				Value: -1,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playback rate",
				Value: 1,
			},
			&cli.FloatFlag{
				Name:  "volume",
				Usage: "Volume from 0 to 1",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "muted",
				Usage: "Start muted",
			},
			&cli.BoolFlag{
				Name:  "console",
				Usage: "Read transport commands from an interactive prompt",
			},
		},
		Action: r.Play,
	}
}

// serveCommand runs the HTTP control server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve player commands, events and the model over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (defaults to server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive playback.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for browsing and playing episodes",
		Action:  r.TUI,
	}
}
