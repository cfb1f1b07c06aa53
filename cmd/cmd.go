// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that reads config.toml.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for database, credentials, and the
// mirror browser session.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:    "credentials",
				Aliases: []string{"creds"},
				Usage:   "Configure Spotify credentials and download directory",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "client-id",
						Usage: "Spotify client ID (skips the interactive wizard)",
					},
					&cli.StringFlag{
						Name:  "client-secret",
						Usage: "Spotify client secret (skips the interactive wizard)",
					},
					&cli.StringFlag{
						Name:  "output-dir",
						Usage: "Download directory",
					},
				},
				Action: r.SetupCredentials,
			},
			{
				Name:  "session",
				Usage: "Import mirror session cookies from a browser cURL command",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SetupSession,
			},
		},
	}
}

// spotifyCommand handles Spotify catalog operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "playlist",
				Usage: "Show playlist metadata",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID, share URL, or URI",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SpotifyPlaylist,
			},
			{
				Name:  "export",
				Usage: "Export playlist tracks to CSV or stdout",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID, share URL, or URI",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Base path for CSV + metadata files",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SpotifyExport,
			},
		},
	}
}

// syncCommand handles the download pipeline
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Download playlist tracks through the mirror",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run full playlist sync",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Playlist ID, share URL, or URI",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Process at most N tracks",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Plan only: list what would be downloaded",
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "track",
				Usage: "Download a single store link",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "url",
					},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.SyncTrack,
			},
		},
	}
}

// historyCommand inspects the download history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Download history operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List completed downloads",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "export",
				Usage: "Export the history to CSV or Markdown",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv or md",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.HistoryExport,
			},
		},
	}
}
