// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// serveCommand runs the HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the OAuth and proxy HTTP server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the login page in the default browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml with a generated session secret",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "sessions",
				Usage:  "Create the session directory",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupSessions,
			},
		},
	}
}

// configCommand inspects the effective configuration
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration inspection",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration with secrets redacted",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON instead of TOML",
					},
				},
				Action: r.ConfigShow,
			},
		},
	}
}

// sessionsCommand maintains the session directory
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Session store maintenance",
		Commands: []*cli.Command{
			{
				Name:   "prune",
				Usage:  "Delete session files older than the cookie max age",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SessionsPrune,
			},
		},
	}
}
