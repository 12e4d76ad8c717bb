// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/ThomasLachaux/youtube-synchronize/internal/formatter"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable debug logging",
	}
}

func summaryFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "summary",
		Aliases: []string{"s"},
		Usage:   "Summary format (" + strings.Join(formatter.SummaryFormats, ", ") + ")",
		Value:   formatter.FormatText,
	}
}

// syncCommand runs a full synchronization of every configured playlist
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize every configured playlist into the music directory",
		Flags: []cli.Flag{
			configFlag(),
			summaryFlag(),
			verboseFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print what would change without downloading, renaming or saving",
			},
		},
		Action: r.Sync,
	}
}

// planCommand previews the changes of a single playlist
func planCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show what a sync would do for one playlist",
		Flags: []cli.Flag{
			configFlag(),
			summaryFlag(),
			verboseFlag(),
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Playlist ID to inspect",
				Required: true,
			},
		},
		Action: r.Plan,
	}
}

// historyCommand lists the most recent runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent synchronization runs",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of runs to show",
				Value:   10,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (" + strings.Join(formatter.HistoryFormats, ", ") + ")",
				Value:   formatter.FormatText,
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for the run history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the run history database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// configCommand creates and checks configuration files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a configuration file with the default settings",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
			{
				Name:   "check",
				Usage:  "Validate the effective configuration (file and environment)",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigCheck,
			},
		},
	}
}
