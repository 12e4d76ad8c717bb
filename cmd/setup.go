package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/ThomasLachaux/youtube-synchronize/internal/formatter"
	"github.com/ThomasLachaux/youtube-synchronize/internal/repositories"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// History lists the most recent runs recorded in the history database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if !slices.Contains(formatter.HistoryFormats, format) {
		return fmt.Errorf("%w: unknown history format %q", shared.ErrInvalidArgument, format)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.OpenHistory(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	return formatter.WriteHistory(r.output, runs, format, r.palette)
}

// ConfigInit writes the default configuration file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return nil
}

// ConfigCheck validates the effective configuration without touching the network or the library.
func (r *Runner) ConfigCheck(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	return r.writePlain("%s %d playlist(s) into %s (orphans: %s, duplicates: %s)\n",
		r.palette.OK("Configuration is valid:"), len(config.YouTube.Playlists), config.Library.MusicDirectory,
		config.Policy.Orphans, config.Policy.Duplicates)
}
