package main

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ThomasLachaux/youtube-synchronize/internal/fetcher"
	"github.com/ThomasLachaux/youtube-synchronize/internal/formatter"
	"github.com/ThomasLachaux/youtube-synchronize/internal/library"
	"github.com/ThomasLachaux/youtube-synchronize/internal/repositories"
	"github.com/ThomasLachaux/youtube-synchronize/internal/services"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
	"github.com/ThomasLachaux/youtube-synchronize/internal/tasks"
)

type syncOpts struct {
	dryRun    bool
	playlists []string // Overrides the configured playlists when set
}

// Sync synchronizes every configured playlist.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	return r.sync(ctx, cmd, syncOpts{dryRun: cmd.Bool("dry-run")})
}

// Plan runs a dry run of a single playlist.
func (r *Runner) Plan(ctx context.Context, cmd *cli.Command) error {
	playlist := strings.TrimSpace(cmd.String("playlist"))
	if playlist == "" {
		return fmt.Errorf("%w: --playlist is empty", shared.ErrMissingArgument)
	}
	return r.sync(ctx, cmd, syncOpts{dryRun: true, playlists: []string{playlist}})
}

func (r *Runner) sync(ctx context.Context, cmd *cli.Command, opts syncOpts) error {
	r.setVerbosity(cmd)

	format := cmd.String("summary")
	if !slices.Contains(formatter.SummaryFormats, format) {
		return fmt.Errorf("%w: unknown summary format %q", shared.ErrInvalidArgument, format)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(opts.playlists) > 0 {
		config.YouTube.Playlists = opts.playlists
	}
	if err := config.Validate(); err != nil {
		return err
	}

	// Dry runs change nothing, so the monitor never hears about them.
	var health *services.HealthcheckService
	if !opts.dryRun {
		health = services.NewHealthcheckService(config.Healthcheck, r.httpClient, r.logger)
		if err := health.Start(ctx); err != nil {
			return err
		}
	}

	result, err := r.runEngine(ctx, config, opts.dryRun)
	if err != nil {
		if tasks.IsInterrupted(err) {
			r.logger.Warn("Run interrupted, the index of the current playlist was left untouched", "error", err)
		}
		if health != nil {
			health.Fail(context.WithoutCancel(ctx), err)
		}
		if result != nil {
			if werr := formatter.WriteSummary(r.output, result, format, r.palette); werr != nil {
				r.logger.Warn("failed to write summary", "error", werr)
			}
		}
		return err
	}

	if health != nil {
		if err := health.Success(ctx); err != nil {
			return err
		}
	}

	return formatter.WriteSummary(r.output, result, format, r.palette)
}

// runEngine wires the engine collaborators from config and runs every playlist.
func (r *Runner) runEngine(ctx context.Context, config *shared.Config, dryRun bool) (*tasks.RunResult, error) {
	catalog, err := services.NewCatalogService(ctx, services.CatalogOptionsFromConfig(config.YouTube), r.logger, r.catalogOptions...)
	if err != nil {
		return nil, err
	}

	opts := tasks.EngineOpts{
		Catalog:         catalog,
		Index:           repositories.NewIndexStore(config.Library.MusicDirectory, r.logger),
		Inventory:       library.NewInventory(config.Library.MusicDirectory, config.Library.AudioFormat, r.logger),
		Fetcher:         fetcher.New(fetcher.OptionsFromConfig(config), r.logger),
		Logger:          r.logger,
		OrphanPolicy:    config.Policy.Orphans,
		DuplicatePolicy: config.Policy.Duplicates,
		DownloadRetries: config.Downloader.Retries,
		DryRun:          dryRun,
	}

	if db := r.openHistory(config); db != nil {
		defer db.Close()
		opts.Recorder = repositories.NewRunRepository(db)
	}

	engine := tasks.NewPlaylistEngine(opts)
	progress := make(chan tasks.ProgressUpdate, 16)

	var g errgroup.Group
	g.Go(func() error {
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "playlist", update.Playlist, "step", update.Step, "total", update.Total)
		}
		return nil
	})

	result, err := engine.Run(ctx, config.YouTube.Playlists, progress)
	close(progress)
	_ = g.Wait()

	return result, err
}

// openHistory opens the run history. It is audit-only, so a failure disables it instead of the run.
func (r *Runner) openHistory(config *shared.Config) *sql.DB {
	if config.Database.Path == "" {
		return nil
	}
	db, err := shared.OpenHistory(config.Database)
	if err != nil {
		r.logger.Warn("Run history is unavailable", "path", config.Database.Path, "error", err)
		return nil
	}
	return db
}
