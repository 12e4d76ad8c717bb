package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Logger:   logger,
		EnvFiles: []string{".env"},
	})

	app := &cli.Command{
		Name:     "ytsync",
		Usage:    "Mirror YouTube playlists into a local music library",
		Version:  "1.0.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("ytsync failed", "error", err)
		stop()
		os.Exit(1)
	}
}
