package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"

	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
	"github.com/ThomasLachaux/youtube-synchronize/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Configuration is resolved per command from its --config flag, the env files and the environment.
type Runner struct {
	logger         *log.Logger
	output         io.Writer
	httpClient     *http.Client
	envFiles       []string
	catalogOptions []option.ClientOption
	palette        *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger         *log.Logger
	Output         io.Writer
	HTTPClient     *http.Client          // Used for healthcheck pings
	EnvFiles       []string              // Dotenv files loaded before the environment is read
	CatalogOptions []option.ClientOption // Extra options of the YouTube Data API client
	Palette        *ui.Palette
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Palette == nil {
		opts.Palette = ui.Styles
	}

	return &Runner{
		logger:         opts.Logger,
		output:         opts.Output,
		httpClient:     opts.HTTPClient,
		envFiles:       opts.EnvFiles,
		catalogOptions: opts.CatalogOptions,
		palette:        opts.Palette,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, planCommand, historyCommand, setupCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration of the running command.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults and environment", "path", path)
	}
	return shared.Resolve(path, r.envFiles...)
}

func (r *Runner) setVerbosity(cmd *cli.Command) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
