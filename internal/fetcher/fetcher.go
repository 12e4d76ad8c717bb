// package fetcher downloads the audio track of a remote video with yt-dlp.
package fetcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/semaphore"

	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

const (
	defaultExecutable  = "yt-dlp"
	defaultAudioFormat = "mp3"
	watchURLPrefix     = "https://youtube.com/watch?v="
	outputTemplate     = "%(title)s.%(ext)s"
)

// Options configures the external download tool.
type Options struct {
	Executable  string
	AudioFormat string
	Timeout     time.Duration // Upper bound of a single download, zero disables it
}

// OptionsFromConfig maps the downloader and library sections of the configuration.
func OptionsFromConfig(cfg *shared.Config) Options {
	return Options{
		Executable:  cfg.Downloader.YtdlpPath,
		AudioFormat: cfg.Library.AudioFormat,
		Timeout:     cfg.Downloader.Timeout,
	}
}

// Fetcher runs one yt-dlp process at a time, whatever the number of callers.
type Fetcher struct {
	opts   Options
	sem    *semaphore.Weighted
	logger *log.Logger
}

// New creates a [Fetcher].
func New(opts Options, logger *log.Logger) *Fetcher {
	if opts.Executable == "" {
		opts.Executable = defaultExecutable
	}
	opts.AudioFormat = strings.TrimPrefix(opts.AudioFormat, ".")
	if opts.AudioFormat == "" {
		opts.AudioFormat = defaultAudioFormat
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Fetcher{opts: opts, sem: semaphore.NewWeighted(1), logger: logger}
}

// WatchURL returns the public page of a video.
func WatchURL(remoteID string) string {
	return watchURLPrefix + remoteID
}

// Fetch downloads the audio of remoteID into folder as "<title>.<format>".
//
// It returns once the process exits cleanly. A launch failure, a non-zero exit or the
// expiry of the timeout is reported as [shared.ErrDownload]. Fetch never retries.
func (f *Fetcher) Fetch(ctx context.Context, remoteID, folder string) error {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrDownload, remoteID, err)
	}
	defer f.sem.Release(1)

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	dl := ytdlp.New().
		SetExecutable(f.opts.Executable).
		ExtractAudio().
		AudioFormat(f.opts.AudioFormat).
		Output(filepath.Join(folder, outputTemplate))

	f.logger.Debug("Downloading", "id", remoteID, "folder", folder)
	started := time.Now()

	result, err := dl.Run(ctx, WatchURL(remoteID))
	if result != nil {
		if out := strings.TrimSpace(result.Stdout); out != "" {
			f.logger.Debug(out, "id", remoteID)
		}
		if errOut := strings.TrimSpace(result.Stderr); errOut != "" {
			f.logger.Error(errOut, "id", remoteID)
		}
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s: %w", shared.ErrDownload, remoteID, ctxErr)
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrDownload, remoteID, err)
	}

	f.logger.Debug("Downloaded", "id", remoteID, "took", time.Since(started).Round(time.Millisecond))
	return nil
}
