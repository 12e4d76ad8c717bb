// package library maps playlist titles to audio files on disk.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

// DefaultAudioFormat is the extension used when none is configured.
const DefaultAudioFormat = "mp3"

// slashReplacement is the character the download tool substitutes for "/" in titles.
const slashReplacement = "⧸"

// Inventory lists and renames the audio files stored under <root>/<slug>/.
type Inventory struct {
	root   string
	ext    string
	logger *log.Logger
}

// NewInventory creates an inventory of the music root for files of the given audio format.
func NewInventory(root, audioFormat string, logger *log.Logger) *Inventory {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	format := strings.TrimPrefix(strings.TrimSpace(audioFormat), ".")
	if format == "" {
		format = DefaultAudioFormat
	}
	return &Inventory{root: root, ext: "." + format, logger: logger}
}

// StoredName returns the file name of a title without its extension, as the download tool writes it.
func StoredName(title string) string {
	return strings.ReplaceAll(title, "/", slashReplacement)
}

// FileName returns the file name a title is stored under.
func (i *Inventory) FileName(title string) string {
	return StoredName(title) + i.ext
}

// Path returns the folder holding the files of a playlist.
func (i *Inventory) Path(slug string) string {
	return filepath.Join(i.root, slug)
}

// ListStoredTitles returns the stored names found in the playlist folder, extension stripped.
// A missing folder holds no titles.
func (i *Inventory) ListStoredTitles(slug string) (map[string]struct{}, error) {
	titles := make(map[string]struct{})

	entries, err := os.ReadDir(i.Path(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return titles, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", i.Path(slug), err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, i.ext) {
			continue
		}
		titles[strings.TrimSuffix(name, i.ext)] = struct{}{}
	}
	return titles, nil
}

// Move is the rename of one stored title to another.
type Move struct {
	From string
	To   string
}

type step struct {
	src string
	dst string
}

// Rename moves the files of a batch of titles inside the playlist folder.
//
// Every source must exist and a target may only be occupied by another source of the batch, so
// chains and swaps are allowed. Files are first parked under hidden temporary names and then moved
// to their targets. On failure the moves already applied are undone.
func (i *Inventory) Rename(slug string, moves ...Move) error {
	dir := i.Path(slug)

	var pending []Move
	sources := make(map[string]struct{}, len(moves))
	targets := make(map[string]string, len(moves))
	for _, m := range moves {
		src := i.FileName(m.From)
		dst := i.FileName(m.To)
		if src == dst {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, src)); err != nil {
			return fmt.Errorf("%w: %s: source is missing: %v", shared.ErrRename, filepath.Join(dir, src), err)
		}
		if _, ok := sources[src]; ok {
			return fmt.Errorf("%w: %s: renamed twice", shared.ErrRename, filepath.Join(dir, src))
		}
		if other, ok := targets[dst]; ok {
			return fmt.Errorf("%w: %s: target of both %q and %q", shared.ErrRename, filepath.Join(dir, dst), other, m.From)
		}
		sources[src] = struct{}{}
		targets[dst] = m.From
		pending = append(pending, m)
	}

	for _, m := range pending {
		dst := i.FileName(m.To)
		if _, ok := sources[dst]; ok {
			continue
		}
		if _, err := os.Lstat(filepath.Join(dir, dst)); err == nil {
			return fmt.Errorf("%w: %s: target already exists", shared.ErrRename, filepath.Join(dir, dst))
		}
	}
	if len(pending) == 0 {
		return nil
	}

	var done []step
	move := func(src, dst string) error {
		if err := os.Rename(src, dst); err != nil {
			return err
		}
		done = append(done, step{src: src, dst: dst})
		return nil
	}
	undo := func() {
		for j := len(done) - 1; j >= 0; j-- {
			if err := os.Rename(done[j].dst, done[j].src); err != nil {
				i.logger.Error("Failed to undo rename", "from", done[j].dst, "to", done[j].src, "error", err)
			}
		}
	}

	parked := make([]string, len(pending))
	for n, m := range pending {
		parked[n] = filepath.Join(dir, "."+shared.GenerateID()+".rename")
		if err := move(filepath.Join(dir, i.FileName(m.From)), parked[n]); err != nil {
			undo()
			return fmt.Errorf("%w: %v", shared.ErrRename, err)
		}
	}
	for n, m := range pending {
		i.logger.Info("Rename", "slug", slug, "from", m.From, "to", m.To)
		if err := move(parked[n], filepath.Join(dir, i.FileName(m.To))); err != nil {
			undo()
			return fmt.Errorf("%w: %v", shared.ErrRename, err)
		}
	}
	return nil
}
