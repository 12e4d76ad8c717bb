package repositories

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

// IndexStore persists one JSON index per playlist at <dir>/<slug>.json.
type IndexStore struct {
	dir    string
	logger *log.Logger
}

// NewIndexStore creates a new [IndexStore] rooted at the music directory.
func NewIndexStore(dir string, logger *log.Logger) *IndexStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &IndexStore{dir: dir, logger: logger}
}

// Path returns the location of the index file for slug.
func (s *IndexStore) Path(slug string) string {
	return filepath.Join(s.dir, slug+".json")
}

// Load reads the stored index of a playlist. A missing file is an empty index.
//
// Both the item form [{"id": ..., "title": ...}] and the legacy flat form ["id", ...] are
// accepted. Legacy entries come back with an empty title.
func (s *IndexStore) Load(slug string) (models.PlaylistIndex, error) {
	path := s.Path(slug)
	s.logger.Info("Load playlist", "slug", slug)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.PlaylistIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", shared.ErrPersistence, path, err)
	}

	s.logger.Debug("Load index file", "path", path)
	index, err := decodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", shared.ErrPersistence, path, err)
	}
	return index, nil
}

func decodeIndex(data []byte) (models.PlaylistIndex, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	index := make(models.PlaylistIndex, 0, len(raw))
	for i, entry := range raw {
		entry = bytes.TrimSpace(entry)
		if len(entry) > 0 && entry[0] == '"' {
			var id string
			if err := json.Unmarshal(entry, &id); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			index = append(index, models.PlaylistItem{ID: id})
			continue
		}

		var item models.PlaylistItem
		if err := json.Unmarshal(entry, &item); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if item.ID == "" {
			return nil, fmt.Errorf("entry %d: missing id", i)
		}
		index = append(index, item)
	}
	return index, nil
}

// Save replaces the stored index of a playlist with items.
//
// The snapshot is written to a temporary file in the same directory, synced and renamed
// over the previous index, so readers see either the old or the new index in full.
func (s *IndexStore) Save(slug string, items models.PlaylistIndex) error {
	path := s.Path(slug)
	s.logger.Debug("Save index", "path", path, "items", len(items))

	if items == nil {
		items = models.PlaylistIndex{}
	}
	data, err := shared.MarshalJSON(items, true)
	if err != nil {
		return fmt.Errorf("%w: failed to encode index: %v", shared.ErrPersistence, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", shared.ErrPersistence, s.dir, err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
