// Package file stores each mind map as a JSON file, <dir>/<mapID>.json.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence"
	"go.uber.org/zap"
)

var _ ports.ForestRepository = (*Repository)(nil)

// Repository implements ports.ForestRepository on a directory of JSON files
type Repository struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewRepository creates a repository rooted at dir on fs
func NewRepository(fs afero.Fs, dir string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &Repository{fs: fs, dir: dir, logger: logger}, nil
}

func (r *Repository) path(mapID string) string {
	return filepath.Join(r.dir, mapID+".json")
}

// Load reads the forest of mapID; a missing file is an empty store
func (r *Repository) Load(ctx context.Context, mapID string) ([]aggregates.NodeSnapshot, error) {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := afero.ReadFile(r.fs, r.path(mapID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path(mapID), err)
	}

	forest, err := persistence.DecodeForest(data)
	if err != nil {
		r.logger.Error("Stored mind map is corrupt",
			zap.String("path", r.path(mapID)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", r.path(mapID), err)
	}
	return forest, nil
}

// Save writes the forest to a temporary file and renames it into place
func (r *Repository) Save(ctx context.Context, mapID string, forest []aggregates.NodeSnapshot) error {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return err
	}
	data, err := persistence.EncodeForest(forest)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.path(mapID)
	tmp := target + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := r.fs.Rename(tmp, target); err != nil {
		_ = r.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	r.logger.Debug("Mind map written",
		zap.String("path", target),
		zap.Int("roots", len(forest)),
	)
	return nil
}

// Clear removes the file of mapID
func (r *Repository) Clear(ctx context.Context, mapID string) error {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fs.Remove(r.path(mapID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", r.path(mapID), err)
	}
	return nil
}
