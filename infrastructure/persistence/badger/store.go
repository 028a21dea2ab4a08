// Package badger stores mind maps in an embedded BadgerDB under the key
// mindmap/<mapID>.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence"
	"go.uber.org/zap"
)

const keyPrefix = "mindmap/"

var _ ports.ForestRepository = (*Store)(nil)

// Config configures the database
type Config struct {
	// Path is the database directory; ignored when InMemory is set
	Path string
	// InMemory keeps everything in RAM, for tests
	InMemory bool
	// SyncWrites fsyncs every write
	SyncWrites bool
	Logger     *zap.Logger
}

// DefaultConfig returns a durable on-disk configuration for path
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a RAM-only configuration
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// Store implements ports.ForestRepository on BadgerDB
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens or creates the database
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func key(mapID string) []byte {
	return []byte(keyPrefix + mapID)
}

// Load returns the stored forest, or nil when mapID has none
func (s *Store) Load(ctx context.Context, mapID string) ([]aggregates.NodeSnapshot, error) {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(mapID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key(mapID), err)
	}
	return persistence.DecodeForest(data)
}

// Save replaces the stored forest
func (s *Store) Save(ctx context.Context, mapID string, forest []aggregates.NodeSnapshot) error {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return err
	}
	data, err := persistence.EncodeForest(forest)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(mapID), data)
	}); err != nil {
		return fmt.Errorf("badger set %s: %w", key(mapID), err)
	}
	return nil
}

// Clear removes the stored forest
func (s *Store) Clear(ctx context.Context, mapID string) error {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(mapID))
	}); err != nil {
		return fmt.Errorf("badger delete %s: %w", key(mapID), err)
	}
	return nil
}
