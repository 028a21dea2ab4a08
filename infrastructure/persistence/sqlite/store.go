// Package sqlite stores mind maps in a SQLite key/value table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence"
	"github.com/zhaizeyu/smart-mind/pkg/utils"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

var _ ports.ForestRepository = (*Store)(nil)

// Store implements ports.ForestRepository on SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at dsn, ":memory:" included, and creates the schema
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func key(mapID string) string {
	return "mindmap/" + mapID
}

// Load returns the stored forest, or nil when mapID has none
func (s *Store) Load(ctx context.Context, mapID string) ([]aggregates.NodeSnapshot, error) {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return nil, err
	}
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key(mapID)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key(mapID), err)
	}
	return persistence.DecodeForest([]byte(value))
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key(mapID), string(data), utils.FormatTimestamp(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key(mapID), err)
	}
	return nil
}

// Clear removes the stored forest
func (s *Store) Clear(ctx context.Context, mapID string) error {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key(mapID)); err != nil {
		return fmt.Errorf("delete %s: %w", key(mapID), err)
	}
	return nil
}
