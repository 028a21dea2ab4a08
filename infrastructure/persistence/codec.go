// Package persistence holds what every forest store shares: the JSON codec
// and the adapter from a keyed repository to a single-slot
// local store.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
)

// EncodeForest serializes a forest as an indented JSON array. Non-ASCII
// text is written as is.
func EncodeForest(forest []aggregates.NodeSnapshot) ([]byte, error) {
	if forest == nil {
		forest = []aggregates.NodeSnapshot{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(forest); err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeForest parses a stored forest. Blank input decodes to nil.
func DecodeForest(data []byte) ([]aggregates.NodeSnapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var forest []aggregates.NodeSnapshot
	if err := json.Unmarshal(data, &forest); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if forest == nil {
		forest = []aggregates.NodeSnapshot{}
	}
	return forest, nil
}

// Bind adapts a keyed repository to a LocalStore holding one map
func Bind(repo ports.ForestRepository, mapID string) ports.LocalStore {
	return &boundStore{repo: repo, mapID: mapID}
}

type boundStore struct {
	repo  ports.ForestRepository
	mapID string
}

func (s *boundStore) Load(ctx context.Context) ([]aggregates.NodeSnapshot, error) {
	return s.repo.Load(ctx, s.mapID)
}

func (s *boundStore) Save(ctx context.Context, forest []aggregates.NodeSnapshot) error {
	return s.repo.Save(ctx, s.mapID, forest)
}

func (s *boundStore) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx, s.mapID)
}
