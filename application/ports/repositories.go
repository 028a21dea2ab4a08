package ports

import (
	"context"
	"errors"

	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/events"
)

// ErrNotFound is returned by adapters for lookups that have no stored value
// when nil is not a meaningful answer.
var ErrNotFound = errors.New("not found")

// ForestRepository persists mind map forests keyed by map id.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type ForestRepository interface {
	// Load returns the stored forest, or nil when nothing is stored for mapID
	Load(ctx context.Context, mapID string) ([]aggregates.NodeSnapshot, error)

	// Save replaces the stored forest for mapID
	Save(ctx context.Context, mapID string, forest []aggregates.NodeSnapshot) error

	// Clear removes the stored forest for mapID
	Clear(ctx context.Context, mapID string) error
}

// LocalStore is an opaque single-slot store for one forest
type LocalStore interface {
	// Load returns the stored forest, or nil when nothing is stored
	Load(ctx context.Context) ([]aggregates.NodeSnapshot, error)

	// Save replaces the stored forest
	Save(ctx context.Context, forest []aggregates.NodeSnapshot) error

	// Clear removes the stored forest
	Clear(ctx context.Context) error
}

// RemoteStore is a best-effort mirror of the forest on another server.
// Fetch returns nil on any failure; Persist swallows failures.
type RemoteStore interface {
	Fetch(ctx context.Context) []aggregates.NodeSnapshot
	Persist(ctx context.Context, forest []aggregates.NodeSnapshot)
}

// EventPublisher publishes domain events to interested parties
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache is a small TTL cache
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
	Delete(ctx context.Context, key string)
	DeletePrefix(ctx context.Context, prefix string)
}
