package services

import (
	"context"
	"sync"
	"time"

	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/config"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"go.uber.org/zap"
)

// LayoutSource supplies the layout tunables in effect. The config watcher
// swaps them at runtime.
type LayoutSource interface {
	Layout() config.LayoutConfig
}

// StaticLayout is a LayoutSource that never changes
type StaticLayout config.LayoutConfig

// Layout implements LayoutSource
func (s StaticLayout) Layout() config.LayoutConfig {
	return config.LayoutConfig(s)
}

// MutateFunc changes a mind map and reports whether the result must be saved
type MutateFunc func(m *aggregates.MindMap) (persist bool, err error)

const (
	defaultMaxSessions = 256
	defaultSessionIdle = 30 * time.Minute
)

// Workspace holds one mind map session per map id. A MindMap is single
// threaded, so every access to a session happens under its mutex; the
// repository is hit on first access and after every persisting mutation.
// Idle sessions are evicted once they outlive the idle timeout or the
// session cap is reached; evicted maps reload from the repository.
type Workspace struct {
	repo      ports.ForestRepository
	publisher ports.EventPublisher
	layout    LayoutSource
	domainCfg *config.DomainConfig
	logger    *zap.Logger
	now       func() time.Time

	maxSessions int
	idle        time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	mindmap *aggregates.MindMap

	// guarded by Workspace.mu
	refs     int
	lastUsed time.Time
}

// WorkspaceOption configures a Workspace
type WorkspaceOption func(*Workspace)

// WithEventPublisher publishes the events of every saved mutation
func WithEventPublisher(p ports.EventPublisher) WorkspaceOption {
	return func(w *Workspace) { w.publisher = p }
}

// WithLayoutSource sets where layout tunables are read from
func WithLayoutSource(src LayoutSource) WorkspaceOption {
	return func(w *Workspace) { w.layout = src }
}

// WithWorkspaceClock overrides the clock handed to new mind maps
func WithWorkspaceClock(now func() time.Time) WorkspaceOption {
	return func(w *Workspace) { w.now = now }
}

// WithSessionLimits bounds how many sessions stay cached and how long an
// unused one is kept. Non-positive values keep the defaults.
func WithSessionLimits(maxSessions int, idle time.Duration) WorkspaceOption {
	return func(w *Workspace) {
		if maxSessions > 0 {
			w.maxSessions = maxSessions
		}
		if idle > 0 {
			w.idle = idle
		}
	}
}

// NewWorkspace creates a workspace backed by repo
func NewWorkspace(
	repo ports.ForestRepository,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
	opts ...WorkspaceOption,
) *Workspace {
	if domainCfg == nil {
		domainCfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workspace{
		repo:        repo,
		domainCfg:   domainCfg,
		layout:      StaticLayout(domainCfg.Layout),
		logger:      logger,
		now:         time.Now,
		maxSessions: defaultMaxSessions,
		idle:        defaultSessionIdle,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Mutate runs fn against the mind map and saves it when fn asks to. A
// failed save drops the session so the next call reloads stored state.
// fn's own error is returned after any save.
func (w *Workspace) Mutate(ctx context.Context, mapID string, fn MutateFunc) error {
	s, err := w.acquire(ctx, mapID)
	if err != nil {
		return err
	}
	defer w.release(s)

	m := s.mindmap
	persist, fnErr := fn(m)

	pending := m.GetUncommittedEvents()
	m.MarkEventsAsCommitted()

	if persist {
		if err := w.repo.Save(ctx, mapID, m.Snapshot()); err != nil {
			s.mindmap = nil
			w.logger.Error("Failed to save mind map",
				zap.String("map_id", mapID),
				zap.Error(err),
			)
			return pkgerrors.NewStorageError("save mind map", err)
		}

		if w.publisher != nil && len(pending) > 0 {
			if err := w.publisher.PublishBatch(ctx, pending); err != nil {
				// Events are advisory; the save already happened.
				w.logger.Warn("Failed to publish events",
					zap.String("map_id", mapID),
					zap.Int("count", len(pending)),
					zap.Error(err),
				)
			}
		}
	}

	return fnErr
}

// View runs fn with read access to the mind map
func (w *Workspace) View(ctx context.Context, mapID string, fn func(m *aggregates.MindMap) error) error {
	s, err := w.acquire(ctx, mapID)
	if err != nil {
		return err
	}
	defer w.release(s)
	return fn(s.mindmap)
}

// Forget drops the cached session for mapID
func (w *Workspace) Forget(mapID string) {
	w.mu.Lock()
	delete(w.sessions, mapID)
	w.mu.Unlock()
}

// acquire returns the locked session for mapID, loading it when needed.
// A session whose load fails is removed so it is not cached empty.
func (w *Workspace) acquire(ctx context.Context, mapID string) (*session, error) {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return nil, err
	}

	for {
		w.mu.Lock()
		s, ok := w.sessions[mapID]
		if !ok {
			w.evictLocked()
			s = &session{}
			w.sessions[mapID] = s
		}
		s.refs++
		w.mu.Unlock()

		s.mu.Lock()

		// The entry may have been dropped while we waited for the lock.
		w.mu.Lock()
		current := w.sessions[mapID] == s
		w.mu.Unlock()
		if !current {
			w.release(s)
			continue
		}

		if s.mindmap == nil {
			m, err := w.load(ctx, mapID)
			if err != nil {
				w.mu.Lock()
				if w.sessions[mapID] == s {
					delete(w.sessions, mapID)
				}
				w.mu.Unlock()
				w.release(s)
				return nil, err
			}
			s.mindmap = m
		}
		s.mindmap.SetLayoutConfig(w.layout.Layout())
		return s, nil
	}
}

func (w *Workspace) release(s *session) {
	s.mu.Unlock()
	w.mu.Lock()
	s.refs--
	s.lastUsed = w.now()
	w.mu.Unlock()
}

// evictLocked makes room for one more session. Sessions in use are never
// evicted. Callers hold w.mu.
func (w *Workspace) evictLocked() {
	now := w.now()
	for id, s := range w.sessions {
		if s.refs == 0 && now.Sub(s.lastUsed) > w.idle {
			delete(w.sessions, id)
		}
	}
	for len(w.sessions) >= w.maxSessions {
		var (
			oldestID string
			oldest   *session
		)
		for id, s := range w.sessions {
			if s.refs > 0 {
				continue
			}
			if oldest == nil || s.lastUsed.Before(oldest.lastUsed) {
				oldestID, oldest = id, s
			}
		}
		if oldest == nil {
			return
		}
		delete(w.sessions, oldestID)
		w.logger.Debug("Evicted mind map session", zap.String("map_id", oldestID))
	}
}

func (w *Workspace) load(ctx context.Context, mapID string) (*aggregates.MindMap, error) {
	forest, err := w.repo.Load(ctx, mapID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("load mind map", err)
	}

	m := aggregates.NewMindMap(mapID,
		aggregates.WithDomainConfig(w.domainCfg),
		aggregates.WithLayoutConfig(w.layout.Layout()),
		aggregates.WithClock(w.now),
	)
	if len(forest) == 0 {
		m.EnsureRoot()
	} else if dropped := m.ReplaceAll(forest); dropped > 0 {
		w.logger.Warn("Dropped invalid stored nodes",
			zap.String("map_id", mapID),
			zap.Int("dropped", dropped),
		)
	}
	m.MarkEventsAsCommitted()

	w.logger.Debug("Mind map loaded",
		zap.String("map_id", mapID),
		zap.Int("nodes", m.Len()),
	)
	return m, nil
}
