package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domainconfig "github.com/zhaizeyu/smart-mind/domain/config"
)

// LayoutHolder serves the current layout tunables and swaps them when the
// config file changes.
type LayoutHolder struct {
	mu     sync.RWMutex
	layout domainconfig.LayoutConfig
}

// NewLayoutHolder starts from initial
func NewLayoutHolder(initial domainconfig.LayoutConfig) *LayoutHolder {
	return &LayoutHolder{layout: initial}
}

// Layout returns the current tunables
func (h *LayoutHolder) Layout() domainconfig.LayoutConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.layout
}

// Set replaces the tunables after validating them
func (h *LayoutHolder) Set(l domainconfig.LayoutConfig) error {
	if err := l.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.layout = l
	h.mu.Unlock()
	return nil
}

// Reload re-reads the layout section of path. A file without one leaves the
// tunables unchanged.
func (h *LayoutHolder) Reload(path string) error {
	fc, err := ReadFile(path)
	if err != nil {
		return err
	}
	if fc.Layout == nil {
		return nil
	}
	return h.Set(*fc.Layout)
}

// Watch reloads the holder whenever path is written until ctx is done. The
// parent directory is watched so editors that replace the file by rename
// are picked up.
func (h *LayoutHolder) Watch(ctx context.Context, path string, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := h.Reload(path); err != nil {
					logger.Warn("Ignoring invalid layout config", zap.String("path", path), zap.Error(err))
					continue
				}
				logger.Info("Layout config reloaded", zap.String("path", path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
