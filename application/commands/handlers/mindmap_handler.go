package handlers

import (
	"context"
	"fmt"

	"github.com/zhaizeyu/smart-mind/application/commands"
	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/application/services"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"go.uber.org/zap"
)

// Workspace is the part of services.Workspace the handler needs
type Workspace interface {
	Mutate(ctx context.Context, mapID string, fn services.MutateFunc) error
}

// MindMapHandler applies every mind map command variant through the
// workspace. Whether a result is saved follows the command effect table.
type MindMapHandler struct {
	workspace Workspace
	logger    *zap.Logger
}

// NewMindMapHandler creates a new mind map command handler
func NewMindMapHandler(workspace Workspace, logger *zap.Logger) *MindMapHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MindMapHandler{
		workspace: workspace,
		logger:    logger,
	}
}

// Handle implements bus.CommandHandler
func (h *MindMapHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.Command)
	if !ok {
		return fmt.Errorf("%w: %T", bus.ErrHandlerNotFound, cmd)
	}

	return h.workspace.Mutate(ctx, c.TargetMap(), func(m *aggregates.MindMap) (bool, error) {
		res := commands.Apply(m, c)

		h.logger.Debug("Command applied",
			zap.String("map_id", c.TargetMap()),
			zap.String("kind", string(res.Kind)),
			zap.String("outcome", res.Outcome.String()),
			zap.String("node_id", res.NodeID.String()),
		)
		if res.Dropped > 0 {
			h.logger.Warn("Replace dropped invalid nodes",
				zap.String("map_id", c.TargetMap()),
				zap.Int("dropped", res.Dropped),
			)
		}

		return res.ShouldPersist(), res.Err()
	})
}

// Register wires the handler for every command variant on b
func (h *MindMapHandler) Register(b *bus.CommandBus) error {
	for _, cmd := range commands.All() {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}
