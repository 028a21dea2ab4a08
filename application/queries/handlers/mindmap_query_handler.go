package handlers

import (
	"context"
	"fmt"

	"github.com/zhaizeyu/smart-mind/application/queries"
	"github.com/zhaizeyu/smart-mind/application/queries/bus"
	"github.com/zhaizeyu/smart-mind/application/services"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"go.uber.org/zap"
)

// MindMapQueryHandler answers read queries against workspace sessions
type MindMapQueryHandler struct {
	viewer services.MindMapViewer
	logger *zap.Logger
}

// NewMindMapQueryHandler creates a new mind map query handler
func NewMindMapQueryHandler(viewer services.MindMapViewer, logger *zap.Logger) *MindMapQueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MindMapQueryHandler{
		viewer: viewer,
		logger: logger,
	}
}

// Register wires the handler for every query on b
func (h *MindMapQueryHandler) Register(b *bus.QueryBus) error {
	for _, q := range queries.All() {
		if err := b.Register(q, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements bus.QueryHandler
func (h *MindMapQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.Query)
	if !ok {
		return nil, fmt.Errorf("%w: %T", bus.ErrHandlerNotFound, query)
	}

	var result interface{}
	err := h.viewer.View(ctx, q.CacheScope(), func(m *aggregates.MindMap) error {
		var err error
		result, err = h.answer(m, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *MindMapQueryHandler) answer(m *aggregates.MindMap, query queries.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.GetMindMapQuery:
		view := &queries.MindMapView{
			Nodes:     m.Snapshot(),
			NodeCount: m.Len(),
		}
		if sel := m.SelectedID(); !sel.IsZero() {
			s := sel.String()
			view.SelectedID = &s
		}
		return view, nil

	case queries.GetNodeQuery:
		id, err := valueobjects.NewNodeIDFromString(q.NodeID)
		if err != nil {
			return nil, pkgerrors.ErrNodeNotFound(q.NodeID)
		}
		loc, ok := m.FindNodeByID(id)
		if !ok {
			return nil, pkgerrors.ErrNodeNotFound(q.NodeID)
		}
		snap, _ := m.SnapshotNode(id)
		view := &queries.NodeView{
			Node:     snap,
			IsRoot:   loc.IsRoot(),
			Selected: m.SelectedID().Equals(id),
		}
		if !loc.IsRoot() {
			pid := loc.Parent.ID().String()
			view.ParentID = &pid
		}
		return view, nil

	case queries.GetLayoutQuery:
		positions := m.Layout()
		view := make(queries.LayoutView, len(positions))
		for id, pos := range positions {
			view[id.String()] = pos
		}
		return view, nil

	case queries.GetSummaryRequestQuery:
		id, err := valueobjects.NewNodeIDFromString(q.NodeID)
		if err != nil {
			return nil, pkgerrors.ErrNodeNotFound(q.NodeID)
		}
		req, ok := services.SummaryRequestFor(m, id)
		if !ok {
			return nil, pkgerrors.ErrNodeNotFound(q.NodeID)
		}
		return &req, nil

	default:
		return nil, fmt.Errorf("%w: %T", bus.ErrHandlerNotFound, query)
	}
}
