package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/commands"
	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/application/queries"
	querybus "github.com/zhaizeyu/smart-mind/application/queries/bus"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/pkg/common"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
)

// MapResolver picks the mind map a request addresses
type MapResolver func(r *http.Request) string

// QueryOrDefault reads the "map" query parameter and falls back to def
func QueryOrDefault(def string) MapResolver {
	return func(r *http.Request) string {
		if id := r.URL.Query().Get("map"); id != "" {
			return id
		}
		return def
	}
}

// MindMapHandler serves whole-map requests
type MindMapHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	mapOf      MapResolver
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewMindMapHandler creates a new mind map handler
func NewMindMapHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	mapOf MapResolver,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *MindMapHandler {
	return &MindMapHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		mapOf:      mapOf,
		errs:       errs,
		logger:     logger,
	}
}

// MindMapPayload is the body of GET and POST /api/mindmap
type MindMapPayload struct {
	Nodes []aggregates.NodeSnapshot `json:"nodes"`
}

// GetMindMap handles GET /api/mindmap
func (h *MindMapHandler) GetMindMap(w http.ResponseWriter, r *http.Request) {
	res, err := h.queryBus.Ask(r.Context(), queries.GetMindMapQuery{MapID: h.mapOf(r)})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, res)
}

// SaveMindMap handles POST /api/mindmap by replacing the whole forest
func (h *MindMapHandler) SaveMindMap(w http.ResponseWriter, r *http.Request) {
	var req MindMapPayload
	if err := common.DecodeJSON(w, r, &req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if req.Nodes == nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("nodes is required"))
		return
	}

	mapID := h.mapOf(r)
	if err := h.commandBus.Send(r.Context(), commands.ReplaceAllCommand{MapID: mapID, Nodes: req.Nodes}); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	h.logger.Info("Mind map replaced", zap.String("map_id", mapID), zap.Int("roots", len(req.Nodes)))
	common.RespondJSON(w, http.StatusOK, common.OK)
}

// GetLayout handles GET /api/mindmap/layout
func (h *MindMapHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	res, err := h.queryBus.Ask(r.Context(), queries.GetLayoutQuery{MapID: h.mapOf(r)})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, res)
}

// Arrange handles POST /api/mindmap/arrange and returns the arranged map
func (h *MindMapHandler) Arrange(w http.ResponseWriter, r *http.Request) {
	mapID := h.mapOf(r)
	if err := h.commandBus.Send(r.Context(), commands.AutoArrangeCommand{MapID: mapID}); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	h.GetMindMap(w, r)
}

// ClearSelection handles DELETE /api/selection
func (h *MindMapHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.commandBus.Send(r.Context(), commands.SelectNodeCommand{MapID: h.mapOf(r)}); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
