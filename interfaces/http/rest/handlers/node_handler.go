package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/commands"
	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/application/queries"
	querybus "github.com/zhaizeyu/smart-mind/application/queries/bus"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/pkg/common"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
)

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	mapOf      MapResolver
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	mapOf MapResolver,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		mapOf:      mapOf,
		errs:       errs,
		logger:     logger,
	}
}

// CreateNodeRequest represents the request body for creating a node. A
// missing parent creates a new root.
type CreateNodeRequest struct {
	ParentID string                 `json:"parentId,omitempty"`
	Question *string                `json:"question,omitempty"`
	Answer   *string                `json:"answer,omitempty"`
	Position *valueobjects.Position `json:"position,omitempty"`
}

// UpdateNodeRequest represents the request body for updating a node
type UpdateNodeRequest struct {
	Question *string                `json:"question,omitempty"`
	Answer   *string                `json:"answer,omitempty"`
	Position *valueobjects.Position `json:"position,omitempty"`
}

// ReparentRequest names the new parent; empty detaches to a root
type ReparentRequest struct {
	ParentID string `json:"parentId,omitempty"`
}

// CreateNode handles POST /api/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	mapID := h.mapOf(r)
	nodeID := valueobjects.NewNodeID().String()
	cmd := commands.AddNodeCommand{
		MapID:    mapID,
		NodeID:   nodeID,
		ParentID: req.ParentID,
		Question: req.Question,
		Answer:   req.Answer,
		Position: req.Position,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	h.logger.Info("Node created",
		zap.String("map_id", mapID),
		zap.String("node_id", nodeID),
		zap.String("parent_id", req.ParentID))
	h.respondNode(w, r, mapID, nodeID, http.StatusCreated)
}

// GetNode handles GET /api/nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	h.respondNode(w, r, h.mapOf(r), chi.URLParam(r, "nodeID"), http.StatusOK)
}

// UpdateNode handles PATCH /api/nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	mapID, nodeID := h.mapOf(r), chi.URLParam(r, "nodeID")
	cmd := commands.UpdateNodeCommand{
		MapID:    mapID,
		NodeID:   nodeID,
		Question: req.Question,
		Answer:   req.Answer,
		Position: req.Position,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	h.respondNode(w, r, mapID, nodeID, http.StatusOK)
}

// MoveNode handles PUT /api/nodes/{nodeID}/position
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var pos valueobjects.Position
	if err := common.DecodeJSON(w, r, &pos); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	mapID, nodeID := h.mapOf(r), chi.URLParam(r, "nodeID")
	if err := h.commandBus.Send(r.Context(), commands.MoveNodeCommand{MapID: mapID, NodeID: nodeID, Position: pos}); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	h.respondNode(w, r, mapID, nodeID, http.StatusOK)
}

// DeleteNode handles DELETE /api/nodes/{nodeID}, removing the subtree
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	mapID, nodeID := h.mapOf(r), chi.URLParam(r, "nodeID")
	if err := h.commandBus.Send(r.Context(), commands.RemoveNodeCommand{MapID: mapID, NodeID: nodeID}); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	h.logger.Info("Node removed", zap.String("map_id", mapID), zap.String("node_id", nodeID))
	w.WriteHeader(http.StatusNoContent)
}

// ReparentNode handles POST /api/nodes/{nodeID}/reparent
func (h *NodeHandler) ReparentNode(w http.ResponseWriter, r *http.Request) {
	var req ReparentRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	mapID, nodeID := h.mapOf(r), chi.URLParam(r, "nodeID")
	cmd := commands.ReparentNodeCommand{MapID: mapID, NodeID: nodeID, ParentID: req.ParentID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	h.respondNode(w, r, mapID, nodeID, http.StatusOK)
}

// SelectNode handles POST /api/nodes/{nodeID}/select
func (h *NodeHandler) SelectNode(w http.ResponseWriter, r *http.Request) {
	mapID, nodeID := h.mapOf(r), chi.URLParam(r, "nodeID")
	if err := h.commandBus.Send(r.Context(), commands.SelectNodeCommand{MapID: mapID, NodeID: nodeID}); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	h.respondNode(w, r, mapID, nodeID, http.StatusOK)
}

// GetSummaryRequest handles GET /api/nodes/{nodeID}/summary-request
func (h *NodeHandler) GetSummaryRequest(w http.ResponseWriter, r *http.Request) {
	q := queries.GetSummaryRequestQuery{MapID: h.mapOf(r), NodeID: chi.URLParam(r, "nodeID")}
	res, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, res)
}

func (h *NodeHandler) respondNode(w http.ResponseWriter, r *http.Request, mapID, nodeID string, status int) {
	res, err := h.queryBus.Ask(r.Context(), queries.GetNodeQuery{MapID: mapID, NodeID: nodeID})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, status, res)
}
