package queries

import (
	"github.com/zhaizeyu/smart-mind/application/queries/bus"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/pkg/utils"
)

// Query is a read against one mind map
type Query interface {
	bus.Query
	bus.Scoped
}

// GetMindMapQuery returns the whole forest of a mind map
type GetMindMapQuery struct {
	MapID string `json:"map_id" validate:"required"`
}

// Validate validates the GetMindMapQuery
func (q GetMindMapQuery) Validate() error { return utils.ValidateStruct(q) }

// CacheScope implements bus.Scoped
func (q GetMindMapQuery) CacheScope() string { return q.MapID }

// MindMapView is the result of GetMindMapQuery
type MindMapView struct {
	Nodes      []aggregates.NodeSnapshot `json:"nodes"`
	SelectedID *string                   `json:"selectedId,omitempty"`
	NodeCount  int                       `json:"nodeCount"`
}

// GetNodeQuery returns one node with its subtree
type GetNodeQuery struct {
	MapID  string `json:"map_id" validate:"required"`
	NodeID string `json:"id" validate:"required"`
}

// Validate validates the GetNodeQuery
func (q GetNodeQuery) Validate() error { return utils.ValidateStruct(q) }

// CacheScope implements bus.Scoped
func (q GetNodeQuery) CacheScope() string { return q.MapID }

// NodeView is the result of GetNodeQuery
type NodeView struct {
	Node     aggregates.NodeSnapshot `json:"node"`
	ParentID *string                 `json:"parentId"`
	IsRoot   bool                    `json:"isRoot"`
	Selected bool                    `json:"selected"`
}

// GetLayoutQuery computes layout positions without applying them
type GetLayoutQuery struct {
	MapID string `json:"map_id" validate:"required"`
}

// Validate validates the GetLayoutQuery
func (q GetLayoutQuery) Validate() error { return utils.ValidateStruct(q) }

// CacheScope implements bus.Scoped
func (q GetLayoutQuery) CacheScope() string { return q.MapID }

// LayoutView maps node ids to computed positions
type LayoutView map[string]valueobjects.Position

// GetSummaryRequestQuery builds the summarize payload of a subtree. The
// result is a ports.SummaryRequest.
type GetSummaryRequestQuery struct {
	MapID  string `json:"map_id" validate:"required"`
	NodeID string `json:"id" validate:"required"`
}

// Validate validates the GetSummaryRequestQuery
func (q GetSummaryRequestQuery) Validate() error { return utils.ValidateStruct(q) }

// CacheScope implements bus.Scoped
func (q GetSummaryRequestQuery) CacheScope() string { return q.MapID }

// All returns one zero value of every query, for bus registration
func All() []Query {
	return []Query{
		GetMindMapQuery{},
		GetNodeQuery{},
		GetLayoutQuery{},
		GetSummaryRequestQuery{},
	}
}
