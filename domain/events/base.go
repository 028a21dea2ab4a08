package events

import (
	"time"

	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// Event type names
const (
	TypeNodeAdded       = "node.added"
	TypeNodeUpdated     = "node.updated"
	TypeNodeMoved       = "node.moved"
	TypeNodeRemoved     = "node.removed"
	TypeNodeReparented  = "node.reparented"
	TypeMindMapReplaced = "mindmap.replaced"
	TypeMindMapArranged = "mindmap.arranged"
)

// BaseEvent provides common event fields. AggregateID is the mind map id.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(mapID, eventType string, at time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: mapID,
		EventType:   eventType,
		Timestamp:   at,
		Version:     1,
	}
}

// NodeAdded is raised when a node joins the forest
type NodeAdded struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	ParentID valueobjects.NodeID `json:"parent_id"`
	Question string              `json:"question"`
}

// NewNodeAdded creates a NodeAdded event
func NewNodeAdded(mapID string, nodeID, parentID valueobjects.NodeID, question string, at time.Time) NodeAdded {
	return NodeAdded{
		BaseEvent: newBase(mapID, TypeNodeAdded, at),
		NodeID:    nodeID,
		ParentID:  parentID,
		Question:  question,
	}
}

// NodeUpdated is raised when a node's question or answer changes
type NodeUpdated struct {
	BaseEvent
	NodeID      valueobjects.NodeID `json:"node_id"`
	OldQuestion string              `json:"old_question"`
	NewQuestion string              `json:"new_question"`
	Answered    bool                `json:"answered"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(mapID string, nodeID valueobjects.NodeID, oldQuestion, newQuestion string, answered bool, at time.Time) NodeUpdated {
	return NodeUpdated{
		BaseEvent:   newBase(mapID, TypeNodeUpdated, at),
		NodeID:      nodeID,
		OldQuestion: oldQuestion,
		NewQuestion: newQuestion,
		Answered:    answered,
	}
}

// NodeMoved is raised when a node is given a new position directly
type NodeMoved struct {
	BaseEvent
	NodeID      valueobjects.NodeID   `json:"node_id"`
	OldPosition valueobjects.Position `json:"old_position"`
	NewPosition valueobjects.Position `json:"new_position"`
}

// NewNodeMoved creates a NodeMoved event
func NewNodeMoved(mapID string, nodeID valueobjects.NodeID, oldPos, newPos valueobjects.Position, at time.Time) NodeMoved {
	return NodeMoved{
		BaseEvent:   newBase(mapID, TypeNodeMoved, at),
		NodeID:      nodeID,
		OldPosition: oldPos,
		NewPosition: newPos,
	}
}

// NodeRemoved is raised when a node and its subtree leave the forest
type NodeRemoved struct {
	BaseEvent
	NodeID  valueobjects.NodeID   `json:"node_id"`
	Removed []valueobjects.NodeID `json:"removed"`
}

// NewNodeRemoved creates a NodeRemoved event
func NewNodeRemoved(mapID string, nodeID valueobjects.NodeID, removed []valueobjects.NodeID, at time.Time) NodeRemoved {
	return NodeRemoved{
		BaseEvent: newBase(mapID, TypeNodeRemoved, at),
		NodeID:    nodeID,
		Removed:   removed,
	}
}

// NodeReparented is raised when a node moves to a new parent
type NodeReparented struct {
	BaseEvent
	NodeID      valueobjects.NodeID `json:"node_id"`
	OldParentID valueobjects.NodeID `json:"old_parent_id"`
	NewParentID valueobjects.NodeID `json:"new_parent_id"`
}

// NewNodeReparented creates a NodeReparented event
func NewNodeReparented(mapID string, nodeID, oldParent, newParent valueobjects.NodeID, at time.Time) NodeReparented {
	return NodeReparented{
		BaseEvent:   newBase(mapID, TypeNodeReparented, at),
		NodeID:      nodeID,
		OldParentID: oldParent,
		NewParentID: newParent,
	}
}

// MindMapReplaced is raised when the whole forest is swapped out
type MindMapReplaced struct {
	BaseEvent
	NodeCount int `json:"node_count"`
	Dropped   int `json:"dropped"`
}

// NewMindMapReplaced creates a MindMapReplaced event
func NewMindMapReplaced(mapID string, nodeCount, dropped int, at time.Time) MindMapReplaced {
	return MindMapReplaced{
		BaseEvent: newBase(mapID, TypeMindMapReplaced, at),
		NodeCount: nodeCount,
		Dropped:   dropped,
	}
}

// MindMapArranged is raised when the layout is re-run explicitly
type MindMapArranged struct {
	BaseEvent
	NodeCount int `json:"node_count"`
}

// NewMindMapArranged creates a MindMapArranged event
func NewMindMapArranged(mapID string, nodeCount int, at time.Time) MindMapArranged {
	return MindMapArranged{
		BaseEvent: newBase(mapID, TypeMindMapArranged, at),
		NodeCount: nodeCount,
	}
}
