package aggregates

import (
	"time"

	"github.com/zhaizeyu/smart-mind/domain/core/entities"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/domain/events"
	"github.com/zhaizeyu/smart-mind/pkg/utils"
)

// NodeSnapshot is the serializable form of a node with its subtree inline.
// A forest is a slice of root snapshots.
type NodeSnapshot struct {
	ID        string                `json:"id"`
	ParentID  *string               `json:"parentId"`
	Question  string                `json:"question"`
	Answer    *string               `json:"answer,omitempty"`
	Children  []NodeSnapshot        `json:"children"`
	Position  valueobjects.Position `json:"position"`
	CreatedAt string                `json:"createdAt"`
	UpdatedAt string                `json:"updatedAt"`
}

// Count returns the number of nodes in the snapshot forest
func Count(forest []NodeSnapshot) int {
	total := 0
	for _, n := range forest {
		total += 1 + Count(n.Children)
	}
	return total
}

// Snapshot serializes the forest in root order
func (m *MindMap) Snapshot() []NodeSnapshot {
	out := make([]NodeSnapshot, 0, len(m.roots))
	for _, rid := range m.roots {
		if n, ok := m.nodes[rid]; ok {
			out = append(out, m.snapshotOf(n))
		}
	}
	return out
}

// SnapshotNode serializes a single node and its subtree
func (m *MindMap) SnapshotNode(id valueobjects.NodeID) (NodeSnapshot, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return NodeSnapshot{}, false
	}
	return m.snapshotOf(n), true
}

func (m *MindMap) snapshotOf(n *entities.Node) NodeSnapshot {
	s := NodeSnapshot{
		ID:        n.ID().String(),
		Question:  n.Question(),
		Answer:    n.Content().AnswerPtr(),
		Children:  make([]NodeSnapshot, 0, n.ChildCount()),
		Position:  n.Position(),
		CreatedAt: utils.FormatTimestamp(n.CreatedAt()),
		UpdatedAt: utils.FormatTimestamp(n.UpdatedAt()),
	}
	if !n.IsRoot() {
		pid := n.ParentID().String()
		s.ParentID = &pid
	}
	for _, cid := range n.Children() {
		if c, ok := m.nodes[cid]; ok {
			s.Children = append(s.Children, m.snapshotOf(c))
		}
	}
	return s
}

// ReplaceAll swaps the whole forest for the given snapshots, selects the
// first root (or synthesizes one when the input is empty) and re-runs the
// layout.
//
// Placement wins over the stored parentId, which is rewritten to agree with
// the tree shape. Nodes with a blank id or an id seen earlier in the input
// are dropped together with their subtree. Unparseable timestamps fall back
// to now. It returns the number of dropped nodes.
func (m *MindMap) ReplaceAll(forest []NodeSnapshot) int {
	m.nodes = make(map[valueobjects.NodeID]*entities.Node)
	m.roots = []valueobjects.NodeID{}
	m.selected = valueobjects.NodeID{}

	now := m.now()
	dropped := 0
	for _, s := range forest {
		if id, ok := m.restore(s, valueobjects.NodeID{}, now, &dropped); ok {
			m.roots = append(m.roots, id)
		}
	}

	m.addEvent(events.NewMindMapReplaced(m.id, len(m.nodes), dropped, now))
	if len(m.roots) > 0 {
		m.selected = m.roots[0]
		m.relayout()
	} else {
		m.EnsureRoot()
	}
	return dropped
}

func (m *MindMap) restore(s NodeSnapshot, parentID valueobjects.NodeID, now time.Time, dropped *int) (valueobjects.NodeID, bool) {
	id, err := valueobjects.NewNodeIDFromString(s.ID)
	if err != nil || m.Contains(id) {
		*dropped += 1 + Count(s.Children)
		return valueobjects.NodeID{}, false
	}

	createdAt := utils.ParseTimestampOr(s.CreatedAt, now)
	updatedAt := utils.ParseTimestampOr(s.UpdatedAt, createdAt)
	node := entities.ReconstructNode(
		id,
		parentID,
		valueobjects.NewNodeContent(s.Question, s.Answer),
		s.Position,
		createdAt,
		updatedAt,
	)
	m.nodes[id] = node

	for _, c := range s.Children {
		if cid, ok := m.restore(c, id, now, dropped); ok {
			node.AppendChild(cid)
		}
	}
	return id, true
}
