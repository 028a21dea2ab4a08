package entities

import (
	"time"

	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
)

// Node is a question/answer card in a mind map forest.
// A node exclusively owns its children, which are stored as id references
// into the MindMap arena. Structural mutators (SetParent, AppendChild,
// RemoveChild) are meant for the MindMap aggregate, which keeps parent ids
// and child lists in agreement.
type Node struct {
	id        valueobjects.NodeID
	parentID  valueobjects.NodeID
	content   valueobjects.NodeContent
	children  []valueobjects.NodeID
	position  valueobjects.Position
	createdAt time.Time
	updatedAt time.Time
}

// NewNode creates a fresh node stamped with now
func NewNode(id, parentID valueobjects.NodeID, content valueobjects.NodeContent, position valueobjects.Position, now time.Time) *Node {
	return &Node{
		id:        id,
		parentID:  parentID,
		content:   content,
		children:  []valueobjects.NodeID{},
		position:  position,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstructNode rebuilds a node from persisted data with preserved timestamps.
// Children are attached afterwards by the aggregate.
func ReconstructNode(
	id, parentID valueobjects.NodeID,
	content valueobjects.NodeContent,
	position valueobjects.Position,
	createdAt, updatedAt time.Time,
) *Node {
	n := NewNode(id, parentID, content, position, createdAt)
	n.updatedAt = updatedAt
	return n
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// ParentID returns the parent id, zero for roots
func (n *Node) ParentID() valueobjects.NodeID {
	return n.parentID
}

// IsRoot reports whether the node sits at the top level of the forest
func (n *Node) IsRoot() bool {
	return n.parentID.IsZero()
}

// Content returns the node's question and answer
func (n *Node) Content() valueobjects.NodeContent {
	return n.content
}

// Question returns the question text
func (n *Node) Question() string {
	return n.content.Question()
}

// Answer returns the answer and whether one is set
func (n *Node) Answer() (string, bool) {
	return n.content.Answer()
}

// Position returns the node's position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// Children returns a copy of the ordered child ids
func (n *Node) Children() []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of direct children
func (n *Node) ChildCount() int {
	return len(n.children)
}

// CreatedAt returns the creation time
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns the last modification time
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// UpdateContent replaces the content and refreshes updatedAt
func (n *Node) UpdateContent(content valueobjects.NodeContent, now time.Time) {
	n.content = content
	n.updatedAt = now
}

// MoveTo places the node at pos and refreshes updatedAt
func (n *Node) MoveTo(pos valueobjects.Position, now time.Time) {
	n.position = pos
	n.updatedAt = now
}

// Touch refreshes updatedAt without changing anything else
func (n *Node) Touch(now time.Time) {
	n.updatedAt = now
}

// ApplyLayout sets a computed position. Layout is not an edit, so
// updatedAt is left alone.
func (n *Node) ApplyLayout(pos valueobjects.Position) {
	n.position = pos
}

// SetParent records a new parent and refreshes updatedAt
func (n *Node) SetParent(parentID valueobjects.NodeID, now time.Time) {
	n.parentID = parentID
	n.updatedAt = now
}

// AppendChild adds a child id at the end of the child list
func (n *Node) AppendChild(id valueobjects.NodeID) {
	n.children = append(n.children, id)
}

// RemoveChild drops id from the child list and reports whether it was present
func (n *Node) RemoveChild(id valueobjects.NodeID) bool {
	for i, c := range n.children {
		if c.Equals(id) {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return true
		}
	}
	return false
}

// HasChild reports whether id is a direct child
func (n *Node) HasChild(id valueobjects.NodeID) bool {
	for _, c := range n.children {
		if c.Equals(id) {
			return true
		}
	}
	return false
}
