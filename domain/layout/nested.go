package layout

import "github.com/zhaizeyu/smart-mind/domain/core/valueobjects"

// Branch is a nested tree literal: a node id and its ordered subtrees
type Branch struct {
	ID       valueobjects.NodeID
	Children []Branch
}

// NestedForest adapts a slice of nested branches to Forest
type NestedForest struct {
	roots    []valueobjects.NodeID
	children map[valueobjects.NodeID][]valueobjects.NodeID
}

// NewNestedForest indexes the branches once so lookups are O(1)
func NewNestedForest(branches []Branch) *NestedForest {
	f := &NestedForest{children: make(map[valueobjects.NodeID][]valueobjects.NodeID)}
	for _, b := range branches {
		f.roots = append(f.roots, b.ID)
		f.index(b)
	}
	return f
}

func (f *NestedForest) index(b Branch) {
	ids := make([]valueobjects.NodeID, 0, len(b.Children))
	for _, c := range b.Children {
		ids = append(ids, c.ID)
		f.index(c)
	}
	f.children[b.ID] = ids
}

// Roots implements Forest
func (f *NestedForest) Roots() []valueobjects.NodeID {
	return f.roots
}

// Children implements Forest
func (f *NestedForest) Children(id valueobjects.NodeID) []valueobjects.NodeID {
	return f.children[id]
}
