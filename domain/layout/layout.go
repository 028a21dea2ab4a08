// Package layout computes tidy left-to-right tree positions for a forest.
//
// The algorithm runs two passes. The measure pass gives every node a span:
// 1 for a leaf, otherwise the sum of its children's spans floored at 1. The
// assign pass walks each tree from its top edge; a subtree occupies
// max(span*SiblingGap, NodeHeight) vertically, its node is centered in that
// band at x = StartX + depth*LevelGap, and children are stacked contiguously
// from the parent's top edge. Roots are stacked below each other with
// RootGap between consecutive trees.
package layout

import (
	"math"

	"github.com/zhaizeyu/smart-mind/domain/config"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
)

// Forest is the read-only shape the engine walks. Children of an unknown id
// are expected to be empty.
type Forest interface {
	Roots() []valueobjects.NodeID
	Children(id valueobjects.NodeID) []valueobjects.NodeID
}

// Compute returns the position of every node reachable from the roots.
// It never mutates the forest. cfg is used as given; start from
// config.DefaultLayoutConfig to override single tunables.
func Compute(forest Forest, cfg config.LayoutConfig) map[valueobjects.NodeID]valueobjects.Position {
	roots := forest.Roots()
	positions := make(map[valueobjects.NodeID]valueobjects.Position)
	if len(roots) == 0 {
		return positions
	}

	spans := Spans(forest)
	e := engine{forest: forest, cfg: cfg, spans: spans, out: positions}

	top := cfg.StartY
	for _, root := range roots {
		height := e.assign(root, 0, top)
		top += height + cfg.RootGap
	}
	return positions
}

// Spans runs the measure pass and returns the span of every reachable node
func Spans(forest Forest) map[valueobjects.NodeID]int {
	spans := make(map[valueobjects.NodeID]int)
	for _, root := range forest.Roots() {
		measure(forest, root, spans)
	}
	return spans
}

// SubtreeHeight is the vertical band a subtree with the given span occupies
func SubtreeHeight(span int, cfg config.LayoutConfig) float64 {
	return math.Max(float64(span)*cfg.SiblingGap, cfg.NodeHeight)
}

func measure(forest Forest, id valueobjects.NodeID, spans map[valueobjects.NodeID]int) int {
	if s, ok := spans[id]; ok {
		return s
	}
	children := forest.Children(id)
	if len(children) == 0 {
		spans[id] = 1
		return 1
	}
	total := 0
	for _, c := range children {
		total += measure(forest, c, spans)
	}
	if total < 1 {
		total = 1
	}
	spans[id] = total
	return total
}

type engine struct {
	forest Forest
	cfg    config.LayoutConfig
	spans  map[valueobjects.NodeID]int
	out    map[valueobjects.NodeID]valueobjects.Position
}

// assign positions the subtree rooted at id whose band starts at top and
// returns the band height.
func (e *engine) assign(id valueobjects.NodeID, depth int, top float64) float64 {
	span := e.spans[id]
	if span == 0 {
		span = 1
	}
	height := SubtreeHeight(span, e.cfg)
	center := top + height/2

	e.out[id] = valueobjects.Position{
		X: e.cfg.StartX + float64(depth)*e.cfg.LevelGap,
		Y: center - e.cfg.NodeHeight/2,
	}

	childTop := top
	for _, c := range e.forest.Children(id) {
		childTop += e.assign(c, depth+1, childTop)
	}
	return height
}
