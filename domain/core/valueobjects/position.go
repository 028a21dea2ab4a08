package valueobjects

import (
	"fmt"
	"math"
)

// Position is a point on the canvas. It is the node's top-left corner.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position, rejecting NaN and infinite coordinates
func NewPosition(x, y float64) (Position, error) {
	p := Position{X: x, Y: y}
	if err := p.Validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

// Validate checks that both coordinates are finite
func (p Position) Validate() error {
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
		return fmt.Errorf("position (%v, %v) is not finite", p.X, p.Y)
	}
	return nil
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	return p.X == other.X && p.Y == other.Y
}

// String renders the position as (x, y)
func (p Position) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}
