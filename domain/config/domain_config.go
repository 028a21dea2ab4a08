package config

import (
	"fmt"
	"math"
)

// NodeWidth is the rendered width of a node card. The layout engine does not
// use it; clients size their canvas with it.
const NodeWidth = 240

// LayoutConfig holds the tunables of the tree layout engine
type LayoutConfig struct {
	StartX     float64 `json:"startX" yaml:"start_x"`
	StartY     float64 `json:"startY" yaml:"start_y"`
	LevelGap   float64 `json:"levelGap" yaml:"level_gap"`
	SiblingGap float64 `json:"siblingGap" yaml:"sibling_gap"`
	RootGap    float64 `json:"rootGap" yaml:"root_gap"`
	NodeHeight float64 `json:"nodeHeight" yaml:"node_height"`
}

// DefaultLayoutConfig returns the default layout tunables. Every field is
// taken as given afterwards, so an explicit 0 (a layout starting at the
// canvas origin) is honored.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		StartX:     80,
		StartY:     80,
		LevelGap:   260,
		SiblingGap: 180,
		RootGap:    240,
		NodeHeight: 140,
	}
}

// Validate rejects non-finite values and negative gaps
func (c LayoutConfig) Validate() error {
	fields := []struct {
		name     string
		value    float64
		positive bool
	}{
		{"startX", c.StartX, false},
		{"startY", c.StartY, false},
		{"levelGap", c.LevelGap, true},
		{"siblingGap", c.SiblingGap, true},
		{"rootGap", c.RootGap, true},
		{"nodeHeight", c.NodeHeight, true},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("layout %s must be finite", f.name)
		}
		if f.positive && f.value < 0 {
			return fmt.Errorf("layout %s cannot be negative", f.name)
		}
	}
	return nil
}

// DomainConfig holds the business defaults of a mind map
type DomainConfig struct {
	// New node defaults
	DefaultQuestion string
	DefaultX        float64
	DefaultY        float64

	// Synthesized root
	RootQuestion string
	RootX        float64
	RootY        float64

	// Text limits enforced at the API boundary
	MaxQuestionLength int
	MaxAnswerLength   int

	// Mind map scoping
	DefaultMapID string

	Layout LayoutConfig
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultQuestion: "新的问题",
		DefaultX:        80,
		DefaultY:        80,

		RootQuestion: "输入一个中心问题",
		RootX:        400,
		RootY:        200,

		MaxQuestionLength: 2000,
		MaxAnswerLength:   50000,

		DefaultMapID: "mindmap",

		Layout: DefaultLayoutConfig(),
	}
}

// Validate checks the configuration for consistency
func (c *DomainConfig) Validate() error {
	if c.MaxQuestionLength <= 0 {
		return fmt.Errorf("MaxQuestionLength must be positive")
	}
	if c.MaxAnswerLength <= 0 {
		return fmt.Errorf("MaxAnswerLength must be positive")
	}
	if c.DefaultMapID == "" {
		return fmt.Errorf("DefaultMapID cannot be empty")
	}
	return c.Layout.Validate()
}
