package commands

import (
	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/validators"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"github.com/zhaizeyu/smart-mind/pkg/utils"
)

// Kind tags a command variant
type Kind string

const (
	KindEnsureRoot   Kind = "ensure_root"
	KindAddNode      Kind = "add_node"
	KindUpdateNode   Kind = "update_node"
	KindMoveNode     Kind = "move_node"
	KindRemoveNode   Kind = "remove_node"
	KindSelectNode   Kind = "select_node"
	KindReparentNode Kind = "reparent_node"
	KindReplaceAll   Kind = "replace_all"
	KindAutoArrange  Kind = "auto_arrange"
)

// Command is a mind map mutation addressed to one map
type Command interface {
	bus.Command
	Kind() Kind
	TargetMap() string
}

var nodeValidator = validators.NewNodeValidator()

// AddNodeCommand adds a node under ParentID, or as a root when ParentID is
// empty. NodeID may be preassigned by the caller so it can read the node back.
type AddNodeCommand struct {
	MapID    string                 `json:"map_id" validate:"required"`
	NodeID   string                 `json:"id"`
	ParentID string                 `json:"parentId"`
	Question *string                `json:"question"`
	Answer   *string                `json:"answer"`
	Position *valueobjects.Position `json:"position"`
}

func (c AddNodeCommand) Kind() Kind        { return KindAddNode }
func (c AddNodeCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c AddNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	return nodeValidator.ValidateFields(c.Question, c.Answer, c.Position)
}

// UpdateNodeCommand changes the given fields of a node
type UpdateNodeCommand struct {
	MapID    string                 `json:"map_id" validate:"required"`
	NodeID   string                 `json:"id" validate:"required"`
	Question *string                `json:"question"`
	Answer   *string                `json:"answer"`
	Position *valueobjects.Position `json:"position"`
}

func (c UpdateNodeCommand) Kind() Kind        { return KindUpdateNode }
func (c UpdateNodeCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c UpdateNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	return nodeValidator.ValidateFields(c.Question, c.Answer, c.Position)
}

// MoveNodeCommand places a node at an explicit position
type MoveNodeCommand struct {
	MapID    string                `json:"map_id" validate:"required"`
	NodeID   string                `json:"id" validate:"required"`
	Position valueobjects.Position `json:"position"`
}

func (c MoveNodeCommand) Kind() Kind        { return KindMoveNode }
func (c MoveNodeCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c MoveNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	return nodeValidator.ValidateFields(nil, nil, &c.Position)
}

// RemoveNodeCommand deletes a node and its subtree
type RemoveNodeCommand struct {
	MapID  string `json:"map_id" validate:"required"`
	NodeID string `json:"id" validate:"required"`
}

func (c RemoveNodeCommand) Kind() Kind        { return KindRemoveNode }
func (c RemoveNodeCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c RemoveNodeCommand) Validate() error { return utils.ValidateStruct(c) }

// SelectNodeCommand selects a node; an empty NodeID clears the selection
type SelectNodeCommand struct {
	MapID  string `json:"map_id" validate:"required"`
	NodeID string `json:"id"`
}

func (c SelectNodeCommand) Kind() Kind        { return KindSelectNode }
func (c SelectNodeCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c SelectNodeCommand) Validate() error { return utils.ValidateStruct(c) }

// ReparentNodeCommand moves a node under ParentID, or to the root level when
// ParentID is empty
type ReparentNodeCommand struct {
	MapID    string `json:"map_id" validate:"required"`
	NodeID   string `json:"id" validate:"required"`
	ParentID string `json:"parentId"`
}

func (c ReparentNodeCommand) Kind() Kind        { return KindReparentNode }
func (c ReparentNodeCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c ReparentNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.NodeID == c.ParentID {
		return pkgerrors.ErrCyclicReparent(c.NodeID, c.ParentID)
	}
	return nil
}

// ReplaceAllCommand swaps the whole forest
type ReplaceAllCommand struct {
	MapID string                    `json:"map_id" validate:"required"`
	Nodes []aggregates.NodeSnapshot `json:"nodes"`
}

func (c ReplaceAllCommand) Kind() Kind        { return KindReplaceAll }
func (c ReplaceAllCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c ReplaceAllCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	return nodeValidator.ValidateForest(c.Nodes)
}

// EnsureRootCommand synthesizes a root when the forest is empty
type EnsureRootCommand struct {
	MapID string `json:"map_id" validate:"required"`
}

func (c EnsureRootCommand) Kind() Kind        { return KindEnsureRoot }
func (c EnsureRootCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c EnsureRootCommand) Validate() error { return utils.ValidateStruct(c) }

// AutoArrangeCommand re-runs the layout over the whole forest
type AutoArrangeCommand struct {
	MapID string `json:"map_id" validate:"required"`
}

func (c AutoArrangeCommand) Kind() Kind        { return KindAutoArrange }
func (c AutoArrangeCommand) TargetMap() string { return c.MapID }

// Validate implements bus.Command
func (c AutoArrangeCommand) Validate() error { return utils.ValidateStruct(c) }

// All returns one zero value of every command variant, for bus registration
func All() []Command {
	return []Command{
		EnsureRootCommand{},
		AddNodeCommand{},
		UpdateNodeCommand{},
		MoveNodeCommand{},
		RemoveNodeCommand{},
		SelectNodeCommand{},
		ReparentNodeCommand{},
		ReplaceAllCommand{},
		AutoArrangeCommand{},
	}
}
