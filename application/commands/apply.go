package commands

import (
	"fmt"

	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
)

// Effect declares what a command variant may do to a mind map
type Effect struct {
	// Structural commands change the shape of the forest
	Structural bool
	// Relayout commands re-run the layout engine when applied
	Relayout bool
	// Persist commands must be saved when applied
	Persist bool
}

var effects = map[Kind]Effect{
	KindEnsureRoot:   {Structural: true, Relayout: true, Persist: true},
	KindAddNode:      {Structural: true, Relayout: true, Persist: true},
	KindUpdateNode:   {Persist: true},
	KindMoveNode:     {Persist: true},
	KindRemoveNode:   {Structural: true, Relayout: true, Persist: true},
	KindSelectNode:   {},
	KindReparentNode: {Structural: true, Relayout: true, Persist: true},
	KindReplaceAll:   {Structural: true, Relayout: true, Persist: true},
	KindAutoArrange:  {Relayout: true, Persist: true},
}

// EffectOf returns the effect table entry for a command kind
func EffectOf(k Kind) Effect {
	return effects[k]
}

// Outcome classifies what Apply did
type Outcome int

const (
	// OutcomeApplied means the map changed
	OutcomeApplied Outcome = iota
	// OutcomeUnchanged means the command was valid but had nothing to do
	OutcomeUnchanged
	// OutcomeNotFound means a referenced node does not exist
	OutcomeNotFound
	// OutcomeRejected means the command would break a forest invariant
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result reports the outcome of applying a command
type Result struct {
	Kind    Kind
	Outcome Outcome
	// NodeID is the node the command created or acted on
	NodeID valueobjects.NodeID
	// Dropped counts snapshot nodes discarded by ReplaceAll
	Dropped int
	err     error
}

// Applied reports whether the map changed
func (r Result) Applied() bool {
	return r.Outcome == OutcomeApplied
}

// Err describes a not-found or rejected outcome, nil otherwise
func (r Result) Err() error {
	return r.err
}

// ShouldPersist reports whether the result must be saved
func (r Result) ShouldPersist() bool {
	return r.Applied() && EffectOf(r.Kind).Persist
}

// Apply executes a command against a mind map. Like the store itself it
// never fails hard: missing nodes and invalid moves leave the map untouched
// and are reported through the Result.
func Apply(m *aggregates.MindMap, cmd Command) Result {
	switch c := cmd.(type) {
	case EnsureRootCommand:
		return outcome(KindEnsureRoot, m.EnsureRoot(), rootOf(m))

	case AddNodeCommand:
		return applyAddNode(m, c)

	case UpdateNodeCommand:
		id, res, ok := lookup(m, c.Kind(), c.NodeID)
		if !ok {
			return res
		}
		applied := m.UpdateNode(id, aggregates.NodeUpdate{
			Question: c.Question,
			Answer:   c.Answer,
			Position: c.Position,
		})
		return outcome(c.Kind(), applied, id)

	case MoveNodeCommand:
		id, res, ok := lookup(m, c.Kind(), c.NodeID)
		if !ok {
			return res
		}
		return outcome(c.Kind(), m.MoveNode(id, c.Position), id)

	case RemoveNodeCommand:
		id, res, ok := lookup(m, c.Kind(), c.NodeID)
		if !ok {
			return res
		}
		return outcome(c.Kind(), m.RemoveNode(id), id)

	case SelectNodeCommand:
		if c.NodeID == "" {
			m.SelectNode(valueobjects.NodeID{})
			return Result{Kind: c.Kind(), Outcome: OutcomeApplied}
		}
		id, res, ok := lookup(m, c.Kind(), c.NodeID)
		if !ok {
			return res
		}
		m.SelectNode(id)
		return Result{Kind: c.Kind(), Outcome: OutcomeApplied, NodeID: id}

	case ReparentNodeCommand:
		return applyReparent(m, c)

	case ReplaceAllCommand:
		dropped := m.ReplaceAll(c.Nodes)
		res := outcome(c.Kind(), true, m.SelectedID())
		res.Dropped = dropped
		return res

	case AutoArrangeCommand:
		m.AutoArrange()
		return outcome(c.Kind(), true, valueobjects.NodeID{})

	default:
		return Result{
			Outcome: OutcomeRejected,
			err:     pkgerrors.NewValidationError(fmt.Sprintf("unsupported command %T", cmd)),
		}
	}
}

func applyAddNode(m *aggregates.MindMap, c AddNodeCommand) Result {
	params := aggregates.AddNodeParams{
		Question: c.Question,
		Answer:   c.Answer,
		Position: c.Position,
	}
	if c.NodeID != "" {
		id, err := valueobjects.NewNodeIDFromString(c.NodeID)
		if err != nil {
			return Result{Kind: c.Kind(), Outcome: OutcomeRejected, err: pkgerrors.NewValidationError(err.Error())}
		}
		params.ID = id
	}
	if c.ParentID != "" {
		pid, err := valueobjects.NewNodeIDFromString(c.ParentID)
		if err != nil {
			return Result{Kind: c.Kind(), Outcome: OutcomeNotFound, err: pkgerrors.ErrParentNotFound(c.ParentID)}
		}
		params.ParentID = pid
	}

	node, err := m.AddNode(params)
	if err != nil {
		res := Result{Kind: c.Kind(), Outcome: OutcomeRejected, err: err}
		if pkgerrors.IsNotFound(err) {
			res.Outcome = OutcomeNotFound
		}
		return res
	}
	return Result{Kind: c.Kind(), Outcome: OutcomeApplied, NodeID: node.ID()}
}

func applyReparent(m *aggregates.MindMap, c ReparentNodeCommand) Result {
	id, res, ok := lookup(m, c.Kind(), c.NodeID)
	if !ok {
		return res
	}
	var parent valueobjects.NodeID
	if c.ParentID != "" {
		pid, err := valueobjects.NewNodeIDFromString(c.ParentID)
		if err != nil || !m.Contains(pid) {
			return Result{Kind: c.Kind(), Outcome: OutcomeNotFound, NodeID: id, err: pkgerrors.ErrParentNotFound(c.ParentID)}
		}
		parent = pid
	}

	node, _ := m.Node(id)
	switch {
	case node.ParentID().Equals(parent):
		return Result{Kind: c.Kind(), Outcome: OutcomeUnchanged, NodeID: id}
	case id.Equals(parent) || m.IsDescendant(id, parent):
		return Result{Kind: c.Kind(), Outcome: OutcomeRejected, NodeID: id, err: pkgerrors.ErrCyclicReparent(c.NodeID, c.ParentID)}
	}
	return outcome(c.Kind(), m.ReparentNode(id, parent), id)
}

// lookup resolves a node id string, producing a not-found result when the
// id is malformed or absent.
func lookup(m *aggregates.MindMap, kind Kind, raw string) (valueobjects.NodeID, Result, bool) {
	id, err := valueobjects.NewNodeIDFromString(raw)
	if err != nil || !m.Contains(id) {
		return valueobjects.NodeID{}, Result{Kind: kind, Outcome: OutcomeNotFound, err: pkgerrors.ErrNodeNotFound(raw)}, false
	}
	return id, Result{}, true
}

func outcome(kind Kind, applied bool, id valueobjects.NodeID) Result {
	if applied {
		return Result{Kind: kind, Outcome: OutcomeApplied, NodeID: id}
	}
	return Result{Kind: kind, Outcome: OutcomeUnchanged, NodeID: id}
}

func rootOf(m *aggregates.MindMap) valueobjects.NodeID {
	roots := m.Roots()
	if len(roots) == 0 {
		return valueobjects.NodeID{}
	}
	return roots[0]
}
