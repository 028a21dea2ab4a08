package aggregates

import (
	"time"

	"github.com/zhaizeyu/smart-mind/domain/config"
	"github.com/zhaizeyu/smart-mind/domain/core/entities"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/domain/events"
	"github.com/zhaizeyu/smart-mind/domain/layout"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
)

// MindMap is the aggregate root holding a forest of question nodes and the
// current selection.
//
// Nodes live in a flat arena keyed by id; parent and child links are id
// references, so lookups are O(1). Operations on missing ids and invalid
// structural moves are no-ops reported through boolean results. A MindMap
// is not safe for concurrent use; callers serialize access.
type MindMap struct {
	id       string
	nodes    map[valueobjects.NodeID]*entities.Node
	roots    []valueobjects.NodeID
	selected valueobjects.NodeID

	cfg       *config.DomainConfig
	layoutCfg config.LayoutConfig
	now       func() time.Time
	newID     func() valueobjects.NodeID

	events []events.DomainEvent
}

// Option configures a MindMap
type Option func(*MindMap)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *MindMap) { m.now = now }
}

// WithIDGenerator overrides how new node ids are minted
func WithIDGenerator(gen func() valueobjects.NodeID) Option {
	return func(m *MindMap) { m.newID = gen }
}

// WithDomainConfig overrides the node defaults
func WithDomainConfig(cfg *config.DomainConfig) Option {
	return func(m *MindMap) {
		if cfg != nil {
			m.cfg = cfg
			m.layoutCfg = cfg.Layout
		}
	}
}

// WithLayoutConfig overrides the layout tunables
func WithLayoutConfig(cfg config.LayoutConfig) Option {
	return func(m *MindMap) { m.layoutCfg = cfg }
}

// NewMindMap creates an empty mind map. Callers normally follow with
// EnsureRoot or ReplaceAll.
func NewMindMap(id string, opts ...Option) *MindMap {
	cfg := config.DefaultDomainConfig()
	m := &MindMap{
		id:        id,
		nodes:     make(map[valueobjects.NodeID]*entities.Node),
		roots:     []valueobjects.NodeID{},
		cfg:       cfg,
		layoutCfg: cfg.Layout,
		now:       time.Now,
		newID:     valueobjects.NewNodeID,
		events:    []events.DomainEvent{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the mind map id
func (m *MindMap) ID() string {
	return m.id
}

// SetLayoutConfig changes the tunables used by later re-layouts
func (m *MindMap) SetLayoutConfig(cfg config.LayoutConfig) {
	m.layoutCfg = cfg
}

// LayoutConfig returns the tunables in effect
func (m *MindMap) LayoutConfig() config.LayoutConfig {
	return m.layoutCfg
}

// Read helpers

// Roots returns the ordered root ids. It implements layout.Forest.
func (m *MindMap) Roots() []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, len(m.roots))
	copy(out, m.roots)
	return out
}

// Children returns the ordered child ids of id. It implements layout.Forest.
func (m *MindMap) Children(id valueobjects.NodeID) []valueobjects.NodeID {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	return n.Children()
}

// Len returns the number of nodes in the forest
func (m *MindMap) Len() int {
	return len(m.nodes)
}

// IsEmpty reports whether the forest has no nodes
func (m *MindMap) IsEmpty() bool {
	return len(m.roots) == 0
}

// Node returns the node with the given id
func (m *MindMap) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Contains reports whether id is in the forest
func (m *MindMap) Contains(id valueobjects.NodeID) bool {
	_, ok := m.nodes[id]
	return ok
}

// SelectedID returns the selected id, zero when nothing is selected
func (m *MindMap) SelectedID() valueobjects.NodeID {
	return m.selected
}

// SelectedNode returns the selected node if the selection resolves
func (m *MindMap) SelectedNode() (*entities.Node, bool) {
	if m.selected.IsZero() {
		return nil, false
	}
	return m.Node(m.selected)
}

// Location is the result of FindNodeByID. Parent is nil for roots.
type Location struct {
	Node   *entities.Node
	Parent *entities.Node
}

// IsRoot reports whether the located node sits at the top level
func (l Location) IsRoot() bool {
	return l.Parent == nil
}

// FindNodeByID looks a node up in the arena and resolves its parent
func (m *MindMap) FindNodeByID(id valueobjects.NodeID) (Location, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return Location{}, false
	}
	loc := Location{Node: n}
	if !n.IsRoot() {
		loc.Parent = m.nodes[n.ParentID()]
	}
	return loc, true
}

// IsDescendant reports whether candidate lies in the subtree below ancestor.
// It walks parent links upward from candidate, so the cost is its depth.
func (m *MindMap) IsDescendant(ancestor, candidate valueobjects.NodeID) bool {
	n, ok := m.nodes[candidate]
	for ok && !n.IsRoot() {
		if n.ParentID().Equals(ancestor) {
			return true
		}
		n, ok = m.nodes[n.ParentID()]
	}
	return false
}

// SubtreeEntry is one node of a pre-order walk with its depth relative to
// the walk's starting node.
type SubtreeEntry struct {
	Node  *entities.Node
	Depth int
}

// Subtree walks the subtree rooted at id in pre-order. It returns nil when
// id is unknown.
func (m *MindMap) Subtree(id valueobjects.NodeID) []SubtreeEntry {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	var out []SubtreeEntry
	m.walk(n, 0, func(node *entities.Node, depth int) {
		out = append(out, SubtreeEntry{Node: node, Depth: depth})
	})
	return out
}

// Walk visits every node of the forest in pre-order, roots in order
func (m *MindMap) Walk(fn func(node *entities.Node, depth int)) {
	for _, rid := range m.roots {
		if root, ok := m.nodes[rid]; ok {
			m.walk(root, 0, fn)
		}
	}
}

func (m *MindMap) walk(n *entities.Node, depth int, fn func(*entities.Node, int)) {
	fn(n, depth)
	for _, cid := range n.Children() {
		if c, ok := m.nodes[cid]; ok {
			m.walk(c, depth+1, fn)
		}
	}
}

// Layout computes positions for the current forest without applying them
func (m *MindMap) Layout() map[valueobjects.NodeID]valueobjects.Position {
	return layout.Compute(m, m.layoutCfg)
}

// Mutations

// EnsureRoot synthesizes and selects a default root when the forest is
// empty. It reports whether a root was created.
func (m *MindMap) EnsureRoot() bool {
	if len(m.roots) > 0 {
		return false
	}
	now := m.now()
	id := m.newID()
	root := entities.NewNode(
		id,
		valueobjects.NodeID{},
		valueobjects.NewNodeContent(m.cfg.RootQuestion, nil),
		valueobjects.Position{X: m.cfg.RootX, Y: m.cfg.RootY},
		now,
	)
	m.nodes[id] = root
	m.roots = append(m.roots, id)
	m.selected = id
	m.addEvent(events.NewNodeAdded(m.id, id, valueobjects.NodeID{}, root.Question(), now))
	m.relayout()
	return true
}

// AddNodeParams describes a node to add. Zero ParentID adds a root; a nil
// Question or Position falls back to the configured defaults; zero ID mints
// a fresh one.
type AddNodeParams struct {
	ID       valueobjects.NodeID
	ParentID valueobjects.NodeID
	Question *string
	Answer   *string
	Position *valueobjects.Position
}

// AddNode creates a node, attaches it under its parent (or as a new root),
// selects it and re-runs the layout.
//
// An unknown parent is rejected: nothing is created and the forest and
// selection are unchanged. A caller-supplied id already in use is rejected
// the same way.
func (m *MindMap) AddNode(p AddNodeParams) (*entities.Node, error) {
	var parent *entities.Node
	if !p.ParentID.IsZero() {
		var ok bool
		parent, ok = m.nodes[p.ParentID]
		if !ok {
			return nil, pkgerrors.ErrParentNotFound(p.ParentID.String())
		}
	}

	id := p.ID
	if id.IsZero() {
		id = m.newID()
	}
	if _, taken := m.nodes[id]; taken {
		return nil, pkgerrors.ErrDuplicateNode(id.String())
	}

	question := m.cfg.DefaultQuestion
	if p.Question != nil {
		question = *p.Question
	}
	pos := valueobjects.Position{X: m.cfg.DefaultX, Y: m.cfg.DefaultY}
	if p.Position != nil {
		pos = *p.Position
	}

	now := m.now()
	node := entities.NewNode(id, p.ParentID, valueobjects.NewNodeContent(question, p.Answer), pos, now)
	m.nodes[id] = node
	if parent != nil {
		parent.AppendChild(id)
	} else {
		m.roots = append(m.roots, id)
	}
	m.selected = id

	m.addEvent(events.NewNodeAdded(m.id, id, p.ParentID, question, now))
	m.relayout()
	return node, nil
}

// NodeUpdate lists the fields to change; nil fields are left alone
type NodeUpdate struct {
	Question *string
	Answer   *string
	Position *valueobjects.Position
}

// UpdateNode applies the given fields and refreshes updatedAt. It does not
// re-run the layout, so a direct position change sticks until the next
// structural change or AutoArrange.
func (m *MindMap) UpdateNode(id valueobjects.NodeID, u NodeUpdate) bool {
	n, ok := m.nodes[id]
	if !ok {
		return false
	}
	now := m.now()

	if u.Question != nil || u.Answer != nil {
		before := n.Content()
		content := before
		if u.Question != nil {
			content = content.WithQuestion(*u.Question)
		}
		if u.Answer != nil {
			content = content.WithAnswer(*u.Answer)
		}
		n.UpdateContent(content, now)
		m.addEvent(events.NewNodeUpdated(m.id, id, before.Question(), content.Question(), content.HasAnswer(), now))
	}

	if u.Position != nil {
		before := n.Position()
		n.MoveTo(*u.Position, now)
		m.addEvent(events.NewNodeMoved(m.id, id, before, *u.Position, now))
	}

	n.Touch(now)
	return true
}

// MoveNode sets a node's position directly
func (m *MindMap) MoveNode(id valueobjects.NodeID, pos valueobjects.Position) bool {
	return m.UpdateNode(id, NodeUpdate{Position: &pos})
}

// RemoveNode deletes a node together with its subtree. When the selection
// falls inside the removed subtree it moves to the first remaining root. An
// emptied forest gets a fresh root.
func (m *MindMap) RemoveNode(id valueobjects.NodeID) bool {
	n, ok := m.nodes[id]
	if !ok {
		return false
	}

	if n.IsRoot() {
		m.roots = removeID(m.roots, id)
	} else if parent, ok := m.nodes[n.ParentID()]; ok {
		parent.RemoveChild(id)
	}

	removed := make([]valueobjects.NodeID, 0, 1)
	selectionRemoved := false
	m.walk(n, 0, func(node *entities.Node, _ int) {
		removed = append(removed, node.ID())
		if node.ID().Equals(m.selected) {
			selectionRemoved = true
		}
	})
	for _, rid := range removed {
		delete(m.nodes, rid)
	}

	if selectionRemoved {
		m.selected = valueobjects.NodeID{}
		if len(m.roots) > 0 {
			m.selected = m.roots[0]
		}
	}

	m.addEvent(events.NewNodeRemoved(m.id, id, removed, m.now()))
	if !m.EnsureRoot() {
		m.relayout()
	}
	return true
}

// SelectNode sets the selection. Zero clears it. The id is not checked;
// API callers are expected to pass an existing node.
func (m *MindMap) SelectNode(id valueobjects.NodeID) {
	m.selected = id
}

// ReparentNode moves a node, with its subtree, under newParent, or to the
// root level when newParent is zero. It is a no-op when the node is missing,
// the target parent is missing, the node already sits under that parent, or
// the target is the node itself or one of its descendants.
func (m *MindMap) ReparentNode(id, newParent valueobjects.NodeID) bool {
	if id.Equals(newParent) {
		return false
	}
	n, ok := m.nodes[id]
	if !ok {
		return false
	}
	if n.ParentID().Equals(newParent) {
		return false
	}
	var target *entities.Node
	if !newParent.IsZero() {
		target, ok = m.nodes[newParent]
		if !ok {
			return false
		}
		if m.IsDescendant(id, newParent) {
			return false
		}
	}

	oldParent := n.ParentID()
	if n.IsRoot() {
		m.roots = removeID(m.roots, id)
	} else if p, ok := m.nodes[oldParent]; ok {
		p.RemoveChild(id)
	}

	now := m.now()
	n.SetParent(newParent, now)
	if target != nil {
		target.AppendChild(id)
	} else {
		m.roots = append(m.roots, id)
	}

	m.addEvent(events.NewNodeReparented(m.id, id, oldParent, newParent, now))
	m.relayout()
	return true
}

// AutoArrange re-runs the layout engine over the whole forest
func (m *MindMap) AutoArrange() {
	m.relayout()
	m.addEvent(events.NewMindMapArranged(m.id, len(m.nodes), m.now()))
}

func (m *MindMap) relayout() {
	for id, pos := range layout.Compute(m, m.layoutCfg) {
		if n, ok := m.nodes[id]; ok {
			n.ApplyLayout(pos)
		}
	}
}

// Events

// GetUncommittedEvents returns the events recorded since the last commit
func (m *MindMap) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(m.events))
	copy(out, m.events)
	return out
}

// MarkEventsAsCommitted clears the recorded events
func (m *MindMap) MarkEventsAsCommitted() {
	m.events = []events.DomainEvent{}
}

func (m *MindMap) addEvent(event events.DomainEvent) {
	m.events = append(m.events, event)
}

func removeID(ids []valueobjects.NodeID, id valueobjects.NodeID) []valueobjects.NodeID {
	for i, v := range ids {
		if v.Equals(id) {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
