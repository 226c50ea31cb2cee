package bandit

import (
	"fmt"

	"github.com/zhaiiker/zpdes-sequencer/internal/graph"
)

// Action is one decision round: for every visited node, the chosen value index per slot.
type Action map[string][]int

// FeedbackFunc maps a learner's correctness and optional error identifier to the outcome
// recorded in success histories.
type FeedbackFunc func(correctness float64, errorID string) float64

// IdentityFeedback records correctness as is.
func IdentityFeedback(correctness float64, _ string) float64 {
	return correctness
}

// Option configures a Tree at build time.
type Option func(*Tree)

// WithFeedback replaces the identity feedback mapping.
func WithFeedback(f FeedbackFunc) Option {
	return func(t *Tree) {
		if f != nil {
			t.feedback = f
		}
	}
}

// Tree manages the groups built from a graph definition, keyed by node identifier.
type Tree struct {
	root     string
	nodes    map[string]*Group
	order    []string
	params   Params
	feedback FeedbackFunc
}

// Build instantiates the root group and recursively every child group reachable through
// hierarchical slots. A node reachable from several parents is built once and linked
// from each of them. A hierarchy edge back to a node under construction is rejected.
func Build(def *graph.Definition, p Params, opts ...Option) (*Tree, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", graph.ErrInvalidDefinition)
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, err
	}

	t := &Tree{
		root:     def.Root,
		nodes:    make(map[string]*Group, len(def.Nodes)),
		params:   p,
		feedback: IdentityFeedback,
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.add(def, def.Root, make(map[string]bool)); err != nil {
		return nil, err
	}
	for _, id := range t.order {
		t.nodes[id].InitializePromotion()
	}
	return t, nil
}

// add builds node id and its unbuilt descendants. building holds the nodes on the
// current recursion path.
func (t *Tree) add(def *graph.Definition, id string, building map[string]bool) error {
	spec, ok := def.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnresolvedChild, id)
	}
	g := newGroup(id, spec, t.params)
	t.nodes[id] = g
	t.order = append(t.order, id)

	building[id] = true
	defer delete(building, id)

	for _, c := range def.Children(id) {
		if building[c] {
			return fmt.Errorf("%w: %s -> %s", ErrCycle, id, c)
		}
		if _, built := t.nodes[c]; !built {
			if err := t.add(def, c, building); err != nil {
				return err
			}
		}
	}

	for dim, values := range spec.Slots {
		if !spec.IsHierarchical(dim) {
			continue
		}
		for _, v := range values {
			if !def.IsNode(v) {
				continue
			}
			if err := g.Link(dim, v, t.nodes[v]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Root returns the root node identifier.
func (t *Tree) Root() string {
	return t.root
}

// Node returns the group for id, or nil.
func (t *Tree) Node(id string) *Group {
	return t.nodes[id]
}

// Nodes returns node identifiers in build order.
func (t *Tree) Nodes() []string {
	return append([]string(nil), t.order...)
}

// Params returns the parameters the tree was built with.
func (t *Tree) Params() Params {
	return t.params
}

// Update routes one turn of feedback to every node named in the action. Rewards and
// histories are recorded for all nodes before any node promotes, so hierarchical
// promotion sees every child outcome of the turn regardless of node order. The action
// is checked in full before any state changes.
func (t *Tree) Update(action Action, correctness float64, errorID string) ([]Transition, error) {
	ids := t.participants(action)
	if len(ids) != len(action) {
		for id := range action {
			if _, ok := t.nodes[id]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
			}
		}
	}
	for _, id := range ids {
		if err := t.nodes[id].checkAction(action[id]); err != nil {
			return nil, err
		}
	}

	coeff := t.feedback(correctness, errorID)
	for _, id := range ids {
		t.nodes[id].record(action[id], coeff)
	}
	var out []Transition
	for _, id := range ids {
		out = append(out, t.nodes[id].promote()...)
	}
	return out, nil
}

// participants returns the known nodes of the action in build order.
func (t *Tree) participants(action Action) []string {
	ids := make([]string, 0, len(action))
	for _, id := range t.order {
		if _, ok := action[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ActivityLevel returns the one-hot level of the exercise over the values of the root's
// first slot.
func (t *Tree) ActivityLevel(action Action) ([]float64, error) {
	root := t.nodes[t.root]
	chosen, ok := action[t.root]
	if !ok {
		return nil, fmt.Errorf("%w: root %s not in action", ErrInvalidAction, t.root)
	}
	if err := root.checkAction(chosen); err != nil {
		return nil, err
	}
	if len(chosen) == 0 {
		return nil, fmt.Errorf("%w: root %s has no slots", ErrInvalidAction, t.root)
	}
	lvl := make([]float64, len(root.Dims[0].Arms))
	lvl[chosen[0]] = 1
	return lvl, nil
}

// Snapshot returns the state of every group in build order.
func (t *Tree) Snapshot() []GroupState {
	out := make([]GroupState, len(t.order))
	for i, id := range t.order {
		out[i] = t.nodes[id].State()
	}
	return out
}

// ActiveCount returns the number of active values across the tree.
func (t *Tree) ActiveCount() int {
	n := 0
	for _, g := range t.nodes {
		for _, d := range g.Dims {
			n += len(d.ActiveIndices())
		}
	}
	return n
}
