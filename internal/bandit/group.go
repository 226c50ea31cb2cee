package bandit

import (
	"fmt"
	"slices"

	"github.com/zhaiiker/zpdes-sequencer/internal/graph"
)

// Group is one decision node: a fixed set of slots played together each turn.
type Group struct {
	ID     string
	Labels []string
	NbStay []int
	Dims   []*Bandit

	// Turns counts updates per slot.
	Turns []int
}

func newGroup(id string, spec graph.NodeSpec, p Params) *Group {
	g := &Group{
		ID:     id,
		Labels: append([]string(nil), spec.Labels...),
		NbStay: append([]int(nil), spec.NbStay...),
		Dims:   make([]*Bandit, len(spec.Slots)),
		Turns:  make([]int, len(spec.Slots)),
	}
	for i, values := range spec.Slots {
		label := ""
		if i < len(spec.Labels) {
			label = spec.Labels[i]
		}
		g.Dims[i] = newBandit(i, label, values, spec.IsHierarchical(i), p)
	}
	return g
}

// InitializePromotion opens the starting zone of every slot.
func (g *Group) InitializePromotion() {
	for _, d := range g.Dims {
		d.initialize()
	}
}

// Link records that value of slot dim unlocks child.
func (g *Group) Link(dim int, value string, child *Group) error {
	if dim < 0 || dim >= len(g.Dims) {
		return fmt.Errorf("%w: node %s has no slot %d", ErrUnresolvedChild, g.ID, dim)
	}
	if child == nil || child.ID != value {
		return fmt.Errorf("%w: node %s slot %d value %s", ErrUnresolvedChild, g.ID, dim, value)
	}
	d := g.Dims[dim]
	if slices.Index(d.Values, value) < 0 {
		return fmt.Errorf("%w: node %s slot %d has no value %s", ErrUnresolvedChild, g.ID, dim, value)
	}
	d.children[value] = child
	return nil
}

// Child returns the group unlocked by choosing val in slot dim, or nil.
func (g *Group) Child(dim, val int) *Group {
	if dim < 0 || dim >= len(g.Dims) {
		return nil
	}
	return g.Dims[dim].Child(val)
}

// ComputeRewards records outcome coeff for the chosen value of every slot and returns one
// trend reward per slot.
func (g *Group) ComputeRewards(chosen []int, coeff float64) ([]float64, error) {
	if err := g.checkAction(chosen); err != nil {
		return nil, err
	}
	return g.rewards(chosen, coeff), nil
}

// Update applies one turn of feedback: rewards for every slot, activation reinforcement
// of the chosen values, then promotion of every slot.
func (g *Group) Update(chosen []int, coeff float64) ([]Transition, error) {
	if err := g.checkAction(chosen); err != nil {
		return nil, err
	}
	g.record(chosen, coeff)
	return g.promote(), nil
}

func (g *Group) rewards(chosen []int, coeff float64) []float64 {
	out := make([]float64, len(g.Dims))
	for i, d := range g.Dims {
		out[i] = d.Reward(chosen[i], coeff)
	}
	return out
}

func (g *Group) record(chosen []int, coeff float64) {
	rewards := g.rewards(chosen, coeff)
	for i, d := range g.Dims {
		g.Turns[i]++
		d.Reinforce(chosen[i], max(0, rewards[i]))
	}
}

func (g *Group) promote() []Transition {
	var out []Transition
	for _, d := range g.Dims {
		for _, t := range d.Promote() {
			t.Node = g.ID
			out = append(out, t)
		}
	}
	return out
}

func (g *Group) checkAction(chosen []int) error {
	if len(chosen) != len(g.Dims) {
		return fmt.Errorf("%w: node %s expects %d choices, got %d", ErrInvalidAction, g.ID, len(g.Dims), len(chosen))
	}
	for i, c := range chosen {
		if c < 0 || c >= len(g.Dims[i].Arms) {
			return fmt.Errorf("%w: node %s slot %d index %d out of range", ErrInvalidAction, g.ID, i, c)
		}
	}
	return nil
}

// Mastery averages, over every value of every hierarchical slot, the success rate of
// the last stepMax outcomes. Untried values count as a single failure.
func (g *Group) Mastery(stepMax int) float64 {
	var sum float64
	var n int
	for _, d := range g.Dims {
		if !d.Hierarchical {
			continue
		}
		for _, a := range d.Arms {
			h := a.History
			if len(h) == 0 {
				h = []float64{0}
			}
			sum += mean(h[len(h)-min(len(h), stepMax):])
			n++
		}
	}
	return sum / float64(max(n, 1))
}

// DimState is a read-only view of one slot.
type DimState struct {
	Label        string    `json:"label"`
	Hierarchical bool      `json:"hierarchical"`
	Values       []string  `json:"values"`
	Activations  []float64 `json:"activations"`
	HistoryLens  []int     `json:"history_lens"`
}

// GroupState is a read-only view of a group.
type GroupState struct {
	ID    string     `json:"id"`
	Turns []int      `json:"turns"`
	Dims  []DimState `json:"dims"`
}

// State returns a snapshot of the group.
func (g *Group) State() GroupState {
	s := GroupState{
		ID:    g.ID,
		Turns: append([]int(nil), g.Turns...),
		Dims:  make([]DimState, len(g.Dims)),
	}
	for i, d := range g.Dims {
		s.Dims[i] = DimState{
			Label:        d.Label,
			Hierarchical: d.Hierarchical,
			Values:       append([]string(nil), d.Values...),
			Activations:  d.Activations(),
			HistoryLens:  d.HistoryLens(),
		}
	}
	return s
}
