package bandit

import (
	"fmt"
	"math/rand"
)

type stayKey struct {
	node string
	dim  int
}

type stayState struct {
	value int
	turns int
}

// Sampler draws actions from a tree. Each slot picks an active value with probability
// proportional to its activation, mixed with a uniform draw over the active values.
// Choosing a value that links to a child group visits that group in the same round.
type Sampler struct {
	rng   *rand.Rand
	gamma float64

	// stay holds the last choice per slot for nb_stay.
	stay map[stayKey]stayState
}

// NewSampler creates a sampler. gamma is the share of uniform exploration among active
// values, clamped to [0,1].
func NewSampler(seed int64, gamma float64) *Sampler {
	return &Sampler{
		rng:   rand.New(rand.NewSource(seed)),
		gamma: min(max(gamma, 0), 1),
		stay:  make(map[stayKey]stayState),
	}
}

// Sample walks the tree from the root and returns the chosen value per slot of every
// visited node.
func (s *Sampler) Sample(t *Tree) (Action, error) {
	action := make(Action)
	queue := []*Group{t.nodes[t.root]}
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		if _, seen := action[g.ID]; seen {
			continue
		}

		chosen := make([]int, len(g.Dims))
		for d := range g.Dims {
			v, err := s.choose(g, d)
			if err != nil {
				return nil, err
			}
			chosen[d] = v
		}
		action[g.ID] = chosen

		for d, v := range chosen {
			if child := g.Child(d, v); child != nil {
				queue = append(queue, child)
			}
		}
	}
	return action, nil
}

func (s *Sampler) choose(g *Group, dim int) (int, error) {
	b := g.Dims[dim]
	active := b.ActiveIndices()
	if len(active) == 0 {
		return 0, fmt.Errorf("%w: node %s slot %d", ErrNoActiveArm, g.ID, dim)
	}

	key := stayKey{node: g.ID, dim: dim}
	if st, ok := s.stay[key]; ok && st.turns < g.stayFor(dim) && b.Arms[st.value].Active() {
		st.turns++
		s.stay[key] = st
		return st.value, nil
	}

	v := s.weighted(b, active)
	s.stay[key] = stayState{value: v, turns: 1}
	return v, nil
}

func (s *Sampler) weighted(b *Bandit, active []int) int {
	var total float64
	for _, v := range active {
		total += b.Arms[v].Activation
	}
	uniform := 1 / float64(len(active))

	u := s.rng.Float64()
	var acc float64
	for _, v := range active {
		p := uniform
		if total > 0 {
			p = (1-s.gamma)*b.Arms[v].Activation/total + s.gamma*uniform
		}
		acc += p
		if u < acc {
			return v
		}
	}
	return active[len(active)-1]
}

// stayFor returns how many consecutive rounds slot dim keeps its value.
func (g *Group) stayFor(dim int) int {
	if dim < len(g.NbStay) {
		return g.NbStay[dim]
	}
	return 1
}
