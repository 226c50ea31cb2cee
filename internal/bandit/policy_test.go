package bandit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaiiker/zpdes-sequencer/internal/graph"
)

// singleSlot builds a tree with one node R holding one hierarchical slot.
func singleSlot(t *testing.T, p Params, values ...string) *Tree {
	t.Helper()
	def := &graph.Definition{
		Root: "R",
		Nodes: map[string]graph.NodeSpec{
			"R": {Slots: [][]string{values}, Hierarchical: []graph.Flag{true}},
		},
	}
	tree, err := Build(def, p)
	require.NoError(t, err)
	return tree
}

func play(t *testing.T, tree *Tree, val int, correctness float64, n int) []Transition {
	t.Helper()
	var out []Transition
	for i := 0; i < n; i++ {
		tr, err := tree.Update(Action{tree.Root(): {val}}, correctness, "")
		require.NoError(t, err)
		out = append(out, tr...)
	}
	return out
}

func TestInitialize(t *testing.T) {
	def := &graph.Definition{
		Root: "R",
		Nodes: map[string]graph.NodeSpec{
			"R": {
				Slots:        [][]string{{"l1", "l2", "l3"}, {"written", "oral"}},
				Hierarchical: []graph.Flag{true, false},
			},
		},
	}
	tree, err := Build(def, DefaultParams())
	require.NoError(t, err)

	g := tree.Node("R")
	assert.Equal(t, []float64{0.05, 0, 0}, g.Dims[0].Activations())
	assert.Equal(t, []float64{0.05, 0.05}, g.Dims[1].Activations())
}

func TestReward_TrendBoundary(t *testing.T) {
	tree := singleSlot(t, DefaultParams(), "v0")
	g := tree.Node("R")

	r, err := g.ComputeRewards([]int{0}, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05}, r)

	r, err = g.ComputeRewards([]int{0}, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05}, r, "two outcomes still return the activation")

	r, err = g.ComputeRewards([]int{0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r[0], 1e-9, "third outcome switches to the trend")
}

func TestReward_NeverNegative(t *testing.T) {
	tree := singleSlot(t, DefaultParams(), "v0")
	g := tree.Node("R")

	for _, c := range []float64{1, 1, 1, 1, 0, 0} {
		r, err := g.ComputeRewards([]int{0}, c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r[0], 0.0)
	}
}

func TestAsync_GrowsIntoFirstUntriedValue(t *testing.T) {
	tree := singleSlot(t, DefaultParams(), "v0", "v1", "v2")
	d := tree.Node("R").Dims[0]

	assert.Empty(t, play(t, tree, 0, 1, 2))
	assert.Equal(t, []int{0}, d.ActiveIndices())

	tr := play(t, tree, 0, 1, 1)
	require.Len(t, tr, 1)
	assert.Equal(t, "activate", tr[0].Kind())
	assert.Equal(t, "R", tr[0].Node)
	assert.Equal(t, 1, tr[0].Index)
	assert.InDelta(t, 0.04, tr[0].To, 1e-9)
	assert.Equal(t, []int{0, 1}, d.ActiveIndices())
}

func TestAsync_GrowthScalesWithPromoteCoeff(t *testing.T) {
	tests := []struct {
		name    string
		coeff   float64
		history []float64
		grows   bool
	}{
		{"unit coefficient", 1, []float64{1, 1, 1, 1, 1}, true},
		{"half coefficient", 0.5, []float64{1, 1, 1, 1, 1}, true},
		{"double coefficient", 2, []float64{1, 1, 1, 1, 1}, true},
		{"recent rate below threshold", 1, []float64{1, 1, 1, 0, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.UpZPDVal = 0.7
			p.PromoteCoeff = tt.coeff
			d := singleSlot(t, p, "v0", "v1", "v2").Node("R").Dims[0]
			d.Arms[0].History = tt.history
			d.Arms[0].Activation = 0.3

			tr := d.Promote()
			if !tt.grows {
				assert.Empty(t, tr)
				assert.Equal(t, []int{0}, d.ActiveIndices())
				return
			}
			require.Len(t, tr, 1)
			assert.Equal(t, 1, tr[0].Index)
			assert.Equal(t, 0.3*tt.coeff, tr[0].To)
			assert.Equal(t, 0.3*tt.coeff, d.Arms[1].Activation)
			assert.Zero(t, d.Arms[2].Activation)
		})
	}
}

func TestAsync_DeactivatesMasteredValue(t *testing.T) {
	tree := singleSlot(t, DefaultParams(), "v0", "v1", "v2")
	d := tree.Node("R").Dims[0]

	play(t, tree, 0, 1, 5)
	assert.Equal(t, []int{0, 1}, d.ActiveIndices())

	tr := play(t, tree, 0, 1, 1)
	require.Len(t, tr, 1)
	assert.Equal(t, "deactivate", tr[0].Kind())
	assert.Equal(t, 0, tr[0].Index)
	assert.Equal(t, []int{1}, d.ActiveIndices())
}

func TestAsync_KeepsLastActiveValue(t *testing.T) {
	tree := singleSlot(t, DefaultParams(), "v0")
	d := tree.Node("R").Dims[0]

	assert.Empty(t, play(t, tree, 0, 1, 20))
	assert.Equal(t, []int{0}, d.ActiveIndices())
}

func TestAsync_NoGrowthOnFailure(t *testing.T) {
	tree := singleSlot(t, DefaultParams(), "v0", "v1")
	d := tree.Node("R").Dims[0]

	play(t, tree, 0, 0, 10)
	assert.Equal(t, []int{0}, d.ActiveIndices())
}

func TestWindowed_FillsThenSlides(t *testing.T) {
	p := DefaultParams()
	p.Strategy = ModeWindowed
	tree := singleSlot(t, p, "v0", "v1", "v2", "v3", "v4")
	d := tree.Node("R").Dims[0]

	play(t, tree, 0, 1, 2)
	assert.Equal(t, []int{0}, d.ActiveIndices())
	play(t, tree, 0, 1, 1)
	assert.Equal(t, []int{0, 1}, d.ActiveIndices())
	assert.Equal(t, d.Arms[0].Activation, d.Arms[1].Activation)

	play(t, tree, 1, 1, 3)
	assert.Equal(t, []int{0, 1, 2}, d.ActiveIndices())

	// Window is full; the first value slides out once the last one has enough outcomes.
	play(t, tree, 2, 1, 5)
	assert.Equal(t, []int{0, 1, 2}, d.ActiveIndices())

	tr := play(t, tree, 2, 1, 1)
	require.Len(t, tr, 2)
	assert.Equal(t, "deactivate", tr[0].Kind())
	assert.Equal(t, 0, tr[0].Index)
	assert.Equal(t, "activate", tr[1].Kind())
	assert.Equal(t, 3, tr[1].Index)

	acts := d.Activations()
	assert.Equal(t, []int{1, 2, 3}, d.ActiveIndices())
	assert.InDelta(t, min(acts[1], acts[2])/2, acts[3], 1e-12)
}

func TestWindowed_NoSlideWithoutMastery(t *testing.T) {
	p := DefaultParams()
	p.Strategy = ModeWindowed
	tree := singleSlot(t, p, "v0", "v1", "v2", "v3")
	d := tree.Node("R").Dims[0]

	play(t, tree, 0, 1, 3)
	play(t, tree, 1, 1, 3)
	require.Equal(t, []int{0, 1, 2}, d.ActiveIndices())

	// Recent failures on the first value keep it in the window.
	play(t, tree, 0, 0, 3)
	play(t, tree, 2, 1, 6)
	assert.Equal(t, []int{0, 1, 2}, d.ActiveIndices())
}

func TestWindowed_ActiveUntriedValueIsNotRegrown(t *testing.T) {
	p := DefaultParams()
	p.Strategy = ModeWindowed
	d := singleSlot(t, p, "v0", "v1", "v2", "v3", "v4").Node("R").Dims[0]

	// Three values tried, the window slid to v2 and opened v3, which has not been played.
	for i := 0; i < 3; i++ {
		d.Arms[i].History = []float64{1, 1, 1, 1, 1, 1}
	}
	d.Arms[0].Activation = 0
	d.Arms[2].Activation = 0.1
	d.Arms[3].Activation = 0.05

	assert.Empty(t, d.Promote())
	assert.Equal(t, []float64{0, 0, 0.1, 0.05, 0}, d.Activations())
}

func TestTransition_Kind(t *testing.T) {
	assert.Equal(t, "activate", Transition{From: 0, To: 0.1}.Kind())
	assert.Equal(t, "deactivate", Transition{From: 0.1, To: 0}.Kind())
	assert.Equal(t, "rescale", Transition{From: 0.1, To: 0.2}.Kind())
	assert.Equal(t, "activate R[0]=v1 0->0.04", Transition{Node: "R", Value: "v1", To: 0.04}.String())
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, ModeAsync, StrategyFor(ModeAsync).Mode())
	assert.Equal(t, ModeWindowed, StrategyFor(ModeWindowed).Mode())
	assert.Equal(t, ModeAsync, StrategyFor("").Mode())
}
