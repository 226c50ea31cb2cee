package bandit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaiiker/zpdes-sequencer/internal/graph"
)

func TestSampler_OnlyActiveValues(t *testing.T) {
	tree, err := Build(loadGraph(t, "numeration.yaml"), DefaultParams())
	require.NoError(t, err)
	s := NewSampler(42, 0.2)

	for turn := 0; turn < 200; turn++ {
		action, err := s.Sample(tree)
		require.NoError(t, err)

		main := action["MAIN"]
		require.Len(t, main, 1)
		child := tree.Node("MAIN").Dims[0].Values[main[0]]
		require.Len(t, action, 2)
		require.Contains(t, action, child)

		for id, chosen := range action {
			g := tree.Node(id)
			for d, v := range chosen {
				require.True(t, g.Dims[d].Arms[v].Active(), "turn %d: %s slot %d value %d inactive", turn, id, d, v)
			}
		}

		_, err = tree.Update(action, float64(turn%3/2), "")
		require.NoError(t, err)
	}
}

func TestSampler_Deterministic(t *testing.T) {
	run := func() []Action {
		tree, err := Build(loadGraph(t, "numeration.yaml"), DefaultParams())
		require.NoError(t, err)
		s := NewSampler(11, 0.1)
		var out []Action
		for i := 0; i < 50; i++ {
			a, err := s.Sample(tree)
			require.NoError(t, err)
			_, err = tree.Update(a, 1, "")
			require.NoError(t, err)
			out = append(out, a)
		}
		return out
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("same seed produced different sequences:\n%s", diff)
	}
}

func TestSampler_NbStay(t *testing.T) {
	def := &graph.Definition{
		Root: "R",
		Nodes: map[string]graph.NodeSpec{
			"R": {Slots: [][]string{{"x", "y", "z"}}, NbStay: []int{3}},
		},
	}
	tree, err := Build(def, DefaultParams())
	require.NoError(t, err)
	s := NewSampler(5, 1)

	var picks []int
	for i := 0; i < 12; i++ {
		a, err := s.Sample(tree)
		require.NoError(t, err)
		picks = append(picks, a["R"][0])
	}
	for i := 0; i < len(picks); i += 3 {
		assert.Equal(t, picks[i], picks[i+1], "picks %v", picks)
		assert.Equal(t, picks[i], picks[i+2], "picks %v", picks)
	}
}

func TestSampler_NoActiveArm(t *testing.T) {
	tree, err := Build(twoLevel(), DefaultParams())
	require.NoError(t, err)
	tree.Node("R").Dims[0].Arms[0].Activation = 0

	_, err = NewSampler(1, 0).Sample(tree)
	assert.ErrorIs(t, err, ErrNoActiveArm)
}

func TestSampler_GammaClamped(t *testing.T) {
	assert.Equal(t, 1.0, NewSampler(1, 3).gamma)
	assert.Equal(t, 0.0, NewSampler(1, -1).gamma)
}
