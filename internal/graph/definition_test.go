package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NestedYAML(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "numeration.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "MAIN", def.Root)
	assert.Len(t, def.Nodes, 5)

	main, ok := def.Node("MAIN")
	require.True(t, ok)
	assert.True(t, main.IsHierarchical(0))
	assert.Equal(t, []string{"exercise_type"}, main.Labels)
	assert.Equal(t, []int{1}, main.NbStay)

	m, ok := def.Node("M")
	require.True(t, ok)
	assert.True(t, m.IsHierarchical(0))
	assert.False(t, m.IsHierarchical(1))
	assert.Equal(t, []string{"M", "R", "MM", "RM"}, def.Children("MAIN"))
	assert.Empty(t, def.Children("M"))
}

func TestLoad_FlatJSON(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "flat.json"))
	require.NoError(t, err)

	assert.Equal(t, "MAIN", def.Root)
	assert.Len(t, def.Nodes, 3)

	main, _ := def.Node("MAIN")
	assert.Equal(t, []int{2}, main.NbStay)
	assert.Equal(t, []string{"MAIN_act0"}, main.Labels)

	b, _ := def.Node("B")
	assert.Equal(t, []string{"b_level", "b_style"}, b.Labels)
	assert.True(t, b.IsHierarchical(0))
	assert.False(t, b.IsHierarchical(1))
	assert.Equal(t, []int{1, 1}, b.NbStay)
}

func TestParse_Defaults(t *testing.T) {
	def, err := Parse([]byte(`
root: top
nodes:
  top:
    ssbg: [[a, b], [c]]
`))
	require.NoError(t, err)

	top, _ := def.Node("top")
	assert.Equal(t, []Flag{false, false}, top.Hierarchical)
	assert.Equal(t, []string{"top_act0", "top_act1"}, top.Labels)
	assert.Equal(t, []int{1, 1}, top.NbStay)
	assert.False(t, def.IsNode("a"))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not a mapping", doc: `[1, 2]`},
		{name: "no root", doc: "nodes:\n  a:\n    ssbg: [[x]]\n"},
		{name: "unknown root", doc: "root: b\nnodes:\n  a:\n    ssbg: [[x]]\n"},
		{name: "no slots", doc: "root: a\nnodes:\n  a:\n    ssbg: []\n"},
		{name: "empty slot", doc: "root: a\nnodes:\n  a:\n    ssbg: [[]]\n"},
		{name: "flag count", doc: "root: a\nnodes:\n  a:\n    ssbg: [[x], [y]]\n    h: [1]\n"},
		{name: "label count", doc: "root: a\nnodes:\n  a:\n    ssbg: [[x]]\n    actions: [p, q]\n"},
		{name: "zero stay", doc: "root: a\nnodes:\n  a:\n    ssbg: [[x]]\n    nb_stay: [0]\n"},
		{name: "bad flag", doc: "root: a\nnodes:\n  a:\n    ssbg: [[x]]\n    h: [maybe]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}
