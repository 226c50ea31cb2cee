package learner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
	"github.com/zhaiiker/zpdes-sequencer/internal/graph"
)

func numeration(t *testing.T) *bandit.Tree {
	t.Helper()
	def, err := graph.Load(filepath.Join("..", "graph", "testdata", "numeration.yaml"))
	require.NoError(t, err)
	tree, err := bandit.Build(def, bandit.DefaultParams())
	require.NoError(t, err)
	return tree
}

func TestNewExercise(t *testing.T) {
	tree := numeration(t)

	ex, err := NewExercise(tree, bandit.Action{"MAIN": {1}, "R": {3, 2}})
	require.NoError(t, err)
	assert.Equal(t, "R", ex.KC)
	assert.Equal(t, []float64{0, 1, 0, 0}, ex.Level)
	assert.InDelta(t, 0.5, ex.Difficulty, 1e-9)

	ex, err = NewExercise(tree, bandit.Action{"MAIN": {0}, "M": {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, ex.Difficulty)

	_, err = NewExercise(tree, bandit.Action{"MAIN": {0}, "X": {0}})
	assert.ErrorIs(t, err, bandit.ErrUnknownNode)

	_, err = NewExercise(tree, bandit.Action{"M": {0, 0}})
	assert.ErrorIs(t, err, bandit.ErrInvalidAction)
}

func TestLogistic(t *testing.T) {
	assert.InDelta(t, 0.5, Logistic(0.6, 10, 0.6), 1e-12)
	assert.Greater(t, Logistic(1, 10, 0.6), 0.98)
	assert.Less(t, Logistic(0.2, 10, 0.6), 0.02)
}

func TestSimulated_ProbabilityFallsWithDifficulty(t *testing.T) {
	s := NewSimulated("a", 1, DefaultConfig())
	easy := s.Probability(Exercise{KC: "M", Difficulty: 0})
	hard := s.Probability(Exercise{KC: "M", Difficulty: 5.0 / 6})
	assert.Greater(t, easy, hard)
}

func TestSimulated_LearnsWithPractice(t *testing.T) {
	s := NewSimulated("a", 1, DefaultConfig())
	ex := Exercise{KC: "M", Difficulty: 0.5}
	before := s.Probability(ex)

	for i := 0; i < 100; i++ {
		ans, err := s.Answer(context.Background(), ex)
		require.NoError(t, err)
		if ans.Correct == 0 {
			assert.Contains(t, []string{"slip", "gap"}, ans.ErrorID)
		} else {
			assert.Empty(t, ans.ErrorID)
		}
	}
	assert.Greater(t, s.Probability(ex), before)
	assert.Greater(t, s.Skill("M"), DefaultConfig().InitialSkill)
	assert.Equal(t, DefaultConfig().InitialSkill, s.Skill("R"))
}

func TestSimulated_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulated("a", 1, DefaultConfig()).Answer(ctx, Exercise{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPopulation(t *testing.T) {
	pop := Population(3, 10, DefaultConfig())
	require.Len(t, pop, 3)
	assert.Equal(t, "learner-000", pop[0].ID())
	assert.Equal(t, "learner-002", pop[2].ID())
}

func TestFunc(t *testing.T) {
	l := Func{Name: "fixed", Fn: func(context.Context, Exercise) (Answer, error) {
		return Answer{Correct: 1}, nil
	}}
	ans, err := l.Answer(context.Background(), Exercise{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, ans.Correct)
	assert.Equal(t, "fixed", l.ID())
}
