// Package learner produces feedback for the exercises a sequencer proposes.
package learner

import (
	"context"
	"fmt"
	"time"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
)

// Exercise is one proposed activity: the sampled action plus what a learner model needs
// to answer it.
type Exercise struct {
	Action bandit.Action `json:"action"`

	// KC is the value chosen in the root's first slot, the knowledge component practiced.
	KC string `json:"kc"`

	// Level is the one-hot activity level over the root's first slot.
	Level []float64 `json:"level"`

	// Difficulty averages, over every hierarchical slot of the action, the chosen value's
	// rank scaled to [0,1). 0 is the easiest value everywhere.
	Difficulty float64 `json:"difficulty"`
}

// Answer is a learner's response to an exercise.
type Answer struct {
	Correct float64   `json:"correct"`
	ErrorID string    `json:"error_id,omitempty"`
	When    time.Time `json:"when"`
}

// Learner answers exercises.
type Learner interface {
	ID() string
	Answer(ctx context.Context, ex Exercise) (Answer, error)
}

// NewExercise describes action against the tree it was sampled from.
func NewExercise(t *bandit.Tree, action bandit.Action) (Exercise, error) {
	level, err := t.ActivityLevel(action)
	if err != nil {
		return Exercise{}, err
	}
	root := t.Node(t.Root())
	ex := Exercise{
		Action: action,
		KC:     root.Dims[0].Values[action[t.Root()][0]],
		Level:  level,
	}

	var sum float64
	var n int
	for id, chosen := range action {
		g := t.Node(id)
		if g == nil {
			return Exercise{}, fmt.Errorf("%w: %s", bandit.ErrUnknownNode, id)
		}
		for d, v := range chosen {
			dim := g.Dims[d]
			if !dim.Hierarchical || dim.HasChildren() {
				continue
			}
			sum += float64(v) / float64(len(dim.Values))
			n++
		}
	}
	if n > 0 {
		ex.Difficulty = sum / float64(n)
	}
	return ex, nil
}

// Func adapts a function to the Learner interface.
type Func struct {
	Name string
	Fn   func(ctx context.Context, ex Exercise) (Answer, error)
}

// ID implements Learner.
func (f Func) ID() string { return f.Name }

// Answer implements Learner by calling Fn.
func (f Func) Answer(ctx context.Context, ex Exercise) (Answer, error) {
	return f.Fn(ctx, ex)
}
