// Package bandit implements the ZPDES hierarchical structured bandit engine.
//
// A Tree owns one Group per graph node. A Group holds one Bandit per decision slot, and a
// Bandit holds one Arm per value of that slot. Activation values gate sampling: a value
// with zero activation is outside the learner's zone of proximal development and is never
// sampled. Promotion moves that zone as success histories accumulate.
//
// None of the types here are safe for concurrent use. A tree belongs to one learner
// session and is updated by one goroutine at a time.
package bandit

import "math"

// End marks an open upper bound in SuccessRate and window slices.
const End = math.MaxInt

// Arm is one selectable value: its activation and the outcomes recorded while it was played.
type Arm struct {
	// Activation is the sampling weight. Zero means inactive.
	Activation float64

	// History holds one outcome per turn the value was chosen, oldest first.
	History []float64

	// Turns counts the updates applied to this value.
	Turns int
}

// Active reports whether the arm can be sampled.
func (a *Arm) Active() bool {
	return a.Activation != 0
}

// Len returns the number of recorded outcomes.
func (a *Arm) Len() int {
	return len(a.History)
}

// Record appends an outcome.
func (a *Arm) Record(outcome float64) {
	a.History = append(a.History, outcome)
}

// Trailing returns the last n outcomes, or all of them when fewer exist.
func (a *Arm) Trailing(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n > len(a.History) {
		n = len(a.History)
	}
	return a.History[len(a.History)-n:]
}

// SuccessRate returns the mean of History[first:last] using signed offsets, negative
// values counting from the end. It returns 0 when the window holds minSamples outcomes
// or fewer.
func (a *Arm) SuccessRate(first, last, minSamples int) float64 {
	w := window(a.History, first, last)
	if len(w) <= minSamples {
		return 0
	}
	return mean(w)
}

// window slices h; negative bounds count from the end and out-of-range bounds are clamped.
func window(h []float64, first, last int) []float64 {
	n := len(h)
	lo, hi := clampIndex(first, n), clampIndex(last, n)
	if hi <= lo {
		return nil
	}
	return h[lo:hi]
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	return i
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
