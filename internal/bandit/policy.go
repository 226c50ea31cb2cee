package bandit

import (
	"fmt"
	"slices"
)

// Strategy moves the active zone of a terminal hierarchical slot after each turn.
//
// Implementations keep a bounded set of active values that are neither mastered nor
// untried, and never deactivate the last active value.
type Strategy interface {
	Mode() PromotionMode
	Promote(b *Bandit)
}

// StrategyFor returns the strategy for mode, defaulting to Async.
func StrategyFor(mode PromotionMode) Strategy {
	if mode == ModeWindowed {
		return Windowed{}
	}
	return Async{}
}

// Transition is one activation change made by promotion.
type Transition struct {
	Node  string  `json:"node"`
	Dim   int     `json:"dim"`
	Index int     `json:"index"`
	Value string  `json:"value"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
}

// Kind classifies the change as "activate", "deactivate" or "rescale".
func (t Transition) Kind() string {
	switch {
	case t.From == 0 && t.To != 0:
		return "activate"
	case t.To == 0:
		return "deactivate"
	default:
		return "rescale"
	}
}

func (t Transition) String() string {
	return fmt.Sprintf("%s %s[%d]=%s %.4g->%.4g", t.Kind(), t.Node, t.Dim, t.Value, t.From, t.To)
}

// Async grows the zone into the first untried value while the active values succeed,
// and independently drops the best-mastered value.
type Async struct{}

// Mode implements Strategy.
func (Async) Mode() PromotionMode { return ModeAsync }

// Promote implements Strategy.
func (Async) Promote(b *Bandit) {
	p := b.params
	stepMax := p.StepMax()

	active := b.ActiveIndices()
	lens := b.HistoryLens()
	if len(active) > 0 && b.successRate(-stepMax, End, active, 2) > p.UpZPDVal {
		if next := slices.Index(lens, 0); next >= 0 {
			b.Arms[next].Activation = b.minActivation(active) * p.PromoteCoeff
		}
	}

	best, bestRate := -1, 0.0
	active = b.ActiveIndices()
	for _, v := range active {
		if lens[v] < p.StepUpdate {
			continue
		}
		r := b.Arms[v].SuccessRate(-p.StepUpdate, End, 2)
		if best < 0 || r > bestRate {
			best, bestRate = v, r
		}
	}
	if best >= 0 && bestRate > p.DeactZPDVal && len(active) > 1 {
		b.Arms[best].Activation = 0
	}
}

// Windowed opens values one by one until SizeWindow of them have been tried, then slides
// the window up by one value each time its easiest value is mastered.
type Windowed struct{}

// Mode implements Strategy.
func (Windowed) Mode() PromotionMode { return ModeWindowed }

// Promote implements Strategy.
func (Windowed) Promote(b *Bandit) {
	p := b.params
	stepMax := p.StepMax()
	size := min(p.SizeWindow, len(b.Arms))

	active := b.ActiveIndices()
	lens := b.HistoryLens()
	if len(active) == 0 {
		return
	}

	tried := len(lens) - count(lens, 0)
	if next := slices.Index(lens, 0); tried < size && next >= 0 {
		if next == 0 {
			return
		}
		prev := b.Arms[next-1]
		if prev.SuccessRate(-stepMax, End, 2) > p.UpZPDVal && prev.Len() > 1 {
			b.Arms[next].Activation = prev.Activation
		}
		return
	}

	first, last := active[0], active[len(active)-1]
	if first == last {
		return
	}
	recent := b.Arms[first].Trailing(stepMax)
	if len(recent) == 0 {
		return
	}
	if mean(recent) > p.DeactZPDVal && lens[last] >= p.StepUpdate {
		b.Arms[first].Activation = 0
		if first+3 < len(b.Arms) {
			b.Arms[first+3].Activation = min(b.Arms[first+2].Activation, b.Arms[first+1].Activation) / 2
		}
	}
}

func count(xs []int, x int) int {
	n := 0
	for _, v := range xs {
		if v == x {
			n++
		}
	}
	return n
}
