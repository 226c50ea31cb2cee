package bandit

// Bandit is one decision slot of a group: an ordered set of values, each backed by an Arm.
// Values are ordered by difficulty; the active ones form the slot's current ZPD.
type Bandit struct {
	Index        int
	Label        string
	Values       []string
	Arms         []*Arm
	Hierarchical bool

	// children maps a value identifier to the group it unlocks. Lookup only, the tree owns
	// the groups.
	children map[string]*Group

	params   Params
	strategy Strategy
}

func newBandit(index int, label string, values []string, hierarchical bool, p Params) *Bandit {
	arms := make([]*Arm, len(values))
	for i := range arms {
		arms[i] = &Arm{}
	}
	return &Bandit{
		Index:        index,
		Label:        label,
		Values:       append([]string(nil), values...),
		Arms:         arms,
		Hierarchical: hierarchical,
		children:     make(map[string]*Group),
		params:       p,
		strategy:     StrategyFor(p.Strategy),
	}
}

// Child returns the group unlocked by value val, or nil.
func (b *Bandit) Child(val int) *Group {
	if val < 0 || val >= len(b.Values) {
		return nil
	}
	return b.children[b.Values[val]]
}

// HasChildren reports whether any value of this slot links to a child group.
func (b *Bandit) HasChildren() bool {
	return len(b.children) > 0
}

// ActiveIndices returns the indices of active values in order.
func (b *Bandit) ActiveIndices() []int {
	var out []int
	for i, a := range b.Arms {
		if a.Active() {
			out = append(out, i)
		}
	}
	return out
}

// Activations returns a copy of the activation vector.
func (b *Bandit) Activations() []float64 {
	out := make([]float64, len(b.Arms))
	for i, a := range b.Arms {
		out[i] = a.Activation
	}
	return out
}

// HistoryLens returns the number of recorded outcomes per value.
func (b *Bandit) HistoryLens() []int {
	out := make([]int, len(b.Arms))
	for i, a := range b.Arms {
		out[i] = a.Len()
	}
	return out
}

// Reward records outcome coeff for value val and returns the trend reward: the current
// activation while the value has two outcomes or fewer, then the gain of the recent half
// of the trailing window over the older half, floored at zero.
func (b *Bandit) Reward(val int, coeff float64) float64 {
	arm := b.Arms[val]
	arm.Record(coeff)

	n := arm.Len()
	if n <= 2 {
		return arm.Activation
	}
	step := min(b.params.StepUpdate, n)
	half := step / 2
	older := mean(window(arm.History, -step, -half))
	recent := mean(window(arm.History, -half, End))
	return max(0, recent-older)
}

// Reinforce moves the activation of an active value toward reward r.
func (b *Bandit) Reinforce(val int, r float64) {
	arm := b.Arms[val]
	arm.Turns++
	if !arm.Active() {
		return
	}
	arm.Activation = b.params.Beta*arm.Activation + b.params.Eta*r
}

// initialize opens the starting zone: every value of a plain slot, only the easiest value
// of a hierarchical slot.
func (b *Bandit) initialize() {
	n := len(b.Arms)
	if b.Hierarchical {
		n = 1
	}
	for i := 0; i < n; i++ {
		b.Arms[i].Activation = b.params.UniformVal
	}
}

// Promote runs one promotion step and returns the activation changes it made. Plain
// slots keep their initial zone.
func (b *Bandit) Promote() []Transition {
	if !b.Hierarchical {
		return nil
	}
	before := b.Activations()
	if b.HasChildren() {
		b.promoteFromChildren()
	} else {
		b.strategy.Promote(b)
	}

	var out []Transition
	for i, a := range b.Arms {
		if a.Activation != before[i] {
			out = append(out, Transition{
				Dim:   b.Index,
				Index: i,
				Value: b.Values[i],
				From:  before[i],
				To:    a.Activation,
			})
		}
	}
	return out
}

// promoteFromChildren opens value i once the child group behind value i-1 is mastered.
func (b *Bandit) promoteFromChildren() {
	stepMax := b.params.StepMax()
	for i := 1; i < len(b.Arms); i++ {
		prev := b.Arms[i-1]
		if b.Arms[i].Active() || !prev.Active() {
			continue
		}
		child := b.children[b.Values[i-1]]
		if child == nil {
			continue
		}
		if child.Mastery(stepMax) > b.params.ThresHierarProm {
			b.Arms[i].Activation = prev.Activation * b.params.HierPromoteCoeff
		}
	}
}

// successRate averages the per-value rates over the window [first:last] of the given
// values. A value with minSamples outcomes or fewer in the window contributes 0.
func (b *Bandit) successRate(first, last int, vals []int, minSamples int) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += b.Arms[v].SuccessRate(first, last, minSamples)
	}
	return sum / float64(len(vals))
}

func (b *Bandit) minActivation(vals []int) float64 {
	m := b.Arms[vals[0]].Activation
	for _, v := range vals[1:] {
		m = min(m, b.Arms[v].Activation)
	}
	return m
}
