package engine

import (
	"time"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
)

// StepRecord is one turn of a session.
type StepRecord struct {
	Session string        `json:"session"`
	Learner string        `json:"learner"`
	Turn    int           `json:"turn"`
	Action  bandit.Action `json:"action"`

	KC         string  `json:"kc"`
	Difficulty float64 `json:"difficulty"`
	Correct    float64 `json:"correct"`
	ErrorID    string  `json:"error_id,omitempty"`

	Transitions []bandit.Transition `json:"transitions,omitempty"`
	ActiveArms  int                 `json:"active_arms"`
	When        time.Time           `json:"when"`
}

// Summary aggregates a set of turns.
type Summary struct {
	Turns       int     `json:"turns"`
	SuccessRate float64 `json:"success_rate"`
	Activations int     `json:"activations"`
	Deactivated int     `json:"deactivations"`
	ActiveArms  int     `json:"active_arms"`
}

// SessionResult is the outcome of one session.
type SessionResult struct {
	ID      string              `json:"id"`
	Learner string              `json:"learner"`
	Summary Summary             `json:"summary"`
	Final   []bandit.GroupState `json:"final"`
	Steps   []StepRecord        `json:"-"`
}

// Response holds the results of a batch run, in learner order.
type Response struct {
	Seed     int64           `json:"seed"`
	Sessions []SessionResult `json:"sessions"`
}

// Steps returns every step record, session by session.
func (r Response) Steps() []StepRecord {
	var n int
	for _, s := range r.Sessions {
		n += len(s.Steps)
	}
	out := make([]StepRecord, 0, n)
	for _, s := range r.Sessions {
		out = append(out, s.Steps...)
	}
	return out
}

// Summary aggregates every session. ActiveArms is the total over final trees.
func (r Response) Summary() Summary {
	var out Summary
	var correct float64
	for _, s := range r.Sessions {
		out.Turns += s.Summary.Turns
		out.Activations += s.Summary.Activations
		out.Deactivated += s.Summary.Deactivated
		out.ActiveArms += s.Summary.ActiveArms
		correct += s.Summary.SuccessRate * float64(s.Summary.Turns)
	}
	if out.Turns > 0 {
		out.SuccessRate = correct / float64(out.Turns)
	}
	return out
}

func summarize(steps []StepRecord, activeArms int) Summary {
	out := Summary{
		Turns:       len(steps),
		SuccessRate: successRate(steps),
		ActiveArms:  activeArms,
	}
	for _, st := range steps {
		for _, tr := range st.Transitions {
			switch tr.Kind() {
			case "activate":
				out.Activations++
			case "deactivate":
				out.Deactivated++
			}
		}
	}
	return out
}

func successRate(steps []StepRecord) float64 {
	if len(steps) == 0 {
		return 0
	}
	var sum float64
	for _, st := range steps {
		sum += st.Correct
	}
	return sum / float64(len(steps))
}
