package learner

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Config shapes the simulated learners of a population.
type Config struct {
	// Eta and Alpha shape the logistic response curve.
	Eta   float64 `json:"eta" yaml:"eta" validate:"gte=0"`
	Alpha float64 `json:"alpha" yaml:"alpha" validate:"gte=0,lte=1"`

	// InitialSkill is the starting skill for every knowledge component.
	InitialSkill float64 `json:"initial_skill" yaml:"initial_skill" validate:"gte=0,lte=1"`

	// LearningRate scales the skill gain of each exercise.
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the response curve of the reference simulations.
func DefaultConfig() Config {
	return Config{
		Eta:          10,
		Alpha:        0.6,
		InitialSkill: 0.1,
		LearningRate: 0.05,
	}
}

// Logistic is 1/(1+exp(-eta*(x-alpha))).
func Logistic(x, eta, alpha float64) float64 {
	return 1 / (1 + math.Exp(-eta*(x-alpha)))
}

// Simulated is a learner whose success probability follows a logistic curve of the gap
// between its skill on the exercise's knowledge component and the exercise difficulty.
// Practice raises skill, more so on exercises it gets right.
type Simulated struct {
	id  string
	cfg Config

	mu     sync.Mutex
	rng    *rand.Rand
	skills map[string]float64
}

// NewSimulated creates a simulated learner.
func NewSimulated(id string, seed int64, cfg Config) *Simulated {
	if cfg.Eta <= 0 {
		cfg.Eta = DefaultConfig().Eta
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = DefaultConfig().Alpha
	}
	return &Simulated{
		id:     id,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		skills: make(map[string]float64),
	}
}

// Population creates n simulated learners with consecutive seeds.
func Population(n int, seed int64, cfg Config) []Learner {
	out := make([]Learner, n)
	for i := range out {
		out[i] = NewSimulated(fmt.Sprintf("learner-%03d", i), seed+int64(i), cfg)
	}
	return out
}

func (s *Simulated) ID() string { return s.id }

// Skill returns the current skill on kc.
func (s *Simulated) Skill(kc string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skill(kc)
}

func (s *Simulated) skill(kc string) float64 {
	if v, ok := s.skills[kc]; ok {
		return v
	}
	return s.cfg.InitialSkill
}

// Probability returns the chance of a correct answer to ex.
func (s *Simulated) Probability(ex Exercise) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probability(ex)
}

func (s *Simulated) probability(ex Exercise) float64 {
	return Logistic(1+s.skill(ex.KC)-ex.Difficulty, s.cfg.Eta, s.cfg.Alpha)
}

// Answer draws a response and updates skill.
func (s *Simulated) Answer(ctx context.Context, ex Exercise) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.probability(ex)
	out := Answer{When: time.Now()}
	if s.rng.Float64() < p {
		out.Correct = 1
	} else if p >= 0.5 {
		out.ErrorID = "slip"
	} else {
		out.ErrorID = "gap"
	}

	gain := s.cfg.LearningRate * (0.5 + 0.5*out.Correct)
	sk := s.skill(ex.KC)
	s.skills[ex.KC] = sk + gain*(1-sk)
	return out, nil
}
