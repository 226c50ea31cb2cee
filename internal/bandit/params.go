package bandit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for tree construction and updates.
var (
	ErrInvalidParams   = errors.New("invalid bandit parameters")
	ErrUnknownNode     = errors.New("unknown node")
	ErrInvalidAction   = errors.New("invalid action")
	ErrCycle           = errors.New("hierarchy cycle")
	ErrUnresolvedChild = errors.New("unresolved child node")
	ErrNoActiveArm     = errors.New("no active arm")
)

// PromotionMode selects how a terminal hierarchical dimension moves its active window.
type PromotionMode string

const (
	// ModeAsync grows the frontier into the first untried value and drops the best
	// mastered value independently.
	ModeAsync PromotionMode = "async"

	// ModeWindowed keeps a fixed-width window of active values that slides upward.
	ModeWindowed PromotionMode = "windowed"
)

// UnmarshalYAML accepts the mode name or the legacy 0/1 selector.
func (m *PromotionMode) UnmarshalYAML(value *yaml.Node) error {
	var i int
	if err := value.Decode(&i); err == nil {
		if i == 0 {
			*m = ModeAsync
		} else {
			*m = ModeWindowed
		}
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*m = PromotionMode(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// Params holds the promotion and reinforcement constants shared by every group of a tree.
type Params struct {
	// StepUpdate is the trailing window used for the trend reward and demotion checks.
	StepUpdate int `json:"step_update" yaml:"step_update" validate:"gte=2"`

	// SizeWindow is the number of simultaneously active values in windowed mode.
	SizeWindow int `json:"size_window" yaml:"size_window" validate:"gte=1"`

	// ThresZBegin is kept for parameter-file compatibility; neither strategy reads it.
	ThresZBegin float64 `json:"thres_z_begin" yaml:"thres_z_begin" validate:"gte=0,lte=1"`

	// UpZPDVal is the success rate above which the zone grows.
	UpZPDVal float64 `json:"up_zpd_val" yaml:"up_zpd_val" validate:"gte=0,lte=1"`

	// DeactZPDVal is the success rate above which a value counts as mastered.
	DeactZPDVal float64 `json:"deact_zpd_val" yaml:"deact_zpd_val" validate:"gte=0,lte=1"`

	// ThresHierarProm is the child mastery needed to unlock the next parent value.
	ThresHierarProm float64 `json:"thres_hierar_prom" yaml:"thres_hierar_prom" validate:"gte=0,lte=1"`

	PromoteCoeff     float64 `json:"promote_coeff" yaml:"promote_coeff" validate:"gt=0"`
	HierPromoteCoeff float64 `json:"h_promote_coeff" yaml:"h_promote_coeff" validate:"gt=0"`

	// UniformVal is the activation given to values opened at initialization.
	UniformVal float64 `json:"uniformval" yaml:"uniformval" validate:"gt=0"`

	// Beta and Eta drive the activation update of a chosen value: a = Beta*a + Eta*r.
	Beta float64 `json:"beta" yaml:"beta" validate:"gt=0,lte=1"`
	Eta  float64 `json:"eta" yaml:"eta" validate:"gte=0"`

	Strategy PromotionMode `json:"strategy" yaml:"strategy" validate:"oneof=async windowed"`
}

var validate = validator.New()

// DefaultParams returns the parameter set used by the reference ZPDES experiments.
func DefaultParams() Params {
	return Params{
		StepUpdate:       6,
		SizeWindow:       3,
		ThresZBegin:      0.3,
		UpZPDVal:         0.5,
		DeactZPDVal:      0.6,
		ThresHierarProm:  0.3,
		PromoteCoeff:     1,
		HierPromoteCoeff: 1,
		UniformVal:       0.05,
		Beta:             0.8,
		Eta:              0.2,
		Strategy:         ModeAsync,
	}
}

// ApplyDefaults fills in the fields whose zero value is invalid. Thresholds and Eta
// keep an explicit 0. A zero Params becomes DefaultParams.
func (p *Params) ApplyDefaults() {
	defaults := DefaultParams()
	if *p == (Params{}) {
		*p = defaults
		return
	}

	if p.StepUpdate <= 0 {
		p.StepUpdate = defaults.StepUpdate
	}
	if p.SizeWindow <= 0 {
		p.SizeWindow = defaults.SizeWindow
	}
	if p.PromoteCoeff == 0 {
		p.PromoteCoeff = defaults.PromoteCoeff
	}
	if p.HierPromoteCoeff == 0 {
		p.HierPromoteCoeff = defaults.HierPromoteCoeff
	}
	if p.UniformVal == 0 {
		p.UniformVal = defaults.UniformVal
	}
	if p.Beta == 0 {
		p.Beta = defaults.Beta
	}
	if p.Strategy == "" {
		p.Strategy = defaults.Strategy
	}
}

// Validate validates the parameters and returns an error if invalid.
func (p *Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// StepMax is the short trailing window, half of StepUpdate.
func (p Params) StepMax() int {
	return p.StepUpdate / 2
}
