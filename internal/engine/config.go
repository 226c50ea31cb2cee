// Package engine runs sequencing sessions: each learner gets its own bandit tree and
// sampler, and every turn samples an exercise, collects the answer and updates the tree.
package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
	"github.com/zhaiiker/zpdes-sequencer/internal/learner"
)

// ErrInvalidConfig is returned when an engine configuration fails validation.
var ErrInvalidConfig = errors.New("invalid engine config")

// Config holds all configuration for a batch of sessions.
type Config struct {
	// Graph is the path of the graph definition file.
	Graph string `yaml:"graph"`

	// Learners is the number of simulated learners.
	Learners int `yaml:"learners" validate:"gte=1"`

	// Turns is the number of exercises per learner.
	Turns int `yaml:"turns" validate:"gte=1"`

	// Concurrency is the number of sessions run in parallel.
	Concurrency int `yaml:"concurrency" validate:"gte=1"`

	// Seed is the random seed (0 = time-based).
	Seed int64 `yaml:"seed"`

	// Gamma is the uniform exploration share of the sampler.
	Gamma float64 `yaml:"gamma" validate:"gte=0,lte=1"`

	// Verbose enables progress logging.
	Verbose bool `yaml:"verbose"`

	Params  bandit.Params  `yaml:"params"`
	Learner learner.Config `yaml:"learner"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Learners:    10,
		Turns:       100,
		Concurrency: 4,
		Gamma:       0.1,
		Params:      bandit.DefaultParams(),
		Learner:     learner.DefaultConfig(),
	}
}

var validate = validator.New()

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ApplyDefaults fills in the fields whose zero value is invalid. Gamma keeps an
// explicit 0; LoadConfig and DefaultConfig start from 0.1.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.Learners <= 0 {
		c.Learners = defaults.Learners
	}
	if c.Turns <= 0 {
		c.Turns = defaults.Turns
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	c.Params.ApplyDefaults()
	if c.Learner == (learner.Config{}) {
		c.Learner = defaults.Learner
	}
}

// LoadConfig reads a YAML config file, applies environment overrides and defaults.
// An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from ZPDES_SEED and ZPDES_CONCURRENCY.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv("ZPDES_SEED")); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: ZPDES_SEED: %v", ErrInvalidConfig, err)
		}
		c.Seed = seed
	}
	if v := strings.TrimSpace(os.Getenv("ZPDES_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: ZPDES_CONCURRENCY: %v", ErrInvalidConfig, err)
		}
		c.Concurrency = n
	}
	return nil
}
