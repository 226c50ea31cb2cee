// Package cache keeps summaries of past runs in a JSON file so parameter sets can be
// compared across invocations.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/zhaiiker/zpdes-sequencer/internal/engine"
)

// RunEntry is the best recorded outcome of one graph/parameter combination.
type RunEntry struct {
	Key         string    `json:"key"`
	Graph       string    `json:"graph"`
	Strategy    string    `json:"strategy"`
	StepUpdate  int       `json:"step_update"`
	Learners    int       `json:"learners"`
	Turns       int       `json:"turns"`
	Seed        int64     `json:"seed"`
	SuccessRate float64   `json:"success_rate"`
	Activations int       `json:"activations"`
	ActiveArms  int       `json:"active_arms"`
	LastRun     time.Time `json:"last_run"`
	RunCount    int       `json:"run_count"`
}

// Cache holds the recorded runs.
type Cache struct {
	Version   int        `json:"version"`
	UpdatedAt time.Time  `json:"updated_at"`
	Runs      []RunEntry `json:"runs"`
}

const (
	// CurrentVersion is the current cache format version.
	CurrentVersion = 1
	// DefaultCacheFile is the default cache file path.
	DefaultCacheFile = ".zpdes_runs.json"
)

func empty() *Cache {
	return &Cache{
		Version:   CurrentVersion,
		UpdatedAt: time.Now(),
		Runs:      []RunEntry{},
	}
}

// Load loads the cache from a file. A missing or unreadable file yields an empty cache.
func Load(path string) (*Cache, error) {
	if path == "" {
		path = DefaultCacheFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty(), nil
		}
		return nil, err
	}

	var c Cache
	if err := json.Unmarshal(data, &c); err != nil || c.Version != CurrentVersion {
		return empty(), nil
	}
	return &c, nil
}

// Save saves the cache to a file.
func (c *Cache) Save(path string) error {
	if path == "" {
		path = DefaultCacheFile
	}

	c.UpdatedAt = time.Now()
	c.Version = CurrentVersion

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EntryFor describes a finished run.
func EntryFor(cfg engine.Config, res engine.Response) RunEntry {
	sum := res.Summary()
	return RunEntry{
		Key:         fmt.Sprintf("%s|%s|%d", cfg.Graph, cfg.Params.Strategy, cfg.Params.StepUpdate),
		Graph:       cfg.Graph,
		Strategy:    string(cfg.Params.Strategy),
		StepUpdate:  cfg.Params.StepUpdate,
		Learners:    cfg.Learners,
		Turns:       cfg.Turns,
		Seed:        res.Seed,
		SuccessRate: sum.SuccessRate,
		Activations: sum.Activations,
		ActiveArms:  sum.ActiveArms,
		LastRun:     time.Now(),
	}
}

// Update merges new entries by key, keeping each key's best success rate, and keeps
// the maxCount best entries.
func (c *Cache) Update(entries []RunEntry, maxCount int) {
	if maxCount <= 0 {
		maxCount = 20
	}

	byKey := make(map[string]*RunEntry, len(c.Runs)+len(entries))
	for i := range c.Runs {
		e := c.Runs[i]
		byKey[e.Key] = &e
	}

	for _, n := range entries {
		existing, ok := byKey[n.Key]
		if !ok {
			e := n
			e.RunCount = 1
			byKey[n.Key] = &e
			continue
		}
		count := existing.RunCount + 1
		if n.SuccessRate > existing.SuccessRate {
			*existing = n
		} else {
			existing.LastRun = n.LastRun
		}
		existing.RunCount = count
	}

	result := make([]RunEntry, 0, len(byKey))
	for _, e := range byKey {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SuccessRate != result[j].SuccessRate {
			return result[i].SuccessRate > result[j].SuccessRate
		}
		return result[i].Key < result[j].Key
	})
	if len(result) > maxCount {
		result = result[:maxCount]
	}
	c.Runs = result
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.Runs = []RunEntry{}
}

// Len returns the number of recorded entries.
func (c *Cache) Len() int {
	return len(c.Runs)
}
