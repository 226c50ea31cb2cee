// Package graph holds the declarative skill/activity graph a sequencer is built from.
//
// A definition maps node identifiers to node specs. Each node spec lists its decision
// slots and, per slot, the value identifiers that can be chosen. A value identifier that
// is also a node key names a child node.
package graph

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition is returned for malformed graph definitions.
var ErrInvalidDefinition = errors.New("invalid graph definition")

// Flag is a boolean that also accepts 0/1, as written by older graph files.
type Flag bool

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	var b bool
	if err := value.Decode(&b); err == nil {
		*f = Flag(b)
		return nil
	}
	var i int
	if err := value.Decode(&i); err != nil {
		return fmt.Errorf("hierarchy flag %q: want bool or 0/1", value.Value)
	}
	*f = i != 0
	return nil
}

// NodeSpec describes one decision node.
type NodeSpec struct {
	// Slots lists, per decision slot, the value identifiers in that slot.
	Slots [][]string `json:"ssbg" yaml:"ssbg"`

	// Hierarchical marks slots whose values may unlock through child nodes.
	Hierarchical []Flag `json:"h,omitempty" yaml:"h,omitempty"`

	// Labels are display names, one per slot.
	Labels []string `json:"actions,omitempty" yaml:"actions,omitempty"`

	// NbStay is the minimum number of consecutive turns a slot keeps its choice.
	NbStay []int `json:"nb_stay,omitempty" yaml:"nb_stay,omitempty"`
}

// IsHierarchical reports whether slot i is flagged hierarchical.
func (n NodeSpec) IsHierarchical(i int) bool {
	return i >= 0 && i < len(n.Hierarchical) && bool(n.Hierarchical[i])
}

// Definition is a parsed graph: the root node and every node spec by identifier.
type Definition struct {
	Root  string              `json:"root" yaml:"root"`
	Nodes map[string]NodeSpec `json:"nodes" yaml:"nodes"`
}

// Load reads a definition from a YAML or JSON file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a definition. Two layouts are accepted: {root, nodes: {...}} and the flat
// layout where node identifiers are top-level keys next to "act_prime".
func Parse(data []byte) (*Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDefinition)
	}

	def := &Definition{Nodes: make(map[string]NodeSpec)}
	top := doc.Content[0]
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i].Value, top.Content[i+1]
		switch key {
		case "root", "act_prime":
			def.Root = val.Value
		case "nodes":
			var nodes map[string]NodeSpec
			if err := val.Decode(&nodes); err != nil {
				return nil, fmt.Errorf("%w: nodes: %v", ErrInvalidDefinition, err)
			}
			for id, spec := range nodes {
				def.Nodes[id] = spec
			}
		case "current_ssbg":
			// written by older tooling, carries no structure
		default:
			var spec NodeSpec
			if err := val.Decode(&spec); err != nil {
				return nil, fmt.Errorf("%w: node %s: %v", ErrInvalidDefinition, key, err)
			}
			def.Nodes[key] = spec
		}
	}

	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Normalize fills optional per-slot fields with their defaults.
func (d *Definition) Normalize() {
	for id, spec := range d.Nodes {
		n := len(spec.Slots)
		if spec.Hierarchical == nil {
			spec.Hierarchical = make([]Flag, n)
		}
		if spec.Labels == nil {
			spec.Labels = make([]string, n)
			for i := range spec.Labels {
				spec.Labels[i] = fmt.Sprintf("%s_act%d", id, i)
			}
		}
		if spec.NbStay == nil {
			spec.NbStay = make([]int, n)
			for i := range spec.NbStay {
				spec.NbStay[i] = 1
			}
		}
		d.Nodes[id] = spec
	}
}

// Validate checks the structural constraints of a normalized definition.
func (d *Definition) Validate() error {
	if d.Root == "" {
		return fmt.Errorf("%w: root node not set", ErrInvalidDefinition)
	}
	if _, ok := d.Nodes[d.Root]; !ok {
		return fmt.Errorf("%w: root node %q not defined", ErrInvalidDefinition, d.Root)
	}
	for id, spec := range d.Nodes {
		n := len(spec.Slots)
		if n == 0 {
			return fmt.Errorf("%w: node %q has no slots", ErrInvalidDefinition, id)
		}
		for i, values := range spec.Slots {
			if len(values) == 0 {
				return fmt.Errorf("%w: node %q slot %d has no values", ErrInvalidDefinition, id, i)
			}
		}
		if len(spec.Hierarchical) != n {
			return fmt.Errorf("%w: node %q has %d hierarchy flags for %d slots", ErrInvalidDefinition, id, len(spec.Hierarchical), n)
		}
		if len(spec.Labels) != n {
			return fmt.Errorf("%w: node %q has %d labels for %d slots", ErrInvalidDefinition, id, len(spec.Labels), n)
		}
		if len(spec.NbStay) != n {
			return fmt.Errorf("%w: node %q has %d nb_stay entries for %d slots", ErrInvalidDefinition, id, len(spec.NbStay), n)
		}
		for i, stay := range spec.NbStay {
			if stay < 1 {
				return fmt.Errorf("%w: node %q slot %d nb_stay must be >= 1, got %d", ErrInvalidDefinition, id, i, stay)
			}
		}
	}
	return nil
}

// IsNode reports whether id names a node of the definition.
func (d *Definition) IsNode(id string) bool {
	_, ok := d.Nodes[id]
	return ok
}

// Node returns the spec of node id.
func (d *Definition) Node(id string) (NodeSpec, bool) {
	spec, ok := d.Nodes[id]
	return spec, ok
}

// Children returns the child node identifiers of node id in slot order, without duplicates.
// Only values of hierarchical slots count as children.
func (d *Definition) Children(id string) []string {
	spec, ok := d.Nodes[id]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for i, values := range spec.Slots {
		if !spec.IsHierarchical(i) {
			continue
		}
		for _, v := range values {
			if !d.IsNode(v) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
