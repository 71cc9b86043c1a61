package evolution

import (
	"encoding/json"
	"sort"
	"strings"
)

// Direction selects which way an evolution edge points relative to the
// species it was fetched for.
type Direction string

const (
	Forward Direction = "forward"
	Reverse Direction = "reverse"
)

// SpeciesRef identifies a species. Name is the trimmed, case-sensitive key
// returned by the gateway; an empty Image means the species has no image.
type SpeciesRef struct {
	Name  string
	Image string
}

type speciesRefJSON struct {
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// MarshalJSON encodes a missing image as null.
func (s SpeciesRef) MarshalJSON() ([]byte, error) {
	out := speciesRefJSON{Name: s.Name}
	if s.Image != "" {
		img := s.Image
		out.Image = &img
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both null and "" as "no image".
func (s *SpeciesRef) UnmarshalJSON(data []byte) error {
	var in speciesRefJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Name = in.Name
	s.Image = ""
	if in.Image != nil {
		s.Image = *in.Image
	}
	return nil
}

// Edge is a directed evolution relation. FamilyTag is the gateway's
// per-edge "type" and only influences traversal depth.
type Edge struct {
	From      SpeciesRef `json:"from"`
	To        SpeciesRef `json:"to"`
	Direction Direction  `json:"direction"`
	FamilyTag string     `json:"family_tag,omitempty"`
}

// Node is one species in a built tree. Nodes are never shared between trees.
type Node struct {
	Species  SpeciesRef `json:"species"`
	Children []Node     `json:"children"`
	Depth    int        `json:"depth"`
}

// Result is the bidirectional tree rooted at a single species.
type Result struct {
	Species     SpeciesRef `json:"species"`
	Forward     []Node     `json:"forward_evolutions"`
	Reverse     []Node     `json:"reverse_evolutions"`
	FamilyLarge bool       `json:"is_family_large"`
	Expanded    bool       `json:"is_expanded"`
	DepthLimit  int        `json:"depth_limit"`
}

// MaxPathDepth returns the deepest node depth found under nodes.
func MaxPathDepth(nodes []Node) int {
	deepest := 0
	for _, n := range nodes {
		d := n.Depth
		if c := MaxPathDepth(n.Children); c > d {
			d = c
		}
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}

// ExpansionSet records which species the user asked to see fully expanded.
// The zero value is an empty, usable set.
type ExpansionSet struct {
	names map[string]struct{}
}

// NewExpansionSet returns a set holding the given names.
func NewExpansionSet(names ...string) ExpansionSet {
	s := ExpansionSet{}
	for _, n := range names {
		s = s.With(n)
	}
	return s
}

// Has reports whether name (trimmed) is in the set.
func (s ExpansionSet) Has(name string) bool {
	_, ok := s.names[strings.TrimSpace(name)]
	return ok
}

// With returns a copy of the set that includes name.
func (s ExpansionSet) With(name string) ExpansionSet {
	name = strings.TrimSpace(name)
	if name == "" {
		return s
	}
	out := s.clone()
	out.names[name] = struct{}{}
	return out
}

// Without returns a copy of the set that excludes name.
func (s ExpansionSet) Without(name string) ExpansionSet {
	out := s.clone()
	delete(out.names, strings.TrimSpace(name))
	return out
}

// Toggle returns a copy with name flipped.
func (s ExpansionSet) Toggle(name string) ExpansionSet {
	if s.Has(name) {
		return s.Without(name)
	}
	return s.With(name)
}

// Len returns the number of names in the set.
func (s ExpansionSet) Len() int { return len(s.names) }

// Names returns the set's members in sorted order.
func (s ExpansionSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s ExpansionSet) clone() ExpansionSet {
	out := ExpansionSet{names: make(map[string]struct{}, len(s.names)+1)}
	for n := range s.names {
		out.names[n] = struct{}{}
	}
	return out
}
