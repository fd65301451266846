package puzzle

import (
	"fmt"
)

// Generator is a named group generator, e.g. one face turn of a cube.
type Generator struct {
	Name string
	Perm Permutation
}

// Group is a permutation group acting on facelet slots, described by its
// solved coloring and a generator set.
type Group struct {
	colors  []string
	palette []string
	gens    []Generator
}

// NewGroup builds a group over len(colors) facelets. colors[slot] is the
// color shown at slot in the solved state; the distinct palette is derived
// in first-seen order.
func NewGroup(colors []string, gens []Generator) (*Group, error) {
	if len(colors) == 0 {
		return nil, fmt.Errorf("group needs at least one facelet")
	}
	for _, g := range gens {
		if g.Perm.Len() != len(colors) {
			return nil, fmt.Errorf("generator %q acts on %d slots, want %d", g.Name, g.Perm.Len(), len(colors))
		}
	}

	var palette []string
	seen := map[string]bool{}
	for _, c := range colors {
		if !seen[c] {
			seen[c] = true
			palette = append(palette, c)
		}
	}

	cs := make([]string, len(colors))
	copy(cs, colors)

	return &Group{colors: cs, palette: palette, gens: gens}, nil
}

func (g *Group) FaceletCount() int {
	return len(g.colors)
}

// FaceletColors returns the solved color per slot. The returned slice must
// not be modified.
func (g *Group) FaceletColors() []string {
	return g.colors
}

// Colors returns the distinct color palette in first-seen slot order.
func (g *Group) Colors() []string {
	return g.palette
}

func (g *Group) Generators() []Generator {
	return g.gens
}

func (g *Group) Generator(name string) (Permutation, bool) {
	for _, gen := range g.gens {
		if gen.Name == name {
			return gen.Perm, true
		}
	}
	return Permutation{}, false
}

// Restricted returns the subgroup whose generators act as the original ones
// on slots with keep[slot] and as the identity elsewhere. The generators
// must map the kept slot set to itself.
func (g *Group) Restricted(keep []bool) (*Group, error) {
	if len(keep) != len(g.colors) {
		return nil, fmt.Errorf("keep mask has %d slots, want %d", len(keep), len(g.colors))
	}

	gens := make([]Generator, 0, len(g.gens))
	for _, gen := range g.gens {
		m := gen.Perm.Mapping()
		for i := range m {
			if !keep[i] {
				m[i] = i
			}
		}
		perm, err := FromMapping(m)
		if err != nil {
			return nil, fmt.Errorf("generator %q does not preserve the kept slots: %w", gen.Name, err)
		}
		gens = append(gens, Generator{Name: gen.Name, Perm: perm})
	}

	return NewGroup(g.colors, gens)
}
