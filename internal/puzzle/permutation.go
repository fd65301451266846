package puzzle

import (
	"fmt"
)

// Permutation is a bijection on facelet slots stored as a comes-from
// mapping: Mapping()[slot] is the solved slot whose facelet currently
// shows at slot.
type Permutation struct {
	mapping []int
}

// Identity returns the identity permutation on n slots.
func Identity(n int) Permutation {
	m := make([]int, n)
	for i := range m {
		m[i] = i
	}
	return Permutation{mapping: m}
}

// FromMapping builds a permutation from a comes-from mapping, rejecting
// anything that is not a bijection.
func FromMapping(mapping []int) (Permutation, error) {
	seen := make([]bool, len(mapping))
	for _, v := range mapping {
		if v < 0 || v >= len(mapping) {
			return Permutation{}, fmt.Errorf("mapping value %d out of range [0,%d)", v, len(mapping))
		}
		if seen[v] {
			return Permutation{}, fmt.Errorf("mapping value %d repeated", v)
		}
		seen[v] = true
	}
	m := make([]int, len(mapping))
	copy(m, mapping)
	return Permutation{mapping: m}, nil
}

func (p Permutation) Len() int {
	return len(p.mapping)
}

// ComesFrom returns the solved slot whose facelet currently shows at slot.
func (p Permutation) ComesFrom(slot int) int {
	return p.mapping[slot]
}

// Mapping returns a copy of the comes-from mapping.
func (p Permutation) Mapping() []int {
	m := make([]int, len(p.mapping))
	copy(m, p.mapping)
	return m
}

// Then returns the state reached by applying p and then q.
func (p Permutation) Then(q Permutation) Permutation {
	m := make([]int, len(p.mapping))
	for i := range m {
		m[i] = p.mapping[q.mapping[i]]
	}
	return Permutation{mapping: m}
}

func (p Permutation) Inverse() Permutation {
	m := make([]int, len(p.mapping))
	for i, v := range p.mapping {
		m[v] = i
	}
	return Permutation{mapping: m}
}

func (p Permutation) Equal(q Permutation) bool {
	if len(p.mapping) != len(q.mapping) {
		return false
	}
	for i, v := range p.mapping {
		if q.mapping[i] != v {
			return false
		}
	}
	return true
}

func (p Permutation) IsIdentity() bool {
	for i, v := range p.mapping {
		if v != i {
			return false
		}
	}
	return true
}

func (p Permutation) String() string {
	return fmt.Sprintf("Permutation%v", p.mapping)
}
