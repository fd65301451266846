package puzzle

import (
	"fmt"
)

// Piece is one rigid cubie: the facelet slots it carries, ordered
// counterclockwise as seen from outside the puzzle. Cyclic shifts of this
// order are exactly the orientations a rigid move can put the piece in.
type Piece struct {
	Stickers []int
}

// Orbit is a maximal set of pieces the move group permutes among
// themselves. All pieces in an orbit carry the same number of stickers.
type Orbit struct {
	Name   string
	Pieces []Piece
}

func (o Orbit) OrientationCount() int {
	return len(o.Pieces[0].Stickers)
}

// StickerMask returns a mask over all n slots marking this orbit's stickers.
func (o Orbit) StickerMask(n int) []bool {
	mask := make([]bool, n)
	for _, p := range o.Pieces {
		for _, s := range p.Stickers {
			mask[s] = true
		}
	}
	return mask
}

// Model is a complete puzzle description: the permutation group acting on
// facelet slots plus the piece/orbit structure the matcher needs.
type Model struct {
	name   string
	group  *Group
	orbits []Orbit
}

// NewModel wraps a group and its orbit decomposition. The orbits must
// partition the facelet slots and every piece within an orbit must carry the
// same number of stickers.
func NewModel(name string, group *Group, orbits []Orbit) (*Model, error) {
	seen := make([]bool, group.FaceletCount())
	for _, o := range orbits {
		if len(o.Pieces) == 0 {
			return nil, fmt.Errorf("orbit %q has no pieces", o.Name)
		}
		size := len(o.Pieces[0].Stickers)
		for _, p := range o.Pieces {
			if len(p.Stickers) != size {
				return nil, fmt.Errorf("orbit %q mixes piece sizes %d and %d", o.Name, size, len(p.Stickers))
			}
			for _, s := range p.Stickers {
				if s < 0 || s >= len(seen) {
					return nil, fmt.Errorf("orbit %q: slot %d out of range [0,%d)", o.Name, s, len(seen))
				}
				if seen[s] {
					return nil, fmt.Errorf("slot %d appears in more than one piece", s)
				}
				seen[s] = true
			}
		}
	}
	for s, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("slot %d belongs to no piece", s)
		}
	}
	return &Model{name: name, group: group, orbits: orbits}, nil
}

func (m *Model) Name() string    { return m.name }
func (m *Model) Group() *Group   { return m.group }
func (m *Model) Orbits() []Orbit { return m.orbits }
