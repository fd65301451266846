package cv

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// colorStore holds every white-balance-corrected observation recorded for
// one (slot, color) pair: the raw append-only point log for persistence and
// a k-d tree over the same points for neighbor queries.
type colorStore struct {
	points []kdtree.Point
	tree   *kdtree.Tree
}

func newColorStore() *colorStore {
	return &colorStore{}
}

func (s *colorStore) add(v r3.Vector) {
	p := kdtree.Point{v.X, v.Y, v.Z}
	s.points = append(s.points, p)
	if s.tree == nil {
		s.tree = kdtree.New(kdtree.Points{p}, false)
		return
	}
	s.tree.Insert(p, false)
}

func (s *colorStore) len() int {
	return len(s.points)
}
