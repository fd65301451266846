package cv

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

const (
	// k-NN density estimation: k = clamp(min(maxNeighbors, n/neighborFraction), 1, n).
	maxNeighbors     = 10
	neighborFraction = 8

	// Duplicate observations put the k-th neighbor at distance zero, which
	// would make the estimate infinite. Capping keeps every downstream
	// confidence finite while still letting exact repeats dominate.
	densityCeiling = 1e12
)

// density estimates the local probability density of the store's points at
// the query color using the k-nearest-neighbor estimator: the fraction of
// points inside the ball reaching the k-th neighbor, divided by the ball's
// volume. Reports false when the store has no observations.
func (s *colorStore) density(q r3.Vector) (float64, bool) {
	n := len(s.points)
	if n == 0 {
		return 0, false
	}

	k := n / neighborFraction
	if k > maxNeighbors {
		k = maxNeighbors
	}
	if k < 1 {
		k = 1
	}

	keeper := kdtree.NewNKeeper(k)
	s.tree.NearestSet(keeper, kdtree.Point{q.X, q.Y, q.Z})

	found := 0
	maxSq := 0.0
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		found++
		if cd.Dist > maxSq {
			maxSq = cd.Dist
		}
	}
	if found == 0 {
		return 0, false
	}

	r := math.Sqrt(maxSq)
	ball := 4.0 / 3.0 * math.Pi * r * r * r
	d := float64(found) / float64(n) / ball
	if math.IsInf(d, 1) || d > densityCeiling {
		d = densityCeiling
	}
	return d, true
}
