package matching

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaximumMatching finds a maximum-cost perfect matching on a square cost
// matrix. costs.At(i, j) is the reward for matching left node i with right
// node j; NaN marks a forbidden pair. The result maps each left node to its
// right node. ok is false when no perfect matching exists. An empty matrix
// yields the empty matching.
//
// Primal-dual Hungarian method: a potential per node keeps every edge's
// reduced cost non-positive, augmenting paths are searched over tight edges
// only, and tightness is tracked in an explicit boolean matrix rather than
// rediscovered by comparing floats, which fails at large cost magnitudes.
func MaximumMatching(costs *mat.Dense) (assignment []int, ok bool) {
	var n int
	if costs != nil {
		r, c := costs.Dims()
		if r != c {
			panic("matching: cost matrix must be square")
		}
		n = r
	}
	if n == 0 {
		return []int{}, true
	}

	// Start every left potential at the maximum finite cost so all reduced
	// costs begin non-positive, even with negative costs.
	maxCost := math.Inf(-1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := costs.At(i, j); !math.IsNaN(v) && v > maxCost {
				maxCost = v
			}
		}
	}
	if math.IsInf(maxCost, -1) {
		return nil, false
	}

	s := &hungarianState{
		n:          n,
		costs:      costs,
		tight:      make([]bool, n*n),
		leftPot:    make([]float64, n),
		rightPot:   make([]float64, n),
		matchLeft:  make([]int, n),
		matchRight: make([]int, n),
		comesFrom:  make([]int, n),
		visitLeft:  make([]bool, n),
		visitRight: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		s.leftPot[i] = maxCost
		s.matchLeft[i] = -1
		s.matchRight[i] = -1
	}

	for {
		free := -1
		for i := 0; i < n; i++ {
			if s.matchLeft[i] == -1 {
				free = i
				break
			}
		}
		if free == -1 {
			return s.matchLeft, true
		}

		if endpoint, found := s.findAugmentingPath(free); found {
			s.toggleAugmentingPath(endpoint)
		} else if !s.relaxPotentials() {
			return nil, false
		}
	}
}

type hungarianState struct {
	n     int
	costs *mat.Dense
	tight []bool

	leftPot, rightPot     []float64
	matchLeft, matchRight []int

	// BFS bookkeeping, reset per search. comesFrom[j] is the left node that
	// reached right node j.
	comesFrom             []int
	visitLeft, visitRight []bool
}

// findAugmentingPath breadth-first searches the alternating tree over tight
// edges from the given free left node. On success it returns the free right
// endpoint; either way the visited sets are left in place for relaxation.
func (s *hungarianState) findAugmentingPath(start int) (int, bool) {
	for i := 0; i < s.n; i++ {
		s.visitLeft[i] = false
		s.visitRight[i] = false
	}

	queue := []int{start}
	s.visitLeft[start] = true

	for len(queue) > 0 {
		left := queue[0]
		queue = queue[1:]

		for right := 0; right < s.n; right++ {
			if s.visitRight[right] || !s.tight[left*s.n+right] || math.IsNaN(s.costs.At(left, right)) {
				continue
			}
			s.visitRight[right] = true
			s.comesFrom[right] = left

			next := s.matchRight[right]
			if next == -1 {
				return right, true
			}
			if !s.visitLeft[next] {
				s.visitLeft[next] = true
				queue = append(queue, next)
			}
		}
	}
	return 0, false
}

// toggleAugmentingPath flips matched and unmatched edges along the found
// path, growing the matching by one.
func (s *hungarianState) toggleAugmentingPath(endpoint int) {
	for {
		left := s.comesFrom[endpoint]
		prev := s.matchLeft[left]
		s.matchRight[endpoint] = left
		s.matchLeft[left] = endpoint
		if prev == -1 {
			return
		}
		endpoint = prev
	}
}

// relaxPotentials shifts potentials by the minimum slack across the
// visited-left/unvisited-right boundary and marks that edge tight. The shift
// raises the slack of every unvisited-left/visited-right edge, so tight flags
// in that quadrant are cleared; matched edges never sit there (a visited
// right node's partner is always visited). Reports false when no boundary
// edge exists, i.e. the matching is infeasible.
func (s *hungarianState) relaxPotentials() bool {
	delta := math.Inf(1)
	bestI, bestJ := -1, -1
	for i := 0; i < s.n; i++ {
		if !s.visitLeft[i] {
			continue
		}
		for j := 0; j < s.n; j++ {
			if s.visitRight[j] {
				continue
			}
			c := s.costs.At(i, j)
			if math.IsNaN(c) {
				continue
			}
			if slack := s.leftPot[i] + s.rightPot[j] - c; slack < delta {
				delta = slack
				bestI, bestJ = i, j
			}
		}
	}
	if bestI == -1 {
		return false
	}

	s.tight[bestI*s.n+bestJ] = true
	for i := 0; i < s.n; i++ {
		if s.visitLeft[i] {
			s.leftPot[i] -= delta
		}
		if s.visitRight[i] {
			s.rightPot[i] += delta
		}
	}
	if delta > 0 {
		for i := 0; i < s.n; i++ {
			if s.visitLeft[i] {
				continue
			}
			for j := 0; j < s.n; j++ {
				if s.visitRight[j] {
					s.tight[i*s.n+j] = false
				}
			}
		}
	}
	return true
}
