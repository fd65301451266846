package matching

import (
	"fmt"
	"math"

	"go.viam.com/rdk/logging"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"viamcube/internal/cv"
	"viamcube/internal/puzzle"
)

// Confidence multiplier applied when the first per-orbit optimum had to be
// abandoned to reach a reachable global state.
const bestEffortPenalty = 0.25

// Matcher turns per-slot color confidences into the most likely puzzle
// state. It solves a maximum-confidence assignment of pieces to positions
// independently per orbit, then validates the composed permutation against
// the full move group, re-solving with the weakest assignment forbidden when
// the per-orbit optima are jointly unreachable.
//
// A Matcher is immutable after construction and safe to use from multiple
// goroutines.
type Matcher struct {
	model  *puzzle.Model
	chain  *puzzle.StabilizerChain
	orbits []orbitSolver
	logger logging.Logger
}

// orbitSolver pairs an orbit with the stabilizer chain of the subgroup that
// moves only that orbit's stickers, used to validate per-orbit assignments.
type orbitSolver struct {
	orbit puzzle.Orbit
	chain *puzzle.StabilizerChain
}

func NewMatcher(model *puzzle.Model, logger logging.Logger) (*Matcher, error) {
	g := model.Group()
	m := &Matcher{
		model:  model,
		chain:  puzzle.NewStabilizerChain(g),
		logger: logger,
	}
	for _, o := range model.Orbits() {
		sub, err := g.Restricted(o.StickerMask(g.FaceletCount()))
		if err != nil {
			return nil, fmt.Errorf("restricting group to orbit %q: %w", o.Name, err)
		}
		m.orbits = append(m.orbits, orbitSolver{orbit: o, chain: puzzle.NewStabilizerChain(sub)})
	}
	return m, nil
}

// orbitState is the per-call working state for one orbit: the cost matrix
// (mutated as edges get forbidden), the best spin per piece/position pair,
// and the current accepted assignment.
type orbitState struct {
	solver *orbitSolver
	costs  *mat.Dense
	spins  [][]int
	assign []int
	perm   puzzle.Permutation
}

// MostLikely returns the group member that best explains the confidence
// vectors, along with an aggregate confidence in [0,1]. The permutation is
// always a validated member of the puzzle's move group.
func (m *Matcher) MostLikely(conf []cv.ConfidenceVector) (puzzle.Permutation, float64, error) {
	n := m.model.Group().FaceletCount()
	if len(conf) != n {
		return puzzle.Permutation{}, 0, fmt.Errorf("got %d confidence vectors, want %d", len(conf), n)
	}

	states := make([]*orbitState, len(m.orbits))
	totalPieces := 0
	for i := range m.orbits {
		st := m.newOrbitState(&m.orbits[i], conf)
		if err := m.solveOrbit(st); err != nil {
			return puzzle.Permutation{}, 0, err
		}
		states[i] = st
		totalPieces += len(m.orbits[i].orbit.Pieces)
	}

	// Per-orbit optima can be jointly unreachable (orbit permutation
	// parities are coupled on a cube). Keep forbidding the globally weakest
	// matched assignment and re-solving its orbit until the composition is
	// a group member.
	penalized := false
	for attempt := 0; ; attempt++ {
		composed := puzzle.Identity(n)
		for _, st := range states {
			composed = composed.Then(st.perm)
		}
		if m.chain.Contains(composed) {
			confidence := m.confidence(composed, conf)
			if penalized {
				confidence *= bestEffortPenalty
			}
			return composed, clamp01(confidence), nil
		}
		if attempt >= totalPieces {
			return puzzle.Permutation{}, 0, fmt.Errorf("could not reconcile orbit assignments into a reachable state")
		}
		penalized = true

		st, i, j := weakestAssignment(states)
		m.logger.Warnf("combined orbit assignments are not a reachable state, re-solving orbit %q without piece %d at position %d",
			st.solver.orbit.Name, i, j)
		st.costs.Set(i, j, math.NaN())
		if err := m.solveOrbit(st); err != nil {
			return puzzle.Permutation{}, 0, err
		}
	}
}

// newOrbitState builds the orbit's cost matrix. Left nodes are physical
// pieces (identified by their solved sticker colors), right nodes are
// positions (the solved locations). The cost of placing piece i at position
// j is the best over cyclic spins of the total log confidence of the colors
// that placement would show.
func (m *Matcher) newOrbitState(solver *orbitSolver, conf []cv.ConfidenceVector) *orbitState {
	pieces := solver.orbit.Pieces
	solved := m.model.Group().FaceletColors()
	np := len(pieces)
	size := solver.orbit.OrientationCount()

	costs := mat.NewDense(np, np, nil)
	spins := make([][]int, np)
	for i := 0; i < np; i++ {
		spins[i] = make([]int, np)
		for j := 0; j < np; j++ {
			best := math.Inf(-1)
			bestSpin := 0
			for spin := 0; spin < size; spin++ {
				total := 0.0
				for k, slot := range pieces[j].Stickers {
					color := solved[pieces[i].Stickers[(k+spin)%size]]
					total += math.Log(conf[slot][color])
				}
				if total > best {
					best = total
					bestSpin = spin
				}
			}
			costs.Set(i, j, best)
			spins[i][j] = bestSpin
		}
	}

	return &orbitState{solver: solver, costs: costs, spins: spins}
}

// solveOrbit finds a maximum-confidence assignment for the orbit that is
// reachable by moves touching only this orbit, forbidding the weakest
// matched edge and retrying when the optimum is not.
func (m *Matcher) solveOrbit(st *orbitState) error {
	orbit := st.solver.orbit
	pieces := orbit.Pieces
	size := orbit.OrientationCount()
	n := m.model.Group().FaceletCount()

	for retries := 0; retries <= len(pieces); retries++ {
		assign, ok := MaximumMatching(st.costs)
		if !ok {
			return fmt.Errorf("no feasible piece assignment for orbit %q", orbit.Name)
		}

		mapping := puzzle.Identity(n).Mapping()
		for i, j := range assign {
			spin := st.spins[i][j]
			for k, slot := range pieces[j].Stickers {
				mapping[slot] = pieces[i].Stickers[(k+spin)%size]
			}
		}
		perm, err := puzzle.FromMapping(mapping)
		if err != nil {
			return fmt.Errorf("orbit %q assignment is not a permutation: %w", orbit.Name, err)
		}

		if st.solver.chain.Contains(perm) {
			st.assign = assign
			st.perm = perm
			return nil
		}

		i, j := weakestEdge(st, assign)
		m.logger.Warnf("orbit %q assignment is not reachable, retrying without piece %d at position %d", orbit.Name, i, j)
		st.costs.Set(i, j, math.NaN())
	}
	return fmt.Errorf("no reachable piece assignment for orbit %q", orbit.Name)
}

// weakestEdge returns the matched pair contributing the least confidence.
func weakestEdge(st *orbitState, assign []int) (int, int) {
	bestI, bestJ := 0, assign[0]
	worst := math.Inf(1)
	for i, j := range assign {
		if c := st.costs.At(i, j); c < worst {
			worst = c
			bestI, bestJ = i, j
		}
	}
	return bestI, bestJ
}

// weakestAssignment returns the lowest-confidence matched pair across all
// orbits' current assignments.
func weakestAssignment(states []*orbitState) (*orbitState, int, int) {
	var at *orbitState
	bestI, bestJ := 0, 0
	worst := math.Inf(1)
	for _, st := range states {
		for i, j := range st.assign {
			if c := st.costs.At(i, j); c < worst {
				worst = c
				at, bestI, bestJ = st, i, j
			}
		}
	}
	return at, bestI, bestJ
}

// confidence aggregates the matched per-slot confidences into one scalar:
// the geometric mean of the confidence of every color the state implies.
func (m *Matcher) confidence(state puzzle.Permutation, conf []cv.ConfidenceVector) float64 {
	solved := m.model.Group().FaceletColors()
	values := make([]float64, len(conf))
	for slot := range conf {
		values[slot] = conf[slot][solved[state.ComesFrom(slot)]]
	}
	return stat.GeometricMean(values, nil)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
