package puzzle

import (
	"math/big"
	"math/rand"
)

// action is the forward view of a permutation: a[x] is where the facelet at
// solved slot x ends up. The chain works on actions; Permutations are
// converted at the boundary.
type action []int

func actionOf(p Permutation) action {
	a := make(action, p.Len())
	for slot := 0; slot < p.Len(); slot++ {
		a[p.ComesFrom(slot)] = slot
	}
	return a
}

func permOf(a action) Permutation {
	m := make([]int, len(a))
	for x, img := range a {
		m[img] = x
	}
	p, _ := FromMapping(m)
	return p
}

func identityAction(n int) action {
	a := make(action, n)
	for i := range a {
		a[i] = i
	}
	return a
}

// mulAction returns the action of applying a then b.
func mulAction(a, b action) action {
	out := make(action, len(a))
	for x := range a {
		out[x] = b[a[x]]
	}
	return out
}

func invAction(a action) action {
	out := make(action, len(a))
	for x, img := range a {
		out[img] = x
	}
	return out
}

func isIdentityAction(a action) bool {
	for x, img := range a {
		if img != x {
			return false
		}
	}
	return true
}

type chainLevel struct {
	base        int
	gens        []action
	orbit       []int // insertion-ordered, orbit[0] == base
	transversal map[int]action
}

func newChainLevel(n, base int) *chainLevel {
	return &chainLevel{
		base:        base,
		orbit:       []int{base},
		transversal: map[int]action{base: identityAction(n)},
	}
}

// StabilizerChain is a base and strong generating set computed with the
// deterministic Schreier-Sims algorithm. It answers membership queries and
// samples uniformly random group elements.
type StabilizerChain struct {
	n      int
	levels []*chainLevel
}

func NewStabilizerChain(g *Group) *StabilizerChain {
	c := &StabilizerChain{n: g.FaceletCount()}
	for _, gen := range g.Generators() {
		c.insert(actionOf(gen.Perm), 0)
	}
	return c
}

// strip divides g by transversal representatives starting at level from,
// returning the residue and the level at which division stopped.
func (c *StabilizerChain) strip(g action, from int) (action, int) {
	for i := from; i < len(c.levels); i++ {
		lv := c.levels[i]
		u, ok := lv.transversal[g[lv.base]]
		if !ok {
			return g, i
		}
		g = mulAction(g, invAction(u))
	}
	return g, len(c.levels)
}

func (c *StabilizerChain) insert(g action, from int) {
	h, lev := c.strip(g, from)
	if isIdentityAction(h) {
		return
	}
	if lev == len(c.levels) {
		c.levels = append(c.levels, newChainLevel(c.n, firstMoved(h)))
	}
	lv := c.levels[lev]
	lv.gens = append(lv.gens, h)
	c.closeOrbit(lev)
}

// closeOrbit extends the level's basic orbit and transversal under its
// current generators and sifts every Schreier generator into deeper levels.
// Iteration is over insertion-ordered slices so chain construction is
// deterministic.
func (c *StabilizerChain) closeOrbit(lev int) {
	lv := c.levels[lev]
	for i := 0; i < len(lv.orbit); i++ {
		x := lv.orbit[i]
		ux := lv.transversal[x]
		for _, s := range lv.gens {
			y := s[x]
			uy, ok := lv.transversal[y]
			if !ok {
				lv.transversal[y] = mulAction(ux, s)
				lv.orbit = append(lv.orbit, y)
				continue
			}
			schreier := mulAction(mulAction(ux, s), invAction(uy))
			if !isIdentityAction(schreier) {
				c.insert(schreier, lev+1)
			}
		}
	}
}

func firstMoved(a action) int {
	for x, img := range a {
		if img != x {
			return x
		}
	}
	return -1
}

// Contains reports whether p is a member of the group.
func (c *StabilizerChain) Contains(p Permutation) bool {
	if p.Len() != c.n {
		return false
	}
	h, _ := c.strip(actionOf(p), 0)
	return isIdentityAction(h)
}

// Random returns a uniformly random group element drawn from rng.
func (c *StabilizerChain) Random(rng *rand.Rand) Permutation {
	g := identityAction(c.n)
	for i := len(c.levels) - 1; i >= 0; i-- {
		lv := c.levels[i]
		x := lv.orbit[rng.Intn(len(lv.orbit))]
		g = mulAction(g, lv.transversal[x])
	}
	return permOf(g)
}

// Order returns the group order, the product of the basic orbit lengths.
func (c *StabilizerChain) Order() *big.Int {
	o := big.NewInt(1)
	for _, lv := range c.levels {
		o.Mul(o, big.NewInt(int64(len(lv.orbit))))
	}
	return o
}
