package puzzle

import (
	"fmt"
	"strings"
)

// ivec is an exact sticker-center coordinate on the cube surface [-3,3]^3.
type ivec [3]int

func (v ivec) add(w ivec) ivec {
	return ivec{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

func (v ivec) scale(k int) ivec {
	return ivec{k * v[0], k * v[1], k * v[2]}
}

func (v ivec) cross(w ivec) ivec {
	return ivec{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

func (v ivec) dot(w ivec) int {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// rh90 rotates p by 90 degrees about the given axis, right-handed when
// dir is +1 and left-handed when dir is -1.
func rh90(p ivec, axis, dir int) ivec {
	j, k := (axis+1)%3, (axis+2)%3
	out := p
	if dir > 0 {
		out[j], out[k] = -p[k], p[j]
	} else {
		out[j], out[k] = p[k], -p[j]
	}
	return out
}

type cubeFace struct {
	name   string
	color  string
	normal ivec
}

var cubeFaces = []cubeFace{
	{"U", "white", ivec{0, 1, 0}},
	{"L", "orange", ivec{-1, 0, 0}},
	{"F", "green", ivec{0, 0, 1}},
	{"R", "red", ivec{1, 0, 0}},
	{"B", "blue", ivec{0, 0, -1}},
	{"D", "yellow", ivec{0, -1, 0}},
}

// NewCube builds the 3x3x3 face-turn model: 48 facelet slots (the six fixed
// centers carry no state and are skipped), one generator per face, and two
// orbits (8 corners, 12 edges). Sticker centers live on exact integer
// coordinates so the move permutations are derived by rotating centers and
// looking the images up, with no geometry tables to get wrong.
func NewCube() *Model {
	axisOf := func(n ivec) (int, int) {
		for i, v := range n {
			if v != 0 {
				return i, v
			}
		}
		panic("puzzle: zero face normal")
	}

	// Enumerate sticker centers face by face. center = 3*normal + a*u + b*v
	// with a,b in {-2,0,2}, skipping the face center.
	var centers []ivec
	var colors []string
	index := map[ivec]int{}
	for _, f := range cubeFaces {
		ax, _ := axisOf(f.normal)
		var u, v ivec
		u[(ax+1)%3] = 1
		v[(ax+2)%3] = 1
		for a := -2; a <= 2; a += 2 {
			for b := -2; b <= 2; b += 2 {
				if a == 0 && b == 0 {
					continue
				}
				c := f.normal.scale(3).add(u.scale(a)).add(v.scale(b))
				index[c] = len(centers)
				centers = append(centers, c)
				colors = append(colors, f.color)
			}
		}
	}

	cubieOf := func(c ivec) ivec {
		out := c
		for i, v := range c {
			if v == 3 {
				out[i] = 2
			} else if v == -3 {
				out[i] = -2
			}
		}
		return out
	}

	// One generator per face: rotate every sticker whose cubie sits in the
	// face's layer about the face normal.
	gens := make([]Generator, 0, len(cubeFaces))
	for _, f := range cubeFaces {
		ax, sign := axisOf(f.normal)
		act := make([]int, len(centers))
		for i, c := range centers {
			if cubieOf(c)[ax] != 2*sign {
				act[i] = i
				continue
			}
			act[i] = index[rh90(c, ax, sign)]
		}
		mapping := make([]int, len(act))
		for from, to := range act {
			mapping[to] = from
		}
		perm, err := FromMapping(mapping)
		if err != nil {
			panic(fmt.Sprintf("puzzle: bad %s move: %v", f.name, err))
		}
		gens = append(gens, Generator{Name: f.name, Perm: perm})
	}

	group, err := NewGroup(colors, gens)
	if err != nil {
		panic(fmt.Sprintf("puzzle: bad cube group: %v", err))
	}

	// Group stickers into cubies, in first-seen slot order.
	var cubies []ivec
	stickersByCubie := map[ivec][]int{}
	for i, c := range centers {
		cb := cubieOf(c)
		if _, ok := stickersByCubie[cb]; !ok {
			cubies = append(cubies, cb)
		}
		stickersByCubie[cb] = append(stickersByCubie[cb], i)
	}

	normalOf := func(sticker int) ivec {
		return cubeFaces[sticker/8].normal
	}

	var corners, edges []Piece
	for _, cb := range cubies {
		stickers := stickersByCubie[cb]
		switch len(stickers) {
		case 2:
			edges = append(edges, Piece{Stickers: stickers})
		case 3:
			// Order the three stickers counterclockwise as seen from
			// outside the corner.
			if normalOf(stickers[0]).cross(normalOf(stickers[1])).dot(cb) < 0 {
				stickers[1], stickers[2] = stickers[2], stickers[1]
			}
			corners = append(corners, Piece{Stickers: stickers})
		default:
			panic(fmt.Sprintf("puzzle: cubie %v has %d stickers", cb, len(stickers)))
		}
	}

	return &Model{
		name:  "3x3",
		group: group,
		orbits: []Orbit{
			{Name: "corners", Pieces: corners},
			{Name: "edges", Pieces: edges},
		},
	}
}

// ParseMoves composes a whitespace-separated move sequence such as
// "R U R' U2" into a single permutation.
func ParseMoves(g *Group, s string) (Permutation, error) {
	p := Identity(g.FaceletCount())
	for _, tok := range strings.Fields(s) {
		name := tok
		pow := 1
		switch {
		case strings.HasSuffix(tok, "'"):
			name, pow = tok[:len(tok)-1], 3
		case strings.HasSuffix(tok, "2"):
			name, pow = tok[:len(tok)-1], 2
		case strings.HasSuffix(tok, "3"):
			name, pow = tok[:len(tok)-1], 3
		}
		gen, ok := g.Generator(name)
		if !ok {
			return Permutation{}, fmt.Errorf("unknown move %q", tok)
		}
		for i := 0; i < pow; i++ {
			p = p.Then(gen)
		}
	}
	return p, nil
}
