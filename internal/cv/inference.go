package cv

import (
	"fmt"
	"math/rand"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"viamcube/internal/puzzle"
)

// Pixel role kinds.
const (
	RoleUnassigned   = "unassigned"
	RoleWhiteBalance = "whitebalance"
	RoleSticker      = "sticker"
)

// PixelRole gives one camera pixel a job: ignored, lighting reference for a
// face (faces are identified by their solved color), or color sample for a
// facelet slot. Several pixels may share a slot.
type PixelRole struct {
	Kind string `json:"kind"`
	Face string `json:"face,omitempty"`
	Slot int    `json:"slot,omitempty"`
}

// ConfidenceVector maps every puzzle color to the confidence that a slot
// currently shows that color. The key set is always the full palette and
// every value is finite and non-negative.
type ConfidenceVector map[string]float64

type storeKey struct {
	slot  int
	color string
}

// Inferencer accumulates white-balance-corrected color observations per
// (slot, color) and turns camera frames into per-slot confidence vectors.
// It owns its stores exclusively and is not internally synchronized; callers
// serialize Calibrate against everything else.
type Inferencer struct {
	pixelCount int
	model      *puzzle.Model
	group      *puzzle.Group
	roles      []PixelRole

	pixelsBySlot [][]int
	wbByFace     map[string][]int
	stores       map[storeKey]*colorStore

	stats statsMemo
}

// statsMemo caches the per-slot observation counts. Calibrate is the only
// mutator of the stores and resets it.
type statsMemo struct {
	valid  bool
	counts []int
}

// NewInferencer validates the pixel role assignment against the puzzle model
// and builds empty observation stores for every (slot, color) pair.
func NewInferencer(pixelCount int, model *puzzle.Model, roles []PixelRole) (*Inferencer, error) {
	g := model.Group()

	if len(roles) != pixelCount {
		return nil, fmt.Errorf("pixel map covers %d pixels, want %d", len(roles), pixelCount)
	}

	faces := map[string]bool{}
	for _, c := range g.Colors() {
		faces[c] = true
	}

	inf := &Inferencer{
		pixelCount:   pixelCount,
		model:        model,
		group:        g,
		roles:        append([]PixelRole(nil), roles...),
		pixelsBySlot: make([][]int, g.FaceletCount()),
		wbByFace:     map[string][]int{},
		stores:       map[storeKey]*colorStore{},
	}

	var err error
	for idx, role := range roles {
		switch role.Kind {
		case RoleUnassigned:
		case RoleWhiteBalance:
			if !faces[role.Face] {
				err = multierr.Append(err, fmt.Errorf("pixel %d: unknown face %q", idx, role.Face))
				continue
			}
			inf.wbByFace[role.Face] = append(inf.wbByFace[role.Face], idx)
		case RoleSticker:
			if role.Slot < 0 || role.Slot >= g.FaceletCount() {
				err = multierr.Append(err, fmt.Errorf("pixel %d: slot %d out of range [0,%d)", idx, role.Slot, g.FaceletCount()))
				continue
			}
			inf.pixelsBySlot[role.Slot] = append(inf.pixelsBySlot[role.Slot], idx)
		default:
			err = multierr.Append(err, fmt.Errorf("pixel %d: unknown role kind %q", idx, role.Kind))
		}
	}
	if err != nil {
		return nil, err
	}

	for slot := 0; slot < g.FaceletCount(); slot++ {
		for _, color := range g.Colors() {
			inf.stores[storeKey{slot, color}] = newColorStore()
		}
	}

	return inf, nil
}

func (inf *Inferencer) PixelCount() int {
	return inf.pixelCount
}

func (inf *Inferencer) Model() *puzzle.Model {
	return inf.model
}

// Roles returns a copy of the pixel role assignment, for overlay and
// debugging surfaces.
func (inf *Inferencer) Roles() []PixelRole {
	return append([]PixelRole(nil), inf.roles...)
}

func (inf *Inferencer) checkImage(image []r3.Vector) error {
	if len(image) != inf.pixelCount {
		return fmt.Errorf("image has %d pixels, want %d", len(image), inf.pixelCount)
	}
	return nil
}

// Calibrate records one image taken while the puzzle is known to be in the
// given state. Every sticker pixel's white-balance-corrected color is added
// to its slot's store for the color the state implies there.
func (inf *Inferencer) Calibrate(image []r3.Vector, state puzzle.Permutation) error {
	if err := inf.checkImage(image); err != nil {
		return err
	}
	if state.Len() != inf.group.FaceletCount() {
		return fmt.Errorf("state acts on %d slots, want %d", state.Len(), inf.group.FaceletCount())
	}

	inf.stats = statsMemo{}

	wb := inf.whiteBalance(image)
	solved := inf.group.FaceletColors()
	for slot, pixels := range inf.pixelsBySlot {
		face := wb[solved[slot]]
		color := solved[state.ComesFrom(slot)]
		store := inf.stores[storeKey{slot, color}]
		for _, idx := range pixels {
			store.add(applyWhiteBalance(image[idx], face))
		}
	}
	return nil
}

// Infer computes one ConfidenceVector per slot for the given image. Reading
// only; repeated calls on the same image and seed produce identical results.
func (inf *Inferencer) Infer(image []r3.Vector, rng *rand.Rand) ([]ConfidenceVector, error) {
	if err := inf.checkImage(image); err != nil {
		return nil, err
	}

	colors := inf.group.Colors()
	slotCount := float64(inf.group.FaceletCount())
	noData := 1 / (float64(len(colors)) * slotCount)
	wb := inf.whiteBalance(image)
	solved := inf.group.FaceletColors()

	out := make([]ConfidenceVector, inf.group.FaceletCount())
	var samples []float64
	reps := make(map[string]float64, len(colors))
	for slot := range out {
		face := wb[solved[slot]]

		for k := range reps {
			delete(reps, k)
		}
		sum := 0.0
		for _, color := range colors {
			store := inf.stores[storeKey{slot, color}]
			samples = samples[:0]
			for _, idx := range inf.pixelsBySlot[slot] {
				if d, ok := store.density(applyWhiteBalance(image[idx], face)); ok {
					samples = append(samples, d)
				}
			}
			if rep, ok := representativeConfidence(samples, rng); ok {
				reps[color] = rep
				sum += rep
			}
		}

		vec := make(ConfidenceVector, len(colors))
		if len(reps) == 0 || sum == 0 {
			for _, color := range colors {
				vec[color] = noData
			}
			out[slot] = vec
			continue
		}

		z := sum * float64(len(colors)) / float64(len(reps)) * slotCount
		for _, color := range colors {
			if rep, ok := reps[color]; ok {
				vec[color] = rep / z
			} else {
				vec[color] = noData
			}
		}
		out[slot] = vec
	}
	return out, nil
}

// ObservationCounts reports, per slot, how many calibration points have been
// accumulated across all colors. The summary is memoized until the next
// Calibrate.
func (inf *Inferencer) ObservationCounts() []int {
	if !inf.stats.valid {
		counts := make([]int, inf.group.FaceletCount())
		for key, store := range inf.stores {
			counts[key.slot] += store.len()
		}
		inf.stats = statsMemo{valid: true, counts: counts}
	}
	return append([]int(nil), inf.stats.counts...)
}
