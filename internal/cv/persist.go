package cv

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/golang/geo/r3"

	"viamcube/internal/puzzle"
)

const snapshotVersion = 1

type snapshotStore struct {
	Slot   int
	Color  string
	Points [][3]float64
}

type snapshot struct {
	Version    int
	Model      string
	PixelCount int
	Roles      []PixelRole
	Stores     []snapshotStore
}

// Save writes the inferencer's calibration state as a gzipped gob blob. The
// puzzle model itself is recorded by name only and re-resolved on load.
func (inf *Inferencer) Save(w io.Writer) error {
	snap := snapshot{
		Version:    snapshotVersion,
		Model:      inf.model.Name(),
		PixelCount: inf.pixelCount,
		Roles:      inf.roles,
	}

	// Deterministic store order: slots ascending, palette order within.
	for slot := 0; slot < inf.group.FaceletCount(); slot++ {
		for _, color := range inf.group.Colors() {
			store := inf.stores[storeKey{slot, color}]
			if store.len() == 0 {
				continue
			}
			ss := snapshotStore{Slot: slot, Color: color}
			for _, p := range store.points {
				ss.Points = append(ss.Points, [3]float64{p[0], p[1], p[2]})
			}
			snap.Stores = append(snap.Stores, ss)
		}
	}

	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(snap); err != nil {
		gz.Close()
		return fmt.Errorf("encoding inferencer snapshot: %w", err)
	}
	return gz.Close()
}

// LoadInferencer rebuilds an inferencer from a Save blob. The caller supplies
// the puzzle model; its name must match the one recorded in the blob. The
// rebuilt stores hold the exact recorded point sets, so inference on the same
// image and seed reproduces the pre-save confidences bit for bit.
func LoadInferencer(r io.Reader, model *puzzle.Model) (*Inferencer, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading inferencer snapshot: %w", err)
	}
	defer gz.Close()

	var snap snapshot
	if err := gob.NewDecoder(gz).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding inferencer snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Model != model.Name() {
		return nil, fmt.Errorf("snapshot is for puzzle %q, loaded model is %q", snap.Model, model.Name())
	}

	inf, err := NewInferencer(snap.PixelCount, model, snap.Roles)
	if err != nil {
		return nil, err
	}

	for _, ss := range snap.Stores {
		store, ok := inf.stores[storeKey{ss.Slot, ss.Color}]
		if !ok {
			return nil, fmt.Errorf("snapshot store for unknown slot %d color %q", ss.Slot, ss.Color)
		}
		for _, p := range ss.Points {
			store.add(r3.Vector{X: p[0], Y: p[1], Z: p[2]})
		}
	}

	return inf, nil
}
