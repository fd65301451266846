package viamcube

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"viamcube/internal/cv"
)

func TestPixelMapRoles(t *testing.T) {
	pm := &PixelMap{
		Width:  4,
		Height: 3,
		Regions: []PixelRegion{
			{Kind: cv.RoleSticker, Slot: 7, X: 0, Y: 0, Width: 2, Height: 2},
			{Kind: cv.RoleWhiteBalance, Face: "white", X: 2, Y: 2, Width: 2, Height: 1},
		},
	}

	roles, err := pm.Roles()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(roles), test.ShouldEqual, 12)

	// Row-major: (1,1) is index 5, inside the sticker region.
	test.That(t, roles[5], test.ShouldResemble, cv.PixelRole{Kind: cv.RoleSticker, Slot: 7})
	test.That(t, roles[11], test.ShouldResemble, cv.PixelRole{Kind: cv.RoleWhiteBalance, Face: "white"})
	test.That(t, roles[2].Kind, test.ShouldEqual, cv.RoleUnassigned)
}

func TestPixelMapValidation(t *testing.T) {
	pm := &PixelMap{Width: 0, Height: 3}
	_, err := pm.Roles()
	test.That(t, err, test.ShouldNotBeNil)

	pm = &PixelMap{
		Width:  4,
		Height: 4,
		Regions: []PixelRegion{
			{Kind: "smudge", X: 0, Y: 0, Width: 1, Height: 1},
			{Kind: cv.RoleSticker, Slot: 1, X: 3, Y: 3, Width: 2, Height: 2},
		},
	}
	_, err = pm.Roles()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 2)

	// White-balance and sticker pixel sets have to be disjoint.
	pm = &PixelMap{
		Width:  4,
		Height: 4,
		Regions: []PixelRegion{
			{Kind: cv.RoleSticker, Slot: 1, X: 0, Y: 0, Width: 2, Height: 2},
			{Kind: cv.RoleWhiteBalance, Face: "white", X: 1, Y: 1, Width: 2, Height: 2},
		},
	}
	_, err = pm.Roles()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadPixelMap(t *testing.T) {
	pm := &PixelMap{
		Width:  8,
		Height: 8,
		Regions: []PixelRegion{
			{Kind: cv.RoleSticker, Slot: 0, X: 1, Y: 1, Width: 2, Height: 2},
		},
	}
	data, err := json.Marshal(pm)
	test.That(t, err, test.ShouldBeNil)

	path := filepath.Join(t.TempDir(), "pixels.json")
	test.That(t, os.WriteFile(path, data, 0o644), test.ShouldBeNil)

	got, err := LoadPixelMap(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, pm)
	test.That(t, got.PixelCount(), test.ShouldEqual, 64)

	_, err = LoadPixelMap(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
