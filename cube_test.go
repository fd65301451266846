package viamcube

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"viamcube/internal/cv"
	"viamcube/internal/puzzle"
)

func TestImageToPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	img.Set(1, 1, color.RGBA{255, 255, 255, 255})

	pixels := imageToPixels(img)
	test.That(t, len(pixels), test.ShouldEqual, 4)

	test.That(t, pixels[0].X, test.ShouldAlmostEqual, 1)
	test.That(t, pixels[0].Y, test.ShouldAlmostEqual, 0)
	test.That(t, pixels[1].Y, test.ShouldAlmostEqual, 1)
	test.That(t, pixels[2].Z, test.ShouldAlmostEqual, 1)
	test.That(t, pixels[3].X, test.ShouldAlmostEqual, 1)
	test.That(t, pixels[3].Y, test.ShouldAlmostEqual, 1)
	test.That(t, pixels[3].Z, test.ShouldAlmostEqual, 1)
}

func TestOverlayDebugImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 32))
	pm := &PixelMap{
		Width:  32,
		Height: 32,
		Regions: []PixelRegion{
			{Kind: cv.RoleSticker, Slot: 3, X: 2, Y: 2, Width: 10, Height: 10},
			{Kind: cv.RoleWhiteBalance, Face: "white", X: 16, Y: 16, Width: 8, Height: 8},
		},
	}

	dst := OverlayDebugImage(src, pm)
	test.That(t, dst.Bounds(), test.ShouldResemble, src.Bounds())

	// Borders get drawn over the (black) source frame.
	r, g, b, _ := dst.At(2, 2).RGBA()
	test.That(t, r+g+b, test.ShouldBeGreaterThan, uint32(0))
	r, g, b, _ = dst.At(16, 16).RGBA()
	test.That(t, r+g+b, test.ShouldBeGreaterThan, uint32(0))
}

func TestOverlayDebugImageSlotHues(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 16))
	pm := &PixelMap{
		Width:  64,
		Height: 16,
		Regions: []PixelRegion{
			{Kind: cv.RoleSticker, Slot: 0, X: 2, Y: 2, Width: 8, Height: 8},
			{Kind: cv.RoleSticker, Slot: 48, X: 20, Y: 2, Width: 8, Height: 8},
		},
	}

	// Slots 0 and 48 collide on a 48-slot hue wheel; the wheel has to size
	// itself to the map.
	dst := OverlayDebugImage(src, pm)
	test.That(t, dst.At(2, 2), test.ShouldNotResemble, dst.At(20, 2))
}

func TestDoSaveAtomic(t *testing.T) {
	model := puzzle.NewCube()
	roles := make([]cv.PixelRole, 4)
	roles[0] = cv.PixelRole{Kind: cv.RoleSticker, Slot: 0}
	for i := 1; i < len(roles); i++ {
		roles[i] = cv.PixelRole{Kind: cv.RoleUnassigned}
	}
	inf, err := cv.NewInferencer(len(roles), model, roles)
	test.That(t, err, test.ShouldBeNil)

	s := &cubeService{
		logger:     logging.NewTestLogger(t),
		model:      model,
		inferencer: inf,
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "calib.bin")
	res, err := s.doSave(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res["saved"], test.ShouldEqual, path)

	_, err = s.doLoad(path)
	test.That(t, err, test.ShouldBeNil)

	// The temp file is gone after the rename.
	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 1)

	// A failed save leaves nothing at the target path.
	badPath := filepath.Join(dir, "missing", "calib.bin")
	_, err = s.doSave(badPath)
	test.That(t, err, test.ShouldNotBeNil)
	_, statErr := os.Stat(badPath)
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)
}
