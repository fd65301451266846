package viamcube

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/multierr"

	"viamcube/internal/cv"
)

// PixelRegion marks a rectangle of camera pixels as serving one role:
// samples for a facelet slot, or lighting reference for a face.
type PixelRegion struct {
	Kind   string `json:"kind"`
	Slot   int    `json:"slot,omitempty"`
	Face   string `json:"face,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PixelMap describes which pixels of a fixed camera frame look at which part
// of the puzzle. Pixels outside every region are ignored.
type PixelMap struct {
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Regions []PixelRegion `json:"regions"`
}

func LoadPixelMap(path string) (*PixelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pixel map: %w", err)
	}
	var pm PixelMap
	if err := json.Unmarshal(data, &pm); err != nil {
		return nil, fmt.Errorf("parsing pixel map %s: %w", path, err)
	}
	return &pm, nil
}

func (pm *PixelMap) PixelCount() int {
	return pm.Width * pm.Height
}

// Roles expands the regions into one role per pixel, row-major. Regions must
// stay inside the frame and no pixel may serve two roles: white-balance
// pixels feeding a density store would corrupt both.
func (pm *PixelMap) Roles() ([]cv.PixelRole, error) {
	var err error
	if pm.Width <= 0 || pm.Height <= 0 {
		return nil, fmt.Errorf("pixel map needs positive dimensions, got %dx%d", pm.Width, pm.Height)
	}

	roles := make([]cv.PixelRole, pm.PixelCount())
	for i := range roles {
		roles[i] = cv.PixelRole{Kind: cv.RoleUnassigned}
	}

	for ri, reg := range pm.Regions {
		var role cv.PixelRole
		switch reg.Kind {
		case cv.RoleSticker:
			role = cv.PixelRole{Kind: cv.RoleSticker, Slot: reg.Slot}
		case cv.RoleWhiteBalance:
			role = cv.PixelRole{Kind: cv.RoleWhiteBalance, Face: reg.Face}
		default:
			err = multierr.Append(err, fmt.Errorf("region %d: unknown kind %q", ri, reg.Kind))
			continue
		}

		if reg.Width <= 0 || reg.Height <= 0 ||
			reg.X < 0 || reg.Y < 0 ||
			reg.X+reg.Width > pm.Width || reg.Y+reg.Height > pm.Height {
			err = multierr.Append(err, fmt.Errorf("region %d: rectangle (%d,%d %dx%d) outside %dx%d frame",
				ri, reg.X, reg.Y, reg.Width, reg.Height, pm.Width, pm.Height))
			continue
		}

		for y := reg.Y; y < reg.Y+reg.Height; y++ {
			for x := reg.X; x < reg.X+reg.Width; x++ {
				idx := y*pm.Width + x
				if roles[idx].Kind != cv.RoleUnassigned {
					err = multierr.Append(err, fmt.Errorf("region %d: pixel (%d,%d) already assigned", ri, x, y))
					continue
				}
				roles[idx] = role
			}
		}
	}

	if err != nil {
		return nil, err
	}
	return roles, nil
}
