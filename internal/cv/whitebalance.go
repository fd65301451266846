package cv

import (
	"github.com/golang/geo/r3"
)

// applyWhiteBalance divides a color by a face's lighting reference,
// component-wise. Calibration and inference both pass recorded and query
// points through this, so stored points stay comparable across lighting.
func applyWhiteBalance(c, wb r3.Vector) r3.Vector {
	return r3.Vector{X: c.X / wb.X, Y: c.Y / wb.Y, Z: c.Z / wb.Z}
}

// whiteBalance averages each face's reference pixels in the current image.
// A face with no reference pixels gets the neutral correction (1,1,1).
func (inf *Inferencer) whiteBalance(image []r3.Vector) map[string]r3.Vector {
	out := make(map[string]r3.Vector, len(inf.wbByFace))
	for _, face := range inf.group.Colors() {
		pixels := inf.wbByFace[face]
		if len(pixels) == 0 {
			out[face] = r3.Vector{X: 1, Y: 1, Z: 1}
			continue
		}
		var sum r3.Vector
		for _, idx := range pixels {
			sum = sum.Add(image[idx])
		}
		out[face] = sum.Mul(1 / float64(len(pixels)))
	}
	return out
}
