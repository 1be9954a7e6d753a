package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame records the transform applied by Normalize
type Frame struct {
	Centroid r3.Vec
	Scale    float64 // maxd, the largest bounding box deviation from the centroid
}

// Normalize centers positions on their centroid and scales them by 1/maxd,
// where maxd is the largest distance from the centroid to a bounding box face
// along any axis. The x and z axes are negated, which is a rotation and keeps
// tetrahedra right handed. The input slice is not modified.
func Normalize(positions []r3.Vec) (out []r3.Vec, fr Frame) {
	var (
		nn       = len(positions)
		lo, hi   = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}, r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
		centroid r3.Vec
	)
	if nn == 0 {
		return nil, Frame{Scale: 1}
	}
	for _, p := range positions {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
		centroid = r3.Add(centroid, p)
	}
	centroid = r3.Scale(1./float64(nn), centroid)
	maxd := math.Max(
		math.Max(math.Max(math.Abs(hi.X-centroid.X), math.Abs(lo.X-centroid.X)),
			math.Max(math.Abs(hi.Y-centroid.Y), math.Abs(lo.Y-centroid.Y))),
		math.Max(math.Abs(hi.Z-centroid.Z), math.Abs(lo.Z-centroid.Z)))
	if maxd == 0 {
		maxd = 1
	}
	out = make([]r3.Vec, nn)
	for i, p := range positions {
		d := r3.Sub(p, centroid)
		out[i] = r3.Vec{X: -d.X / maxd, Y: d.Y / maxd, Z: -d.Z / maxd}
	}
	fr = Frame{Centroid: centroid, Scale: maxd}
	return
}

// Restore maps a normalized position back to the input frame
func (fr Frame) Restore(p r3.Vec) r3.Vec {
	return r3.Add(fr.Centroid, r3.Vec{X: -p.X * fr.Scale, Y: p.Y * fr.Scale, Z: -p.Z * fr.Scale})
}
