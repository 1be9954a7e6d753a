// Package growth evaluates the time dependent growth of the cortical layer:
// distance of every node to the surface, the gray/white matter shear modulus
// blend, the growth permission mask and the per-element growth tensor.
package growth

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/geometry"
	"github.com/notargets/gofold/utils"
)

const (
	thicknessSlope   = 0.01 // Growth of the cortical layer thickness per unit time
	sigmoidSteepness = 10.  // Steepness of the gray matter fraction transition
)

// DistanceToSurface finds, for every node, the nearest surface node by brute
// force over all surface nodes. nearest holds compact surface indices.
// The result depends only on undeformed geometry and should be computed once.
func DistanceToSurface(positions []r3.Vec, sm *geometry.SurfaceIndexMap, parallelDegree int) (nearest []int, dist []float64) {
	var (
		nn = len(positions)
	)
	nearest = make([]int, nn)
	dist = make([]float64, nn)
	utils.ParallelFor(parallelDegree, nn, func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			var (
				best  = math.Inf(1)
				bestJ = -1
			)
			for j, full := range sm.SurfaceToFull {
				if d2 := r3.Norm2(r3.Sub(positions[full], positions[i])); d2 < best {
					best, bestJ = d2, j
				}
			}
			nearest[i], dist[i] = bestJ, math.Sqrt(best)
		}
	})
	return
}

// GrowthRate is the relative tangential growth at time t
func GrowthRate(relative, t float64) float64 {
	return relative * t
}

// CortexThickness is the thickness of the growing layer at time t
func CortexThickness(base, t float64) float64 {
	return base + thicknessSlope*t
}

// GrayMatterFraction is the logistic transition from gray (near the surface)
// to white matter at depth thickness, scaled by the growth permission.
func GrayMatterFraction(dist, thickness, permission float64) float64 {
	return permission / (1. + math.Exp(sigmoidSteepness*(dist/thickness-1.)))
}

// ShearModulus returns per element the gray matter fraction gm and the blended
// shear modulus mu = muWhite*(1-gm) + muGray*gm, from the element averages of
// the nodal surface distance and growth permission.
func ShearModulus(dist []float64, thickness, muWhite, muGray float64, permission []float64,
	tets [][4]int, parallelDegree int) (gm, mu []float64) {
	var (
		ne = len(tets)
	)
	gm = make([]float64, ne)
	mu = make([]float64, ne)
	utils.ParallelFor(parallelDegree, ne, func(kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			var d, g float64
			for _, v := range tets[k] {
				d += dist[v]
				g += permission[v]
			}
			gm[k] = GrayMatterFraction(0.25*d, thickness, 0.25*g)
			mu[k] = muWhite*(1.-gm[k]) + muGray*gm[k]
		}
	})
	return
}

// GrowthPermission marks nodes outside an ellipsoidal zone near one pole of the
// normalized mesh as fully growing and ramps growth down to zero toward the
// center of the zone, where the body is attached and must not grow.
func GrowthPermission(positions []r3.Vec) (gr []float64) {
	const (
		radius = 0.6
		ramp   = 10.
	)
	gr = make([]float64, len(positions))
	for i, p := range positions {
		rqp := r3.Norm(r3.Vec{X: (p.X + 0.1) * 0.714, Y: p.Y, Z: p.Z - 0.05})
		if rqp < radius {
			gr[i] = math.Max(1.-ramp*(radius-rqp), 0.)
		} else {
			gr[i] = 1.
		}
	}
	return
}

// ElementNormals approximates the cortical normal of every element as the
// normalized sum of the surface normals nearest to its four vertices. When
// the four normals cancel the element normal is left zero.
func ElementNormals(N0 []r3.Vec, nearest []int, tets [][4]int) (Nt []r3.Vec) {
	Nt = make([]r3.Vec, len(tets))
	for k, tet := range tets {
		var n r3.Vec
		for _, v := range tet {
			n = r3.Add(n, N0[nearest[v]])
		}
		if r3.Norm2(n) > 0 {
			Nt[k] = r3.Unit(n)
		}
	}
	return
}
