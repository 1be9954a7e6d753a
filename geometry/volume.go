package geometry

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/utils"
)

// NodalVolumes distributes one quarter of every tetrahedron's signed volume
// in the given positions to each of its four vertices.
func NodalVolumes(positions []r3.Vec, tets [][4]int) []float64 {
	return nodalVolumes(TetIncidence(tets, len(positions)), len(tets), func(k int) float64 {
		return TetVolume(EdgeMatrix(positions, tets[k]))
	})
}

// GrownNodalVolumes is NodalVolumes for the grown reference configuration
// G·A0 of every element.
func GrownNodalVolumes(in *utils.Incidence, A0, G []*mat.Dense) []float64 {
	return nodalVolumes(in, len(A0), func(k int) float64 {
		var Ar mat.Dense
		Ar.Mul(G[k], A0[k])
		return TetVolume(&Ar)
	})
}

// CurrentNodalVolumes is NodalVolumes for precomputed current configurations.
func CurrentNodalVolumes(in *utils.Incidence, At []*mat.Dense) []float64 {
	return nodalVolumes(in, len(At), func(k int) float64 {
		return TetVolume(At[k])
	})
}

func nodalVolumes(in *utils.Incidence, ne int, volume func(k int) float64) (Vn []float64) {
	var (
		quarters = make([]float64, 4*ne)
	)
	utils.ParallelFor(in.ParallelDegree, ne, func(kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			q := volume(k) / 4.
			for s := 0; s < 4; s++ {
				quarters[4*k+s] = q
			}
		}
	})
	Vn = make([]float64, in.NodeCount)
	in.SumScalar(Vn, quarters)
	return
}

// MeshVolume is the sum of the signed tetrahedron volumes in the given positions
func MeshVolume(positions []r3.Vec, tets [][4]int) float64 {
	vols := make([]float64, len(tets))
	for k, tet := range tets {
		vols[k] = TetVolume(EdgeMatrix(positions, tet))
	}
	return floats.Sum(vols)
}
