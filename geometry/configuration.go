package geometry

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/utils"
)

// EdgeMatrix returns the 3x3 configuration of a tetrahedron: column j is the
// edge from vertex 0 to vertex j+1.
func EdgeMatrix(positions []r3.Vec, tet [4]int) (A *mat.Dense) {
	var (
		p0 = positions[tet[0]]
	)
	A = mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		e := r3.Sub(positions[tet[j+1]], p0)
		A.Set(0, j, e.X)
		A.Set(1, j, e.Y)
		A.Set(2, j, e.Z)
	}
	return
}

// TetVolume is the signed volume det(A)/6 of an edge configuration
func TetVolume(A mat.Matrix) float64 {
	return mat.Det(A) / 6.
}

// ReferenceConfigurations computes the immutable rest configuration A0 of
// every tetrahedron from the undeformed positions.
func ReferenceConfigurations(undeformed []r3.Vec, tets [][4]int) (A0 []*mat.Dense) {
	A0 = make([]*mat.Dense, len(tets))
	fillConfigurations(A0, undeformed, tets, 0)
	return
}

// DeformedConfigurations fills At with the current configuration of every
// tetrahedron, allocating it when nil.
func DeformedConfigurations(At []*mat.Dense, positions []r3.Vec, tets [][4]int, parallelDegree int) []*mat.Dense {
	if At == nil {
		At = make([]*mat.Dense, len(tets))
	}
	fillConfigurations(At, positions, tets, parallelDegree)
	return At
}

func fillConfigurations(A []*mat.Dense, positions []r3.Vec, tets [][4]int, parallelDegree int) {
	utils.ParallelFor(parallelDegree, len(tets), func(kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			A[k] = EdgeMatrix(positions, tets[k])
		}
	})
}
