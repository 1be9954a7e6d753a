package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// SurfaceIndexMap relates the compact numbering of surface nodes to the full
// mesh numbering. It is built once and shared read-only by every consumer.
type SurfaceIndexMap struct {
	SurfaceToFull []int // Compact surface index -> mesh node index
	FullToSurface []int // Mesh node index -> compact surface index, -1 off the surface
}

// BuildSurfaceMap marks every node referenced by a face and numbers the marked
// nodes compactly in ascending mesh order.
func BuildSurfaceMap(faces [][3]int, nodeCount int) (sm *SurfaceIndexMap) {
	var (
		onSurface = make([]bool, nodeCount)
		nsn       int
	)
	for _, face := range faces {
		for _, v := range face {
			onSurface[v] = true
		}
	}
	sm = &SurfaceIndexMap{
		FullToSurface: make([]int, nodeCount),
	}
	for i := 0; i < nodeCount; i++ {
		sm.FullToSurface[i] = -1
		if onSurface[i] {
			sm.SurfaceToFull = append(sm.SurfaceToFull, i)
			sm.FullToSurface[i] = nsn
			nsn++
		}
	}
	return
}

// Len is the number of surface nodes
func (sm *SurfaceIndexMap) Len() int { return len(sm.SurfaceToFull) }

// IsSurface reports whether mesh node i lies on the surface
func (sm *SurfaceIndexMap) IsSurface(i int) bool { return sm.FullToSurface[i] >= 0 }

// SurfaceNormals returns one unit normal per surface node, the area weighted
// average of the normals of its incident faces. A node whose incident face
// normals cancel out, or whose faces have zero area, is a setup error.
func SurfaceNormals(positions []r3.Vec, faces [][3]int, sm *SurfaceIndexMap) (N0 []r3.Vec, err error) {
	var (
		in       = FaceIncidence(faces, len(positions))
		weighted = make([]r3.Vec, 3*len(faces))
		acc      = make([]r3.Vec, len(positions))
	)
	for f, face := range faces {
		p0 := positions[face[0]]
		n := r3.Cross(r3.Sub(positions[face[1]], p0), r3.Sub(positions[face[2]], p0))
		for s := 0; s < 3; s++ {
			weighted[3*f+s] = n
		}
	}
	in.SumVec(acc, weighted)
	N0 = make([]r3.Vec, sm.Len())
	for i, full := range sm.SurfaceToFull {
		norm := r3.Norm(acc[full])
		if norm == 0 || math.IsNaN(norm) {
			err = &ValidationError{Element: -1,
				Reason: fmt.Sprintf("surface node %d has a degenerate face star, normal undefined", full)}
			return nil, err
		}
		N0[i] = r3.Scale(1./norm, acc[full])
	}
	return
}

// EdgeStats holds surface mesh spacing diagnostics
type EdgeStats struct {
	Min, Max, Mean float64
}

// EdgeLengthStats returns the minimum, maximum and mean length over the three
// edges of every face. Edges shared by two faces are counted twice.
func EdgeLengthStats(positions []r3.Vec, faces [][3]int) (es EdgeStats) {
	if len(faces) == 0 {
		return
	}
	var (
		lengths = make([]float64, 0, 3*len(faces))
	)
	for _, face := range faces {
		lengths = append(lengths,
			r3.Norm(r3.Sub(positions[face[1]], positions[face[0]])),
			r3.Norm(r3.Sub(positions[face[2]], positions[face[0]])),
			r3.Norm(r3.Sub(positions[face[2]], positions[face[1]])),
		)
	}
	es.Min = floats.Min(lengths)
	es.Max = floats.Max(lengths)
	es.Mean = floats.Sum(lengths) / float64(len(lengths))
	return
}
