// Package geometry holds the static topology of a tetrahedral body: its
// surface index map, surface normals, per-element edge matrices and the
// nodal volume bookkeeping the mechanics depends on.
package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/utils"
)

// Mesh is a right handed tetrahedral mesh with its oriented boundary triangles
type Mesh struct {
	Undeformed []r3.Vec // Node positions at rest [nodeCount]
	Tets       [][4]int // Tetrahedron to node connectivity [elementCount]
	Faces      [][3]int // Surface triangle to node connectivity [faceCount]
	Labels     []int    // Optional region label per tetrahedron
	tetInc     *utils.Incidence
}

// ValidationError reports a mesh that violates a setup invariant
type ValidationError struct {
	Element int    // Offending element or face index, -1 when not element specific
	Reason  string // Human readable description
}

func (e *ValidationError) Error() string {
	if e.Element < 0 {
		return fmt.Sprintf("invalid mesh: %s", e.Reason)
	}
	return fmt.Sprintf("invalid mesh: element %d: %s", e.Element, e.Reason)
}

// NewMesh checks the connectivity against the node count and rejects any
// tetrahedron whose reference volume is not strictly positive.
func NewMesh(nodes []r3.Vec, tets [][4]int, faces [][3]int) (m *Mesh, err error) {
	var (
		nn = len(nodes)
	)
	if nn == 0 || len(tets) == 0 {
		return nil, &ValidationError{Element: -1, Reason: "mesh has no nodes or no tetrahedra"}
	}
	if len(faces) == 0 {
		return nil, &ValidationError{Element: -1, Reason: "mesh has no surface faces"}
	}
	for k, tet := range tets {
		for _, v := range tet {
			if v < 0 || v >= nn {
				return nil, &ValidationError{Element: k,
					Reason: fmt.Sprintf("node index %d outside [0, %d)", v, nn)}
			}
		}
		if vol := TetVolume(EdgeMatrix(nodes, tet)); !(vol > 0) {
			return nil, &ValidationError{Element: k,
				Reason: fmt.Sprintf("reference volume %g is not positive, tetrahedron must be right handed", vol)}
		}
	}
	for f, face := range faces {
		for _, v := range face {
			if v < 0 || v >= nn {
				return nil, &ValidationError{Element: f,
					Reason: fmt.Sprintf("face node index %d outside [0, %d)", v, nn)}
			}
		}
	}
	m = &Mesh{
		Undeformed: nodes,
		Tets:       tets,
		Faces:      faces,
	}
	return
}

func (m *Mesh) NodeCount() int    { return len(m.Undeformed) }
func (m *Mesh) ElementCount() int { return len(m.Tets) }
func (m *Mesh) FaceCount() int    { return len(m.Faces) }

// TetIncidence is the node to tetrahedron-vertex incidence, built on first use.
func (m *Mesh) TetIncidence() *utils.Incidence {
	if m.tetInc == nil {
		m.tetInc = TetIncidence(m.Tets, m.NodeCount())
	}
	return m.tetInc
}

// SetParallelDegree sets the worker count used by the mesh reductions.
func (m *Mesh) SetParallelDegree(degree int) {
	m.TetIncidence().ParallelDegree = degree
}

func TetIncidence(tets [][4]int, nodeCount int) *utils.Incidence {
	in, err := utils.NewIncidence(nodeCount, len(tets), 4, func(c, s int) int { return tets[c][s] })
	if err != nil {
		panic(err)
	}
	return in
}

func FaceIncidence(faces [][3]int, nodeCount int) *utils.Incidence {
	in, err := utils.NewIncidence(nodeCount, len(faces), 3, func(c, s int) int { return faces[c][s] })
	if err != nil {
		panic(err)
	}
	return in
}
