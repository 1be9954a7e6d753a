// Package mechanics computes the hyperelastic response of a growing
// tetrahedral body and advances it in time with a damped explicit scheme.
package mechanics

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/growth"
)

// State is the mutable simulation state shared by the per-step components.
//
//	growth field     writes Growth, Modulus
//	nodal volumes    write RefVolumes, Volumes
//	elasticity       reads Positions, Growth, Modulus, volumes; writes Forces
//	contact          reads Undeformed, Positions; writes Forces
//	integrator       reads Forces, RefVolumes; writes Velocities, Positions, clears Forces
type State struct {
	Undeformed []r3.Vec // Rest positions, never modified
	Positions  []r3.Vec // Deformed positions
	Velocities []r3.Vec
	Forces     []r3.Vec
	RefVolumes []float64    // Nodal volumes of the grown reference configuration
	Volumes    []float64    // Nodal volumes of the current configuration
	Growth     []*mat.Dense // Growth tensor per element
	Modulus    []float64    // Shear modulus per element
}

// NewState starts at rest with the deformed configuration equal to the
// undeformed one and identity growth everywhere.
func NewState(undeformed []r3.Vec, elementCount int) (st *State) {
	var (
		nn = len(undeformed)
	)
	st = &State{
		Undeformed: undeformed,
		Positions:  make([]r3.Vec, nn),
		Velocities: make([]r3.Vec, nn),
		Forces:     make([]r3.Vec, nn),
		RefVolumes: make([]float64, nn),
		Volumes:    make([]float64, nn),
		Growth:     make([]*mat.Dense, elementCount),
		Modulus:    make([]float64, elementCount),
	}
	copy(st.Positions, undeformed)
	for k := range st.Growth {
		st.Growth[k] = growth.IsotropicTensor(1)
	}
	return
}
