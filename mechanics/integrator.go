package mechanics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/utils"
)

// Integrator advances the nodes with damped explicit Euler, using the grown
// reference nodal volume times Density as the lumped nodal mass.
type Integrator struct {
	Damping        float64 // gamma
	Density        float64 // rho
	Dt             float64
	ParallelDegree int
}

// Advance updates velocity and position of every node from the accumulated
// force and clears the force accumulator:
//
//	F -= V*gamma*Vn0
//	V += F/(Vn0*rho)*dt
//	X += V*dt
func (ig Integrator) Advance(st *State) {
	utils.ParallelFor(ig.ParallelDegree, len(st.Positions), func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			var (
				vn0 = st.RefVolumes[i]
				f   = r3.Sub(st.Forces[i], r3.Scale(ig.Damping*vn0, st.Velocities[i]))
			)
			st.Velocities[i] = r3.Add(st.Velocities[i], r3.Scale(ig.Dt/(vn0*ig.Density), f))
			st.Positions[i] = r3.Add(st.Positions[i], r3.Scale(ig.Dt, st.Velocities[i]))
			st.Forces[i] = r3.Vec{}
		}
	})
}
