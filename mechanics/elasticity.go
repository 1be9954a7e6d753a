package mechanics

import (
	"context"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/geometry"
	"github.com/notargets/gofold/logging"
	"github.com/notargets/gofold/utils"
)

// Elasticity assembles the hyperelastic nodal forces of a tetrahedral mesh.
// Per element contributions go to a private slot of the force buffer and are
// reduced to nodes by the mesh incidence, so assembly is lock free and gives
// the same result for any ParallelDegree.
type Elasticity struct {
	Material
	Tets           [][4]int
	A0             []*mat.Dense // Undeformed edge configuration per element
	Incidence      *utils.Incidence
	ParallelDegree int
	At             []*mat.Dense // Current edge configuration, refreshed by UpdateVolumes
	Logger         *slog.Logger // Degenerate elements are logged at logging.LevelTrace
	slots          []r3.Vec
	energy         []float64
	jacobian       []float64
	branch         []Branch
}

// AssemblyReport summarizes one force assembly
type AssemblyReport struct {
	Energy     float64 // Total strain energy, sum of W times grown reference volume
	Degenerate int     // Elements evaluated with the degenerate branch
}

func NewElasticity(m Material, tets [][4]int, A0 []*mat.Dense, in *utils.Incidence, parallelDegree int) (el *Elasticity) {
	var (
		ne = len(tets)
	)
	el = &Elasticity{
		Material:       m,
		Tets:           tets,
		A0:             A0,
		Incidence:      in,
		ParallelDegree: parallelDegree,
		slots:          make([]r3.Vec, 4*ne),
		energy:         make([]float64, ne),
		jacobian:       make([]float64, ne),
		branch:         make([]Branch, ne),
	}
	return
}

// UpdateVolumes refreshes the current configurations and both nodal volume
// fields of st: RefVolumes from the grown reference G·A0, Volumes from the
// current positions.
func (el *Elasticity) UpdateVolumes(st *State) {
	el.At = geometry.DeformedConfigurations(el.At, st.Positions, el.Tets, el.ParallelDegree)
	copy(st.RefVolumes, geometry.GrownNodalVolumes(el.Incidence, el.A0, st.Growth))
	copy(st.Volumes, geometry.CurrentNodalVolumes(el.Incidence, el.At))
}

// Assemble refreshes the configurations and nodal volumes for the current
// positions and growth, then adds the elastic force of every element to
// st.Forces.
func (el *Elasticity) Assemble(st *State) (rep AssemblyReport) {
	var (
		ne     = len(el.Tets)
		logger = logging.OrDiscard(el.Logger)
		trace  = logger.Enabled(context.Background(), logging.LevelTrace)
	)
	el.UpdateVolumes(st)
	utils.ParallelFor(el.ParallelDegree, ne, func(kMin, kMax int) {
		var (
			Ar, ArInv, F mat.Dense
		)
		for k := kMin; k < kMax; k++ {
			tet := el.Tets[k]
			Ar.Mul(st.Growth[k], el.A0[k])
			ArInv.CloneFrom(inverse(&Ar))
			F.Mul(el.At[k], &ArInv)
			var Jn [4]float64
			for s, v := range tet {
				Jn[s] = st.Volumes[v] / st.RefVolumes[v]
			}
			res := ElementStress(&F, st.Modulus[k], Jn, el.Material)
			f := NodalForces(res.P, &Ar)
			copy(el.slots[4*k:4*k+4], f[:])
			el.energy[k] = res.Energy * geometry.TetVolume(&Ar)
			el.jacobian[k] = res.J
			el.branch[k] = res.Branch
		}
	})
	el.Incidence.SumVec(st.Forces, el.slots)
	rep.Energy = floats.Sum(el.energy)
	for k, b := range el.branch {
		if b == Degenerate {
			rep.Degenerate++
			if trace {
				logger.Log(context.Background(), logging.LevelTrace, "degenerate element",
					"element", k, "J", el.jacobian[k], "energy", el.energy[k])
			}
		}
	}
	return
}

// NodalForces distributes the traction of stress P over the four vertices of
// an element with grown reference configuration Ar. The face vectors are the
// area weighted inward normals of the faces, so the four forces sum to zero.
func NodalForces(P mat.Matrix, Ar mat.Matrix) (f [4]r3.Vec) {
	var (
		xr1 = column(Ar, 0)
		xr2 = column(Ar, 1)
		xr3 = column(Ar, 2)
		N1  = r3.Cross(xr3, xr1)
		N2  = r3.Cross(xr2, xr3)
		N3  = r3.Cross(xr1, xr2)
		N4  = r3.Cross(r3.Sub(xr2, xr3), r3.Sub(xr1, xr3))
	)
	traction := func(a, b, c r3.Vec) r3.Vec {
		return r3.Scale(1./6., mulVec(P, r3.Add(r3.Add(a, b), c)))
	}
	f[0] = traction(N1, N2, N3)
	f[1] = traction(N1, N3, N4)
	f[2] = traction(N2, N3, N4)
	f[3] = traction(N1, N2, N4)
	return
}

func column(A mat.Matrix, j int) r3.Vec {
	return r3.Vec{X: A.At(0, j), Y: A.At(1, j), Z: A.At(2, j)}
}

func mulVec(A mat.Matrix, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: A.At(0, 0)*v.X + A.At(0, 1)*v.Y + A.At(0, 2)*v.Z,
		Y: A.At(1, 0)*v.X + A.At(1, 1)*v.Y + A.At(1, 2)*v.Z,
		Z: A.At(2, 0)*v.X + A.At(2, 1)*v.Y + A.At(2, 2)*v.Z,
	}
}
