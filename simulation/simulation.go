// Package simulation wires the growth field, the elastic force assembly, the
// mid-plane contact and the integrator into a stepping loop over one mesh.
package simulation

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/geometry"
	"github.com/notargets/gofold/growth"
	"github.com/notargets/gofold/logging"
	"github.com/notargets/gofold/mechanics"
)

// Parameters are the physical and numerical constants of a run
type Parameters struct {
	Bulk           float64 // K
	Penalty        float64 // k, degenerate branch stretch penalty
	Eps            float64 // Degenerate branch threshold
	MuWhite        float64 // Shear modulus of the white matter core
	MuGray         float64 // Shear modulus of the gray matter cortex
	Thickness      float64 // Cortical thickness at t = 0
	Density        float64
	Damping        float64
	Growth         float64 // Relative growth constant alpha
	Mode           growth.Mode
	Regions        []growth.RegionParameters // Gompertz parameters per region label, Regional mode
	Dt             float64                   // Time step, zero selects StableTimeStep
	Contact        bool                      // Enables the mid-plane constraint
	MidPlaneY      float64
	Normalize      bool // Center and rescale the mesh before the run
	ParallelDegree int  // Workers per step, zero uses the CPU count
}

// Diagnostics are the scalars reported after every step
type Diagnostics struct {
	Step       int
	Time       float64
	MinEdge    float64
	MaxEdge    float64
	MeanEdge   float64
	Volume     float64
	Energy     float64
	Degenerate int
	Contacts   int
}

// Simulation owns the state of one run. Steps are strictly sequential, the
// work inside a step is split over Params.ParallelDegree workers.
type Simulation struct {
	Params     Parameters
	Mesh       *geometry.Mesh
	Frame      geometry.Frame
	Surface    *geometry.SurfaceIndexMap
	State      *mechanics.State
	Nearest    []int     // Compact index of the nearest surface node, per node
	Depth      []float64 // Distance to the nearest surface node, per node
	Permission []float64 // Growth permission, per node
	Normals    []r3.Vec  // Growth direction normal, per element
	MeanEdge   float64   // Mean surface edge length of the undeformed mesh
	Dt         float64
	Time       float64
	StepCount  int

	elasticity *mechanics.Elasticity
	integrator mechanics.Integrator
	gm         []float64
	logger     *slog.Logger
}

// StableTimeStep is the explicit step size 0.05*sqrt(rho*a²/K) for mean
// edge length a.
func StableTimeStep(meanEdge, density, bulk float64) float64 {
	return 0.05 * math.Sqrt(density*meanEdge*meanEdge/bulk)
}

// New prepares every quantity that depends only on the undeformed mesh. The
// mesh itself is not modified.
func New(m *geometry.Mesh, p Parameters, logger *slog.Logger) (sim *Simulation, err error) {
	var (
		undeformed = m.Undeformed
	)
	if err = p.check(m); err != nil {
		return nil, err
	}
	sim = &Simulation{
		Params: p,
		Mesh:   m,
		logger: logging.OrDiscard(logger),
	}
	if p.Normalize {
		undeformed, sim.Frame = geometry.Normalize(m.Undeformed)
		sim.logger.Debug("normalized mesh", "centroid", sim.Frame.Centroid, "scale", sim.Frame.Scale)
	}
	m.SetParallelDegree(p.ParallelDegree)
	sim.Surface = geometry.BuildSurfaceMap(m.Faces, m.NodeCount())
	N0, err := geometry.SurfaceNormals(undeformed, m.Faces, sim.Surface)
	if err != nil {
		return nil, fmt.Errorf("surface normals: %w", err)
	}
	sim.Nearest, sim.Depth = growth.DistanceToSurface(undeformed, sim.Surface, p.ParallelDegree)
	sim.Permission = growth.GrowthPermission(undeformed)
	sim.Normals = growth.ElementNormals(N0, sim.Nearest, m.Tets)
	sim.MeanEdge = geometry.EdgeLengthStats(undeformed, m.Faces).Mean
	if sim.Dt = p.Dt; sim.Dt == 0 {
		sim.Dt = StableTimeStep(sim.MeanEdge, p.Density, p.Bulk)
	}

	sim.State = mechanics.NewState(undeformed, m.ElementCount())
	sim.elasticity = mechanics.NewElasticity(
		mechanics.Material{Bulk: p.Bulk, Penalty: p.Penalty, Eps: p.Eps},
		m.Tets, geometry.ReferenceConfigurations(undeformed, m.Tets), m.TetIncidence(), p.ParallelDegree)
	sim.elasticity.Logger = sim.logger
	sim.integrator = mechanics.Integrator{
		Damping:        p.Damping,
		Density:        p.Density,
		Dt:             sim.Dt,
		ParallelDegree: p.ParallelDegree,
	}
	sim.logger.Info("simulation ready",
		"nodes", m.NodeCount(), "elements", m.ElementCount(), "surfaceNodes", sim.Surface.Len(),
		"meanEdge", sim.MeanEdge, "dt", sim.Dt, "mode", p.Mode.String())
	return
}

func (p Parameters) check(m *geometry.Mesh) error {
	if p.Bulk <= 0 || p.Density <= 0 || p.Eps <= 0 || p.Thickness <= 0 {
		return fmt.Errorf("bulk modulus, density, eps and thickness must be positive, have %v, %v, %v, %v",
			p.Bulk, p.Density, p.Eps, p.Thickness)
	}
	if p.Dt < 0 {
		return fmt.Errorf("negative time step %v", p.Dt)
	}
	if p.Mode == growth.Constant && p.Growth <= 0 {
		return fmt.Errorf("constant growth needs a positive growth factor, have %v", p.Growth)
	}
	if p.Mode == growth.Regional {
		if len(m.Labels) != m.ElementCount() {
			return fmt.Errorf("regional growth needs one label per element, have %d labels for %d elements",
				len(m.Labels), m.ElementCount())
		}
		if _, err := growth.RegionalRates(p.Regions, m.Labels, 0); err != nil {
			return err
		}
	}
	return nil
}

// Step advances the simulation by one time step: growth and modulus at the
// current time, nodal volumes and elastic forces, contact, then integration.
func (sim *Simulation) Step() (diag Diagnostics, err error) {
	var (
		p         = sim.Params
		st        = sim.State
		t         = sim.Time
		thickness = growth.CortexThickness(p.Thickness, t)
	)
	sim.gm, st.Modulus = growth.ShearModulus(sim.Depth, thickness, p.MuWhite, p.MuGray,
		sim.Permission, sim.Mesh.Tets, p.ParallelDegree)
	if err = sim.updateGrowth(t); err != nil {
		return
	}
	rep := sim.elasticity.Assemble(st)
	if p.Contact {
		diag.Contacts = mechanics.MidPlane{
			Y:         p.MidPlaneY,
			Thickness: thickness,
			Length:    sim.MeanEdge,
			Stiffness: p.Bulk,
		}.Apply(st, sim.Surface.SurfaceToFull)
	}
	sim.integrator.Advance(st)
	sim.Time += sim.Dt
	sim.StepCount++

	es := geometry.EdgeLengthStats(st.Positions, sim.Mesh.Faces)
	diag.Step = sim.StepCount
	diag.Time = sim.Time
	diag.MinEdge, diag.MaxEdge, diag.MeanEdge = es.Min, es.Max, es.Mean
	diag.Volume = geometry.MeshVolume(st.Positions, sim.Mesh.Tets)
	diag.Energy = rep.Energy
	diag.Degenerate = rep.Degenerate
	sim.logger.Debug("step", "step", diag.Step, "time", diag.Time, "energy", diag.Energy,
		"degenerate", diag.Degenerate, "contacts", diag.Contacts)
	return
}

func (sim *Simulation) updateGrowth(t float64) (err error) {
	var (
		p  = sim.Params
		st = sim.State
		ne = sim.Mesh.ElementCount()
	)
	switch p.Mode {
	case growth.Tangential:
		rates := growth.UniformRates(ne, growth.GrowthRate(p.Growth, t))
		growth.TangentialTensors(st.Growth, sim.Normals, sim.gm, rates, p.ParallelDegree)
	case growth.Regional:
		var rates []float64
		if rates, err = growth.RegionalRates(p.Regions, sim.Mesh.Labels, t); err != nil {
			return
		}
		growth.TangentialTensors(st.Growth, sim.Normals, sim.gm, rates, p.ParallelDegree)
	case growth.Homogeneous:
		fillGrowth(st.Growth, func(int) *mat.Dense { return growth.HomogeneousTensor(p.Growth, t) })
	case growth.Constant:
		fillGrowth(st.Growth, func(int) *mat.Dense { return growth.ConstantTensor(p.Growth) })
	case growth.Cortical:
		fillGrowth(st.Growth, func(k int) *mat.Dense { return growth.CorticalTensor(sim.gm[k], p.Growth, t) })
	default:
		err = fmt.Errorf("unsupported growth mode %v", p.Mode)
	}
	return
}

func fillGrowth(G []*mat.Dense, tensor func(k int) *mat.Dense) {
	for k := range G {
		G[k] = tensor(k)
	}
}

// Run performs n steps and returns the diagnostics of the last one. every, if
// positive, is the interval at which diagnostics are passed to report; a
// report error stops the run.
func (sim *Simulation) Run(n, every int, report func(Diagnostics) error) (last Diagnostics, err error) {
	for i := 0; i < n; i++ {
		if last, err = sim.Step(); err != nil {
			return
		}
		if every > 0 && report != nil && (sim.StepCount%every == 0 || i == n-1) {
			if err = report(last); err != nil {
				return
			}
		}
	}
	return
}

// DeformedPositions returns the current node positions in the frame of the
// input mesh.
func (sim *Simulation) DeformedPositions() (X []r3.Vec) {
	X = make([]r3.Vec, len(sim.State.Positions))
	if !sim.Params.Normalize {
		copy(X, sim.State.Positions)
		return
	}
	for i, p := range sim.State.Positions {
		X[i] = sim.Frame.Restore(p)
	}
	return
}
