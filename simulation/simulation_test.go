package simulation

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/geometry"
	"github.com/notargets/gofold/growth"
	"github.com/notargets/gofold/logging"
)

func testParameters() Parameters {
	return Parameters{
		Bulk:           5,
		Eps:            0.1,
		MuWhite:        1.167,
		MuGray:         1,
		Thickness:      0.042,
		Density:        0.01,
		Damping:        0.5,
		Growth:         1.829,
		Mode:           growth.Tangential,
		MidPlaneY:      -0.004,
		ParallelDegree: 2,
	}
}

func newBox() *geometry.Mesh {
	return geometry.NewBoxMesh(3, 3, 3, r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 1, Y: 1, Z: 1})
}

func TestStableTimeStep(t *testing.T) {
	assert.InDelta(t, 0.05*math.Sqrt(0.01*0.04/5), StableTimeStep(0.2, 0.01, 5), 1e-18)
}

func TestFirstStepAtRest(t *testing.T) {
	var buf bytes.Buffer
	m := newBox()
	sim, err := New(m, testParameters(), logging.NewLogger("debug", &buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "simulation ready")
	assert.InDelta(t, StableTimeStep(sim.MeanEdge, 0.01, 5), sim.Dt, 1e-18)

	// At t = 0 the growth tensor is the identity, nothing moves
	diag, err := sim.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, diag.Step)
	assert.Equal(t, sim.Dt, diag.Time)
	assert.InDelta(t, 8., diag.Volume, 1e-12)
	assert.InDelta(t, 0., diag.Energy, 1e-12)
	assert.Equal(t, 0, diag.Degenerate)
	assert.InDelta(t, 2./3., diag.MinEdge, 1e-12)
	for i, p := range sim.State.Positions {
		assert.InDelta(t, 0., r3.Norm(r3.Sub(p, m.Undeformed[i])), 1e-12)
	}
	assert.Contains(t, buf.String(), "msg=step")
}

func TestConstantGrowthExpands(t *testing.T) {
	p := testParameters()
	p.Mode = growth.Constant
	p.Growth = 1.1
	sim, err := New(newBox(), p, nil)
	require.NoError(t, err)
	var reports []Diagnostics
	last, err := sim.Run(40, 10, func(d Diagnostics) error {
		reports = append(reports, d)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, reports, 4)
	assert.Equal(t, 40, last.Step)
	assert.Equal(t, reports[3], last)
	assert.False(t, math.IsNaN(last.Energy))
	// Compressed against the grown reference, the box swells toward 1.1³ of its volume
	for _, d := range reports {
		assert.Greater(t, d.Volume, 8.)
		assert.Less(t, d.Volume, 1.5*8.*1.331)
	}
	assert.Greater(t, reports[1].Volume, reports[0].Volume)

	stop := errors.New("stop")
	_, err = sim.Run(5, 1, func(Diagnostics) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 41, sim.StepCount)
}

func TestStepsDeterministicAcrossDegrees(t *testing.T) {
	var reference []r3.Vec
	for _, degree := range []int{1, 4} {
		p := testParameters()
		p.Mode = growth.Cortical
		p.Growth = 40
		p.ParallelDegree = degree
		sim, err := New(newBox(), p, nil)
		require.NoError(t, err)
		_, err = sim.Run(5, 0, nil)
		require.NoError(t, err)
		if reference == nil {
			reference = sim.State.Positions
			continue
		}
		assert.Equal(t, reference, sim.State.Positions)
	}
}

func TestNormalizedRun(t *testing.T) {
	m := geometry.NewBoxMesh(2, 2, 2, r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 3, Y: 6, Z: 5})
	p := testParameters()
	p.Normalize = true
	p.Contact = true
	sim, err := New(m, p, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2., sim.Frame.Scale, 1e-15)
	for i, x := range sim.DeformedPositions() {
		assert.InDelta(t, 0., r3.Norm(r3.Sub(x, m.Undeformed[i])), 1e-12)
	}
	// Undeformed mesh is left untouched
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, m.Undeformed[0])
	diag, err := sim.Step()
	require.NoError(t, err)
	assert.InDelta(t, 1., diag.Volume, 1e-12)
	assert.Equal(t, 0, diag.Contacts)
}

func TestParameterChecks(t *testing.T) {
	p := testParameters()
	p.Density = 0
	_, err := New(newBox(), p, nil)
	assert.Error(t, err)

	p = testParameters()
	p.Mode = growth.Regional
	_, err = New(newBox(), p, nil)
	assert.Error(t, err)

	m := newBox()
	m.Labels = make([]int, m.ElementCount())
	m.Labels[3] = 1
	p.Regions = []growth.RegionParameters{{Amplitude: 1.8, Peak: 2.2, Latency: 0.5}}
	_, err = New(m, p, nil)
	assert.Error(t, err)

	p.Regions = append(p.Regions, growth.RegionParameters{Amplitude: 1, Peak: 1, Latency: 1})
	sim, err := New(m, p, nil)
	require.NoError(t, err)
	_, err = sim.Step()
	assert.NoError(t, err)

	p = testParameters()
	p.Mode = growth.Constant
	p.Growth = 0
	_, err = New(newBox(), p, nil)
	assert.Error(t, err)
}
