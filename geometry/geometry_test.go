package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewMeshValidation(t *testing.T) {
	nodes := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}}
	faces := [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}
	t.Run("left handed", func(t *testing.T) {
		_, err := NewMesh(nodes, [][4]int{{0, 1, 3, 2}}, faces)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, 0, ve.Element)
	})
	t.Run("flat", func(t *testing.T) {
		flat := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0}}
		_, err := NewMesh(flat, [][4]int{{0, 1, 2, 3}}, faces)
		assert.Error(t, err)
	})
	t.Run("index out of range", func(t *testing.T) {
		_, err := NewMesh(nodes, [][4]int{{0, 1, 2, 4}}, faces)
		assert.Error(t, err)
		_, err = NewMesh(nodes, [][4]int{{0, 1, 2, 3}}, [][3]int{{0, 1, 7}})
		assert.Error(t, err)
	})
	t.Run("no faces", func(t *testing.T) {
		_, err := NewMesh(nodes, [][4]int{{0, 1, 2, 3}}, nil)
		assert.Error(t, err)
	})
	t.Run("valid", func(t *testing.T) {
		m, err := NewMesh(nodes, [][4]int{{0, 1, 2, 3}}, faces)
		require.NoError(t, err)
		assert.Equal(t, 4, m.NodeCount())
		assert.Equal(t, 1, m.ElementCount())
		assert.Equal(t, 4, m.FaceCount())
	})
}

func TestBuildSurfaceMap(t *testing.T) {
	faces := [][3]int{{5, 2, 7}, {2, 7, 0}}
	sm := BuildSurfaceMap(faces, 8)
	assert.Equal(t, []int{0, 2, 5, 7}, sm.SurfaceToFull)
	assert.Equal(t, 4, sm.Len())
	for compact, full := range sm.SurfaceToFull {
		assert.Equal(t, compact, sm.FullToSurface[full])
	}
	for _, off := range []int{1, 3, 4, 6} {
		assert.False(t, sm.IsSurface(off))
	}
}

func TestSurfaceNormalsUnitLength(t *testing.T) {
	m := NewBoxMesh(3, 2, 2, r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 1, Y: 1, Z: 1})
	sm := BuildSurfaceMap(m.Faces, m.NodeCount())
	N0, err := SurfaceNormals(m.Undeformed, m.Faces, sm)
	require.NoError(t, err)
	require.Len(t, N0, sm.Len())
	for i, n := range N0 {
		assert.InDelta(t, 1., r3.Norm(n), 1e-12, "surface node %d", i)
	}
	// Interior of a box face points along the face normal
	for i, full := range sm.SurfaceToFull {
		p := m.Undeformed[full]
		if math.Abs(p.X-1) < 1e-12 && math.Abs(p.Y) < 0.9 && math.Abs(p.Z) < 0.9 {
			assert.InDelta(t, 1., N0[i].X, 1e-12)
		}
	}
	// Nodes strictly inside the box are not on the surface
	for i := range m.Undeformed {
		p := m.Undeformed[i]
		inside := math.Abs(p.X) < 0.99 && math.Abs(p.Y) < 0.99 && math.Abs(p.Z) < 0.99
		assert.Equal(t, !inside, sm.IsSurface(i))
	}
}

func TestSurfaceNormalsDegenerateStar(t *testing.T) {
	nodes := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}}
	faces := [][3]int{{0, 1, 2}}
	_, err := SurfaceNormals(nodes, faces, BuildSurfaceMap(faces, 3))
	assert.Error(t, err)
}

func TestNodalVolumesSumToMeshVolume(t *testing.T) {
	m := NewBoxMesh(2, 3, 2, r3.Vec{X: 0, Y: 0, Z: 0}, r3.Vec{X: 2, Y: 1.5, Z: 1})
	Vn0 := NodalVolumes(m.Undeformed, m.Tets)
	assert.InDelta(t, 3., floats.Sum(Vn0), 1e-12)
	assert.InDelta(t, MeshVolume(m.Undeformed, m.Tets), floats.Sum(Vn0), 1e-12)

	// Current configuration, independently of the reference one
	deformed := make([]r3.Vec, m.NodeCount())
	for i, p := range m.Undeformed {
		deformed[i] = r3.Vec{X: p.X * 1.1, Y: p.Y + 0.2*p.X, Z: p.Z * 0.9}
	}
	Vn := CurrentNodalVolumes(m.TetIncidence(), DeformedConfigurations(nil, deformed, m.Tets, 2))
	assert.InDelta(t, MeshVolume(deformed, m.Tets), floats.Sum(Vn), 1e-12)
	assert.InDelta(t, 3.*1.1*0.9, floats.Sum(Vn), 1e-12)
	for i := range Vn {
		assert.Greater(t, Vn0[i], 0.)
	}
}

func TestGrownNodalVolumes(t *testing.T) {
	m := NewSingleTetMesh()
	A0 := ReferenceConfigurations(m.Undeformed, m.Tets)
	G := mat.NewDense(3, 3, []float64{2, 0, 0, 0, 2, 0, 0, 0, 2})
	grown := GrownNodalVolumes(m.TetIncidence(), A0, []*mat.Dense{G})
	for _, v := range grown {
		assert.InDelta(t, 8./6./4., v, 1e-14)
	}
}

func TestEdgeLengthStats(t *testing.T) {
	m := NewSingleTetMesh()
	es := EdgeLengthStats(m.Undeformed, m.Faces)
	assert.InDelta(t, 1., es.Min, 1e-15)
	assert.InDelta(t, math.Sqrt2, es.Max, 1e-15)
	assert.InDelta(t, (3+3*math.Sqrt2)/6., es.Mean, 1e-14)
	assert.Equal(t, EdgeStats{}, EdgeLengthStats(m.Undeformed, nil))
}

func TestNormalize(t *testing.T) {
	in := []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 5, Y: 2, Z: 3}, {X: 1, Y: 4, Z: 3}, {X: 1, Y: 2, Z: 4}}
	out, fr := Normalize(in)
	require.Len(t, out, 4)
	assert.InDelta(t, 2., fr.Centroid.X, 1e-15)
	assert.InDelta(t, 3., fr.Scale, 1e-15) // |5 - 2|
	// x and z are negated, y is not
	assert.InDelta(t, -1., out[1].X, 1e-15)
	assert.InDelta(t, (4-2.5)/3., out[2].Y, 1e-15)
	assert.InDelta(t, -(4-3.25)/3., out[3].Z, 1e-15)
	var centroid r3.Vec
	for _, p := range out {
		centroid = r3.Add(centroid, p)
	}
	assert.InDelta(t, 0., r3.Norm(centroid), 1e-14)
	for i := range in {
		assert.InDelta(t, 0., r3.Norm(r3.Sub(in[i], fr.Restore(out[i]))), 1e-14)
	}
	// A right handed tetrahedron stays right handed
	m := NewSingleTetMesh()
	norm, _ := Normalize(m.Undeformed)
	assert.Greater(t, TetVolume(EdgeMatrix(norm, m.Tets[0])), 0.)
}
