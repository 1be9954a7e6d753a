package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestIncidence(t *testing.T) {
	// Two triangles sharing the edge 1-2
	cells := [][3]int{{0, 1, 2}, {2, 1, 3}}
	in, err := NewIncidence(4, len(cells), 3, func(c, s int) int { return cells[c][s] })
	require.NoError(t, err)
	assert.Equal(t, []int{0}, in.Slots(0))
	assert.Equal(t, []int{1, 4}, in.Slots(1))
	assert.Equal(t, []int{2, 3}, in.Slots(2))
	assert.Equal(t, []int{5}, in.Slots(3))
	assert.Equal(t, 2, in.Degree(1))

	dst := []float64{10, 0, 0, 0}
	in.SumScalar(dst, []float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []float64{11, 7, 7, 6}, dst)

	vdst := make([]r3.Vec, 4)
	in.SumVec(vdst, []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}, {Z: 2}, {Y: 2}, {X: 3}})
	assert.Equal(t, []r3.Vec{{X: 1}, {Y: 3}, {Z: 3}, {X: 3}}, vdst)

	assert.Panics(t, func() { in.SumScalar(dst, []float64{1}) })

	_, err = NewIncidence(2, 1, 3, func(c, s int) int { return s })
	assert.Error(t, err)
}

func TestIncidenceDeterministicAcrossDegrees(t *testing.T) {
	var (
		nn, nc  = 50, 400
		cells   = make([][4]int, nc)
		contrib = make([]float64, 4*nc)
	)
	for c := range cells {
		for s := 0; s < 4; s++ {
			cells[c][s] = (7*c + 13*s*s + c*c) % nn
			contrib[4*c+s] = math.Sin(float64(17*c+s)) * math.Pow(10, float64(c%7-3))
		}
	}
	in, err := NewIncidence(nn, nc, 4, func(c, s int) int { return cells[c][s] })
	require.NoError(t, err)
	var reference []float64
	for _, degree := range []int{1, 2, 5, 32} {
		in.ParallelDegree = degree
		dst := make([]float64, nn)
		in.SumScalar(dst, contrib)
		if reference == nil {
			reference = dst
			continue
		}
		// Bitwise identical, not just close
		assert.Equal(t, reference, dst, "degree %d", degree)
	}
}
