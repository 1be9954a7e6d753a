package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/spatial/r3"
)

// Incidence is the node to cell-slot incidence of a mesh connectivity. A
// slot is one (cell, local vertex) pair, flattened as cell*Arity + local.
//
// Cells sharing a node all contribute to it, which makes a direct parallel
// scatter into the node array racy. Incidence turns the scatter into a
// gather: cells write their contributions into private slots and every node
// sums its own row of slots. Rows are disjoint, so nodes can be split across
// goroutines without locks, and the order of summation within a row is fixed.
type Incidence struct {
	NodeCount, CellCount, Arity int
	rowPtr                      []int
	slots                       []int
	ParallelDegree              int
}

// NewIncidence builds the incidence for cellCount cells of arity vertices
// each; vertexOf(c, s) returns the node index of local vertex s of cell c.
func NewIncidence(nodeCount, cellCount, arity int, vertexOf func(c, s int) int) (in *Incidence, err error) {
	var (
		nSlots = cellCount * arity
	)
	in = &Incidence{
		NodeCount: nodeCount,
		CellCount: cellCount,
		Arity:     arity,
		rowPtr:    make([]int, nodeCount+1),
	}
	if nodeCount == 0 || nSlots == 0 {
		return
	}
	SpNToS := sparse.NewDOK(nodeCount, nSlots)
	for c := 0; c < cellCount; c++ {
		for s := 0; s < arity; s++ {
			node := vertexOf(c, s)
			if node < 0 || node >= nodeCount {
				err = fmt.Errorf("cell %d vertex %d references node %d outside [0, %d)",
					c, s, node, nodeCount)
				return nil, err
			}
			SpNToS.Set(node, c*arity+s, 1)
		}
	}
	raw := SpNToS.ToCSR().RawMatrix()
	copy(in.rowPtr, raw.Indptr)
	in.slots = make([]int, len(raw.Ind))
	copy(in.slots, raw.Ind)
	for n := 0; n < nodeCount; n++ {
		sort.Ints(in.slots[in.rowPtr[n]:in.rowPtr[n+1]])
	}
	return
}

// Slots returns the flattened slot indices incident on node n.
func (in *Incidence) Slots(n int) []int {
	return in.slots[in.rowPtr[n]:in.rowPtr[n+1]]
}

// Degree is the number of cells incident on node n.
func (in *Incidence) Degree(n int) int {
	return in.rowPtr[n+1] - in.rowPtr[n]
}

func (in *Incidence) checkSlots(nContrib int) {
	if nContrib != in.CellCount*in.Arity {
		panic(fmt.Sprintf("contribution length %d, want %d cells x %d slots",
			nContrib, in.CellCount, in.Arity))
	}
}

// SumScalar adds to dst[n] the sum of contrib over the slots of node n.
func (in *Incidence) SumScalar(dst, contrib []float64) {
	in.checkSlots(len(contrib))
	ParallelFor(in.ParallelDegree, in.NodeCount, func(kMin, kMax int) {
		for n := kMin; n < kMax; n++ {
			var sum float64
			for _, s := range in.Slots(n) {
				sum += contrib[s]
			}
			dst[n] += sum
		}
	})
}

// SumVec adds to dst[n] the vector sum of contrib over the slots of node n.
func (in *Incidence) SumVec(dst, contrib []r3.Vec) {
	in.checkSlots(len(contrib))
	ParallelFor(in.ParallelDegree, in.NodeCount, func(kMin, kMax int) {
		for n := kMin; n < kMax; n++ {
			var sum r3.Vec
			for _, s := range in.Slots(n) {
				sum = r3.Add(sum, contrib[s])
			}
			dst[n] = r3.Add(dst[n], sum)
		}
	})
}
