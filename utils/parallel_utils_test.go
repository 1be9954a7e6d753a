package utils

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionMap(t *testing.T) {
	{ // Partition sizes differ by at most one and cover the whole range
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				kMin, kMax := pm.GetBucketRange(np)
				histo[kMax-kMin]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		// Degree is clamped to the number of items
		assert.Equal(t, map[int]int{1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		assert.Equal(t, 287, getTotal(getHisto(287, 32)))
		for n := 64; n < 2000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Degree below one is raised to one
		pm := NewPartitionMap(0, 7)
		assert.Equal(t, 1, pm.ParallelDegree)
		assert.Equal(t, [2]int{0, 7}, pm.Partitions[0])
	}
}

func TestParallelFor(t *testing.T) {
	for _, degree := range []int{0, 1, 3, 16} {
		var (
			n       = 1000
			visited = make([]int32, n)
			calls   int32
		)
		ParallelFor(degree, n, func(kMin, kMax int) {
			atomic.AddInt32(&calls, 1)
			for k := kMin; k < kMax; k++ {
				atomic.AddInt32(&visited[k], 1)
			}
		})
		for k := range visited {
			require.Equal(t, int32(1), visited[k], "degree %d index %d", degree, k)
		}
		assert.True(t, calls >= 1)
	}
	ParallelFor(4, 0, func(kMin, kMax int) {
		t.Fatal("no work expected for an empty range")
	})
}
