package utils

import (
	"runtime"
	"sync"
)

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	if maxIndex > 0 && ParallelDegree > maxIndex {
		ParallelDegree = maxIndex
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// DefaultParallelDegree returns degree when positive, otherwise the number of CPUs.
func DefaultParallelDegree(degree int) int {
	if degree > 0 {
		return degree
	}
	return runtime.NumCPU()
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into pm.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// Run calls fn once per partition, concurrently, and returns after every call
// has finished. Each call owns the half open range [kMin, kMax).
func (pm *PartitionMap) Run(fn func(kMin, kMax int)) {
	if pm.ParallelDegree == 1 {
		fn(pm.Partitions[0][0], pm.Partitions[0][1])
		return
	}
	var (
		wg = sync.WaitGroup{}
	)
	for np := 0; np < pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			kMin, kMax := pm.GetBucketRange(np)
			fn(kMin, kMax)
			wg.Done()
		}(np)
	}
	wg.Wait()
}

// ParallelFor partitions [0, n) into degree pieces and runs fn on each.
func ParallelFor(degree, n int, fn func(kMin, kMax int)) {
	if n == 0 {
		return
	}
	NewPartitionMap(DefaultParallelDegree(degree), n).Run(fn)
}
