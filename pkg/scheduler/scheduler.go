// Package scheduler partitions a dependency graph into an ordered sequence
// of waves of mutually independent transactions.
package scheduler

import (
	"sort"

	"github.com/lightchain-engine/pte/pkg/depgraph"
)

// DefaultWaveSizeCap bounds per-wave parallelism to limit the number of
// concurrent snapshot overlays held in memory at once.
const DefaultWaveSizeCap = 100

// Wave is an ordered list of TxIndex; every pair within a wave is
// pairwise non-conflicting, and entries are kept sorted by TxIndex for
// deterministic dispatch and deterministic commit order.
type Wave []int

// Schedule is the ordered sequence of waves produced for one batch.
type Schedule []Wave

// Build assigns each of the n transactions (TxIndex 0..n-1) the smallest
// wave index strictly greater than the maximum wave index of any of its
// predecessors in g, then packs same-level transactions into waves no
// larger than waveSizeCap, spilling any excess into subsequent waves.
//
// Because depgraph.Build only ever records predecessors with a smaller
// TxIndex than their successor, a single left-to-right pass over 0..n-1 is
// enough to compute levels — no explicit topological sort queue is needed.
func Build(g *depgraph.Graph, n int, waveSizeCap int) Schedule {
	if n == 0 {
		return Schedule{}
	}
	if waveSizeCap <= 0 {
		waveSizeCap = DefaultWaveSizeCap
	}

	level := make([]int, n)
	maxLevel := 0
	for tx := 0; tx < n; tx++ {
		preds := g.Predecessors[tx]
		lvl := 0
		for _, p := range preds {
			if level[p]+1 > lvl {
				lvl = level[p] + 1
			}
		}
		level[tx] = lvl
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	buckets := make([][]int, maxLevel+1)
	for tx := 0; tx < n; tx++ {
		buckets[level[tx]] = append(buckets[level[tx]], tx)
	}

	schedule := make(Schedule, 0, len(buckets))
	for _, bucket := range buckets {
		sort.Ints(bucket)
		for start := 0; start < len(bucket); start += waveSizeCap {
			end := start + waveSizeCap
			if end > len(bucket) {
				end = len(bucket)
			}
			wave := make(Wave, end-start)
			copy(wave, bucket[start:end])
			schedule = append(schedule, wave)
		}
	}
	return schedule
}
