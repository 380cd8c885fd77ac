package scheduler

import (
	"testing"

	"github.com/lightchain-engine/pte/pkg/depgraph"
	"github.com/stretchr/testify/require"
)

func TestBuildEmptyBatch(t *testing.T) {
	g := &depgraph.Graph{Predecessors: map[int][]int{}}
	require.Empty(t, Build(g, 0, 0))
}

func TestBuildAllIndependentSingleWave(t *testing.T) {
	g := &depgraph.Graph{Predecessors: map[int][]int{}}
	sched := Build(g, 3, 0)
	require.Len(t, sched, 1)
	require.Equal(t, Wave{0, 1, 2}, sched[0])
}

func TestBuildFullySerialChain(t *testing.T) {
	g := &depgraph.Graph{Predecessors: map[int][]int{
		1: {0},
		2: {1},
	}}
	sched := Build(g, 3, 0)
	require.Len(t, sched, 3)
	for i, wave := range sched {
		require.Equal(t, Wave{i}, wave)
	}
}

func TestBuildWaveSizeCapSpillsOver(t *testing.T) {
	g := &depgraph.Graph{Predecessors: map[int][]int{}}
	sched := Build(g, 5, 2)
	require.Equal(t, Schedule{{0, 1}, {2, 3}, {4}}, sched)
}

func TestBuildDiamondDependency(t *testing.T) {
	// 0 has no deps; 1 and 2 depend on 0; 3 depends on both 1 and 2.
	g := &depgraph.Graph{Predecessors: map[int][]int{
		1: {0},
		2: {0},
		3: {1, 2},
	}}
	sched := Build(g, 4, 0)
	require.Equal(t, Schedule{{0}, {1, 2}, {3}}, sched)
}
