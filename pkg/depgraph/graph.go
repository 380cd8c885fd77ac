// Package depgraph builds the must-precede dependency graph over a batch of
// transactions from their observed access sets.
package depgraph

import (
	"sort"

	"github.com/lightchain-engine/pte/pkg/access"
)

// Entry pairs a transaction's position in the batch with the access set
// observed for its optimistic attempt.
type Entry struct {
	TxIndex int
	Set     access.Set
}

// Graph is the implicit DAG over a batch: for each TxIndex, the set of
// earlier TxIndex values it must-precede-after. Edges carry no weight; only
// existence matters, so a predecessor set is a sufficient representation
// for the level assignment the scheduler performs.
type Graph struct {
	// Predecessors[j] holds earlier TxIndex values i < j that conflict
	// with j under the WW/WR/RW rules. Not every conflicting earlier
	// transaction is listed: a predecessor appears only when it is the
	// most recent writer of a location Tj touches, or a reader of a
	// location Tj writes that hasn't been superseded by a later writer
	// yet. Older conflicting transactions are reached through those.
	Predecessors map[int][]int
}

// location index tracks, per access.Location, enough history to derive
// must-precede edges without an O(N^2) pairwise scan.
type locationHistory struct {
	lastWriter         int // -1 if none yet
	readersSinceWriter []int
}

// Build constructs the dependency graph from entries, which must be supplied
// in original TxIndex order (ascending, starting at the batch's first
// index). Build does not itself enforce ordering — callers (the Parallel
// Executor) are responsible for handing entries over in original order,
// since that order is the only thing that makes "earlier" meaningful here.
func Build(entries []Entry) *Graph {
	g := &Graph{Predecessors: make(map[int][]int, len(entries))}
	history := make(map[access.Location]*locationHistory)

	historyFor := func(loc access.Location) *locationHistory {
		h, ok := history[loc]
		if !ok {
			h = &locationHistory{lastWriter: -1}
			history[loc] = h
		}
		return h
	}

	for _, e := range entries {
		preds := make(map[int]struct{})

		e.Set.Reads.Each(func(loc access.Location) bool {
			h := historyFor(loc)
			if h.lastWriter != -1 {
				preds[h.lastWriter] = struct{}{}
			}
			return false
		})

		e.Set.Writes.Each(func(loc access.Location) bool {
			h := historyFor(loc)
			if h.lastWriter != -1 {
				preds[h.lastWriter] = struct{}{}
			}
			for _, r := range h.readersSinceWriter {
				preds[r] = struct{}{}
			}
			return false
		})

		if len(preds) > 0 {
			list := make([]int, 0, len(preds))
			for p := range preds {
				list = append(list, p)
			}
			sort.Ints(list)
			g.Predecessors[e.TxIndex] = list
		}

		// Update the index with this transaction's own accesses, after
		// computing its predecessors so it never depends on itself.
		e.Set.Reads.Each(func(loc access.Location) bool {
			historyFor(loc).readersSinceWriter = append(historyFor(loc).readersSinceWriter, e.TxIndex)
			return false
		})
		e.Set.Writes.Each(func(loc access.Location) bool {
			h := historyFor(loc)
			h.lastWriter = e.TxIndex
			h.readersSinceWriter = h.readersSinceWriter[:0]
			return false
		})
	}

	return g
}
