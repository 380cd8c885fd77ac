// Package snapshot provides copy-on-write state views so that concurrent
// workers can speculatively execute without observing each other's
// uncommitted writes, and so that the canonical state transitions
// atomically and deterministically.
package snapshot

import (
	"errors"
	"sync"

	"github.com/lightchain-engine/pte/pkg/access"
)

// ErrStaleOverlay is returned by Commit when an overlay's write set
// intersects a location that the parent has had written to it since the
// overlay was created. The caller must re-schedule the transaction rather
// than silently lose the intervening write.
var ErrStaleOverlay = errors.New("stale overlay: parent mutated since fork")

// Manager owns the single canonical state map for the duration of one batch
// execution. It is exclusively mutated by Commit/Seed; Child forks a
// read-through, write-isolated Overlay that never sees another overlay's
// writes.
type Manager struct {
	mu          sync.RWMutex
	canonical   map[access.Location]any
	lastWritten map[access.Location]uint64
	version     uint64
}

// NewManager returns a Manager with empty canonical state.
func NewManager() *Manager {
	return &Manager{
		canonical:   make(map[access.Location]any),
		lastWritten: make(map[access.Location]uint64),
	}
}

// Seed installs initial canonical state outside of the overlay/commit path.
// Intended for test and demo setup only — production callers populate the
// manager once from the world-state handed in by the block producer before
// the first ExecuteBatch call, never mid-batch.
func (m *Manager) Seed(loc access.Location, val any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	m.canonical[loc] = val
	m.lastWritten[loc] = m.version
}

// Get reads a location directly from canonical state, bypassing any
// overlay. Used by the executor for commit-time read-set revalidation and
// by Overlay.Read for locations the overlay has not yet seen.
func (m *Manager) Get(loc access.Location) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.canonical[loc]
	return v, ok
}

// Version returns the current generation counter, bumped once per Seed call
// and once per successful Commit.
func (m *Manager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Child forks a private overlay over the canonical state as it exists at
// this instant. If tracker is non-nil, every Read/Write the overlay serves
// is reported to it, satisfying the Access-Set Tracker's contract that it
// intercepts accesses made through the snapshot view.
func (m *Manager) Child(tracker *access.Tracker) *Overlay {
	m.mu.RLock()
	createdAt := m.version
	m.mu.RUnlock()

	return &Overlay{
		manager:       m,
		createdAt:     createdAt,
		writes:        make(map[access.Location]any),
		observedReads: make(map[access.Location]any),
		tracker:       tracker,
	}
}

// Commit atomically merges an overlay's writes into canonical state,
// provided none of them collide with a write the parent received after the
// overlay was forked. On success the manager's version advances by exactly
// one, and every written location's lastWritten is set to the new version —
// the basis for detecting the next overlay's staleness.
func (m *Manager) Commit(o *Overlay) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for loc := range o.writes {
		if last, ok := m.lastWritten[loc]; ok && last > o.createdAt {
			return ErrStaleOverlay
		}
	}

	m.version++
	for loc, val := range o.writes {
		m.canonical[loc] = val
		m.lastWritten[loc] = m.version
	}
	return nil
}

// Discard drops an overlay with no effect on canonical state. It exists for
// symmetry with Commit and to make abandonment an explicit act at call
// sites rather than an implicit "let it become garbage". It logs nothing.
func (m *Manager) Discard(*Overlay) {}
