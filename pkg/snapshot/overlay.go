package snapshot

import "github.com/lightchain-engine/pte/pkg/access"

// View is the read/write surface the injected executor sees. *Overlay is
// the only production implementation; tests may supply their own.
type View interface {
	Read(loc access.Location) (any, bool)
	Write(loc access.Location, val any, blind bool)
}

// Overlay is a private, copy-on-write state view owned by exactly one
// worker at a time. Reads fall through to the parent for locations the
// overlay hasn't itself written; writes land only in the overlay until
// Commit merges them into canonical state.
type Overlay struct {
	manager   *Manager
	createdAt uint64

	writes        map[access.Location]any
	observedReads map[access.Location]any

	tracker *access.Tracker
}

// Read returns the value at loc, preferring this overlay's own prior write,
// then its own prior read, then falling through to the parent's canonical
// state as it stands at the time of this read. It never observes another
// overlay's uncommitted writes, since those only ever land in that
// overlay's private write map. Writes committed to the parent after this
// overlay was created are visible to a first read of that location; the
// overlay does not pin the parent's state at creation.
func (o *Overlay) Read(loc access.Location) (any, bool) {
	if o.tracker != nil {
		_ = o.tracker.OnRead(loc)
	}
	if v, ok := o.writes[loc]; ok {
		return v, true
	}
	if v, ok := o.observedReads[loc]; ok {
		return v, true
	}
	v, ok := o.manager.Get(loc)
	o.observedReads[loc] = v
	return v, ok
}

// Write records val for loc in this overlay only. blind, when true, tells
// the attached tracker that the executor never observed loc's prior value
// (skipping the implicit read-before-write the tracker otherwise records).
func (o *Overlay) Write(loc access.Location, val any, blind bool) {
	if o.tracker != nil {
		_ = o.tracker.OnWrite(loc, blind)
	}
	o.writes[loc] = val
}

// Writes returns the overlay's write set, keyed by location: the values
// Manager.Commit would merge into canonical state.
func (o *Overlay) Writes() map[access.Location]any { return o.writes }

// ObservedReads returns the value seen for each location this overlay read
// through to the parent, as of when it was first observed. Reads served
// from the overlay's own writes are not recorded. The executor uses this
// for commit-time read-set revalidation: before committing this overlay,
// it re-reads each location from canonical state and compares it against
// what this attempt actually saw.
func (o *Overlay) ObservedReads() map[access.Location]any { return o.observedReads }

// CreatedAt exposes the manager version this overlay forked from, useful
// for diagnostics and tests.
func (o *Overlay) CreatedAt() uint64 { return o.createdAt }

// Overflowed reports whether this overlay's attached tracker exceeded its
// access-set cap. An overlay with no tracker attached never overflows.
func (o *Overlay) Overflowed() bool {
	return o.tracker != nil && o.tracker.Overflowed()
}

// AccessSet returns the access set recorded by this overlay's tracker, or
// an empty set if none is attached.
func (o *Overlay) AccessSet() access.Set {
	if o.tracker == nil {
		return access.NewSet()
	}
	return o.tracker.Set()
}
