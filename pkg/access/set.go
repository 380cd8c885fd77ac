package access

import mapset "github.com/deckarep/golang-set/v2"

// Set is the pair of read and write locations observed for one transaction
// attempt. The invariant writes ⊆ reads ∪ writes holds by construction: a
// write always lands in Writes, and OnWrite also records a read unless the
// caller explicitly signals a blind write.
type Set struct {
	Reads  mapset.Set[Location]
	Writes mapset.Set[Location]
}

// NewSet returns an empty access set.
func NewSet() Set {
	return Set{
		Reads:  mapset.NewThreadUnsafeSet[Location](),
		Writes: mapset.NewThreadUnsafeSet[Location](),
	}
}

// ConflictsWith reports whether two access sets conflict per spec: any
// write/write, write/read, or read/write intersection is a conflict.
// Pure read-read overlap is not a conflict.
func (s Set) ConflictsWith(other Set) bool {
	if s.Writes.Intersect(other.Writes).Cardinality() > 0 {
		return true
	}
	if s.Writes.Intersect(other.Reads).Cardinality() > 0 {
		return true
	}
	if s.Reads.Intersect(other.Writes).Cardinality() > 0 {
		return true
	}
	return false
}

// Size returns the combined cardinality used for cap enforcement.
func (s Set) Size() int {
	return s.Reads.Cardinality() + s.Writes.Cardinality()
}
