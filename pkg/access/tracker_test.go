package access

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	addrA = common.HexToAddress("0xa")
	addrB = common.HexToAddress("0xb")
	slot1 = common.HexToHash("0x1")
)

func TestTrackerReadThenWriteIsIdempotentOnReads(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.OnRead(Account(addrA)))
	require.NoError(t, tr.OnWrite(Account(addrA), false))

	set := tr.Set()
	require.True(t, set.Reads.Contains(Account(addrA)))
	require.True(t, set.Writes.Contains(Account(addrA)))
	require.Equal(t, 1, set.Reads.Cardinality())
}

func TestTrackerReadAfterWriteDoesNotDoubleCount(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.OnWrite(Account(addrA), false))
	require.NoError(t, tr.OnRead(Account(addrA)))

	set := tr.Set()
	require.Equal(t, 1, set.Reads.Cardinality())
	require.Equal(t, 1, set.Writes.Cardinality())
}

func TestTrackerBlindWriteSkipsRead(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.OnWrite(Account(addrA), true))

	set := tr.Set()
	require.False(t, set.Reads.Contains(Account(addrA)))
	require.True(t, set.Writes.Contains(Account(addrA)))
}

func TestTrackerOverflow(t *testing.T) {
	tr := New(2)
	require.NoError(t, tr.OnRead(Account(addrA)))
	require.NoError(t, tr.OnRead(Account(addrB)))
	err := tr.OnRead(Storage(addrA, slot1))
	require.ErrorIs(t, err, ErrOverflow)
	require.True(t, tr.Overflowed())
}

func TestSetConflictsWith(t *testing.T) {
	rw := func(reads, writes []Location) Set {
		s := NewSet()
		for _, l := range reads {
			s.Reads.Add(l)
		}
		for _, l := range writes {
			s.Writes.Add(l)
		}
		return s
	}

	cases := []struct {
		name      string
		a, b      Set
		wantClash bool
	}{
		{"read-read no conflict", rw([]Location{Account(addrA)}, nil), rw([]Location{Account(addrA)}, nil), false},
		{"write-write conflict", rw(nil, []Location{Account(addrA)}), rw(nil, []Location{Account(addrA)}), true},
		{"write-read conflict", rw(nil, []Location{Account(addrA)}), rw([]Location{Account(addrA)}, nil), true},
		{"disjoint no conflict", rw([]Location{Account(addrA)}, nil), rw([]Location{Account(addrB)}, nil), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.wantClash, c.a.ConflictsWith(c.b))
			require.Equal(t, c.wantClash, c.b.ConflictsWith(c.a))
		})
	}
}
