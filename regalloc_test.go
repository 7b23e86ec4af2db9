package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFreeTemporaryRoundTrip(t *testing.T) {
	ra := NewRegAlloc()
	r, err := ra.AllocTemporary()
	require.NoError(t, err)
	ra.FreeTemporary(r)

	r2, err := ra.AllocTemporary()
	require.NoError(t, err)
	require.Equal(t, r, r2, "the freed register should be available for immediate reuse")
}

// TestFreeTemporaryTwiceIsSafe resolves the scratch-register double-free
// open question: freeing the same register twice must never corrupt the
// pool or hand the same register out to two live users.
func TestFreeTemporaryTwiceIsSafe(t *testing.T) {
	ra := NewRegAlloc()
	r, err := ra.AllocTemporary()
	require.NoError(t, err)

	ra.FreeTemporary(r)
	ra.FreeTemporary(r) // double free: must be a no-op, not a corruption

	seen := map[HostReg]bool{}
	for i := 0; i < numScratchGP; i++ {
		got, err := ra.AllocTemporary()
		require.NoError(t, err)
		require.False(t, seen[got], "double free must not cause the same register to be allocated twice concurrently")
		seen[got] = true
	}
}

func TestScratchPoolExhaustionEvicts(t *testing.T) {
	ra := NewRegAlloc()
	for i := 0; i < numScratchGP; i++ {
		_, err := ra.AllocTemporary()
		require.NoError(t, err)
	}
	// pool is now fully allocated; the next call evicts the oldest rather
	// than erroring, since emitters are never expected to need more than
	// the pool holds but must not panic if one ever does.
	_, err := ra.AllocTemporary()
	require.NoError(t, err)
}

func TestMapForWriteMarksDirty(t *testing.T) {
	ra := NewRegAlloc()
	ra.MapForWrite(3)
	plans := ra.SpillAll()
	require.Len(t, plans, 1)
	require.Equal(t, 3, plans[0].GuestNo)
	require.False(t, plans[0].IsFP)
}

func TestClearDirtyAfterSpill(t *testing.T) {
	ra := NewRegAlloc()
	ra.MapForWrite(0)
	ra.MapFPForWrite(1)
	plans := ra.SpillAll()
	require.Len(t, plans, 2)

	ra.ClearDirty(plans)
	require.Empty(t, ra.SpillAll())
}
