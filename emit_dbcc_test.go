package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEmitCtx(t *testing.T, pc uint32) (*EmitCtx, *CodeBuffer) {
	t.Helper()
	arena, err := NewMmapArena(64 * 1024)
	require.NoError(t, err)
	frag, err := arena.Alloc(4096)
	require.NoError(t, err)
	buf := NewCodeBuffer(frag)
	return &EmitCtx{Buf: buf, Regs: NewRegAlloc(), GuestPC: pc}, buf
}

// TestDBccScratchFreedExactlyOnce is the regression test for the open
// question: the scratch register AllocTemporary hands out during DBcc
// emission must be back in the free pool exactly once, not zero and not
// twice, after EmitDBcc returns on every cc path.
func TestDBccScratchFreedExactlyOnce(t *testing.T) {
	for _, cc := range []uint8{CC_F, CC_T, CC_NE, CC_EQ, CC_GT} {
		ctx, _ := newTestEmitCtx(t, 0x1000)
		before := countFreeScratch(ctx.Regs)

		err := EmitDBcc(ctx, 0, cc, 0x1000, 0x1004)
		require.NoError(t, err)

		after := countFreeScratch(ctx.Regs)
		require.Equal(t, before, after, "cc=%d must leave the scratch pool exactly as it found it", cc)
	}
}

func countFreeScratch(ra *RegAlloc) int {
	n := 0
	for i := 0; i < numScratchGP; i++ {
		if !ra.scratchUsed[i] {
			n++
		}
	}
	return n
}

func TestDBTNeverLoops(t *testing.T) {
	ctx, buf := newTestEmitCtx(t, 0x2000)
	err := EmitDBcc(ctx, 0, CC_T, 0x1000, 0x2004)
	require.NoError(t, err)
	require.Greater(t, buf.Offset(), 0)
}

func TestEmitUndefinedWritesGuardWord(t *testing.T) {
	ctx, buf := newTestEmitCtx(t, 0x3000)
	err := EmitUndefined(ctx, 0x3000)
	require.NoError(t, err)

	word := buf.frag[0:4]
	require.Equal(t, byte(UndefinedGuardWord&0xFF), word[0])
}
