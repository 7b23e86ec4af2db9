package main

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeBufferEmitAdvancesCursor(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64))
	buf.Emit32(0xAABBCCDD)
	require.Equal(t, 4, buf.Offset())
	require.Equal(t, uint32(0xAABBCCDD), binary.LittleEndian.Uint32(buf.Bytes()))
}

func TestCodeBufferEnsureCapacityFailsWhenTooSmall(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 8))
	require.NoError(t, buf.EnsureCapacity(8))
	buf.Emit32(0)
	buf.Emit32(0)
	err := buf.EnsureCapacity(1)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrArenaExhausted)
}

func TestCodeBufferReserveLiteralRecordsValueAndAdvances(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 32))
	off := buf.ReserveLiteral(0x1122334455667788)
	require.Equal(t, 0, off)
	require.Equal(t, 8, buf.Offset())
	require.Equal(t, uint64(0x1122334455667788), binary.LittleEndian.Uint64(buf.frag[off:]))
}

func TestCodeBufferPatchBranchUnconditional(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 32))
	pb := buf.MarkBranch(BranchUnconditional, 0)
	buf.Emit32(0) // filler instruction between branch and target
	target := buf.Offset()

	require.NoError(t, buf.PatchBranch(pb, target))

	word := binary.LittleEndian.Uint32(buf.frag[pb.Offset:])
	require.Equal(t, uint32(0b000101<<26), word&0xFC000000, "opcode bits must be the unconditional B encoding")
	require.Equal(t, uint32(1), word&0x03FFFFFF, "branch is one instruction word forward")
}

func TestCodeBufferPatchBranchRejectsMisalignedTarget(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 32))
	pb := buf.MarkBranch(BranchUnconditional, 0)
	err := buf.PatchBranch(pb, pb.Offset+1)
	require.Error(t, err)
}

func TestCodeBufferPatchBranchConditionalPreservesConditionBits(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 32))
	pb := buf.MarkBranch(BranchConditional, 0x54000000|uint32(condNE))

	require.NoError(t, buf.PatchBranch(pb, pb.Offset+8))

	word := binary.LittleEndian.Uint32(buf.frag[pb.Offset:])
	require.Equal(t, uint32(condNE), word&0xF, "low condition bits must survive patching")
}

func TestCodeBufferFinalizeOnEmptyBufferIsNoop(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 16))
	require.NoError(t, buf.Finalize())
}

func TestCodeBufferFinalizeOnWrittenBufferSucceeds(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 16))
	buf.Emit32(0xD503201F)
	require.NoError(t, buf.Finalize())
}
