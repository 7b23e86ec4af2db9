package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuestExceptionConstructors(t *testing.T) {
	require.Equal(t, uint8(VEC_ILLEGAL_INSTR), NewIllegalInstruction(0x1000).Vector)
	require.Equal(t, uint8(VEC_ZERO_DIVIDE), NewZeroDivide(0x1000).Vector)
	require.Equal(t, uint8(VEC_PRIVILEGE), NewPrivilegeViolation(0x1000).Vector)

	ae := NewAddressError(0x2000, 0x2001)
	require.Equal(t, uint8(VEC_ADDRESS_ERROR), ae.Vector)
	require.Contains(t, ae.Error(), "2001")
}

func TestRaiseGuestExceptionPushesFrameAndVectors(t *testing.T) {
	mem := NewFlatGuestMemory(0x10000)
	g := NewGuestState(DefaultSupervisorConfig())
	g.VBR = 0x8000
	g.ISP = 0x1000
	g.AddrRegs[7] = g.ISP
	g.SR = SR_S | (7 << SR_SHIFT) // boot supervisor state
	g.PC = 0x400

	mem.Write32(uint32(g.VBR)+uint32(VEC_ILLEGAL_INSTR)*4, 0x600)

	exc := NewIllegalInstruction(0x400)
	raiseGuestException(g, mem, exc)

	require.Equal(t, uint32(0x600), g.PC)
	require.Equal(t, uint32(0x1000-6), g.ISP, "frame is 4 bytes PC + 2 bytes SR")
	require.Equal(t, uint32(0x400), mem.Read32(g.ISP+2))
}

func TestRaiseGuestExceptionClearsSupervisorBitOfSavedSRWhenEnteringFromUser(t *testing.T) {
	mem := NewFlatGuestMemory(0x10000)
	g := NewGuestState(DefaultSupervisorConfig())
	g.VBR = 0
	g.USP = 0x2000
	g.ISP = 0x1000
	g.SR = 0 // user mode, S clear
	g.AddrRegs[7] = g.USP
	g.PC = 0x500

	raiseGuestException(g, mem, NewIllegalInstruction(0x500))

	savedSR := mem.Read16(g.ISP)
	require.Zero(t, savedSR&SR_S, "saved SR must reflect the pre-exception user-mode state")
	require.NotZero(t, g.SR&SR_S, "handler itself now runs in supervisor mode")
}

func TestErrTranslationFailedUnwraps(t *testing.T) {
	inner := errors.New("boom")
	wrapped := &ErrTranslationFailed{PC: 0x10, Err: inner}
	require.ErrorIs(t, wrapped, inner)
	require.Contains(t, wrapped.Error(), "0x10")
}

func newTestCache(t *testing.T) *TUCache {
	t.Helper()
	arena, err := NewMmapArena(1024 * 1024)
	require.NoError(t, err)
	return NewTUCache(arena, DefaultSoftFlushHigh, DefaultSoftFlushLow)
}

func TestBuildWithRetrySucceedsFirstTry(t *testing.T) {
	cache := newTestCache(t)
	calls := 0
	tu, err := buildWithRetry(cache, 0x1000, func() (TranslationUnit, error) {
		calls++
		return TranslationUnit{GuestPC: 0x1000, Code: []byte{1, 2, 3, 4}, SourceLen: 2}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, tu)
	require.Equal(t, 1, calls)
}

func TestBuildWithRetrySoftFlushesOnArenaExhaustion(t *testing.T) {
	cache := newTestCache(t)
	calls := 0
	tu, err := buildWithRetry(cache, 0x2000, func() (TranslationUnit, error) {
		calls++
		if calls == 1 {
			return TranslationUnit{}, ErrArenaExhausted
		}
		return TranslationUnit{GuestPC: 0x2000, Code: []byte{1, 2, 3, 4}, SourceLen: 2}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, tu)
	require.Equal(t, 2, calls)
}

func TestBuildWithRetryFailsAfterHardFlush(t *testing.T) {
	cache := newTestCache(t)
	calls := 0
	_, err := buildWithRetry(cache, 0x3000, func() (TranslationUnit, error) {
		calls++
		return TranslationUnit{}, ErrArenaExhausted
	})
	require.Error(t, err)
	require.Equal(t, 3, calls, "initial try, soft-flush retry, hard-flush retry")

	var failed *ErrTranslationFailed
	require.ErrorAs(t, err, &failed)
}

func TestBuildWithRetryPropagatesNonArenaErrorImmediately(t *testing.T) {
	cache := newTestCache(t)
	calls := 0
	sentinel := errors.New("decode error")
	_, err := buildWithRetry(cache, 0x4000, func() (TranslationUnit, error) {
		calls++
		return TranslationUnit{}, sentinel
	})
	require.Error(t, err)
	require.Equal(t, 1, calls, "non-arena errors must not retry")
	require.ErrorIs(t, err, sentinel)
}
