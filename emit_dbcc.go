// emit_dbcc.go - DBcc family emitter (§4.C): decrement-and-branch-on-
// condition-false, one of the few guest instructions whose semantics
// depend on the OUTCOME of a condition test rather than just its value.
//
// When cc is true DBcc terminates the loop without decrementing: it falls
// through to the next guest instruction. It only decrements and possibly
// branches when cc is false. A reimplementation needs exactly one scratch
// register for the decremented low word and must free it exactly once (§9
// Design Notes) - this emitter claims the scratch with a single
// AllocTemporary after the condition test and releases it with a single
// FreeTemporary right after the decrement sequence; the early DBT return
// never allocates it, so no path frees twice or leaks.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import "fmt"

// EmitDBcc emits the host sequence for "DBcc Dn, displacement" at ctx.GuestPC.
// dn is the guest data register index, cc the condition predicate, target
// the guest PC to branch to when the loop continues, fallthroughPC the
// guest PC of the next sequential instruction.
func EmitDBcc(ctx *EmitCtx, dn int, cc uint8, target, fallthroughPC uint32) error {
	if err := guardCapacity(ctx, worstCaseDBcc); err != nil {
		return err
	}
	if dn < 0 || dn > 7 {
		return fmt.Errorf("emit dbcc: bad register D%d", dn)
	}

	// cc == CC_T (DBT) never loops; it is equivalent to a no-op that always
	// falls through regardless of Dn (§8 Testable Properties).
	if cc == CC_T {
		emitBranchToGuestPC(ctx, fallthroughPC)
		return nil
	}

	hostDn, resident := ctx.Regs.MapForRead(dn)
	if !resident {
		emitLoadGuestGP(ctx, dn, hostDn)
	}

	// cc == CC_F (DBF/DBRA) always falls into the decrement; every other
	// predicate must test first and skip the decrement when true. Flags are
	// not kept continuously resident in host NZCV across a unit (§4.C), so
	// the test goes through conditionTestHelper - the same runtime-helper
	// approach decodeBranch uses for Bcc - rather than a native B.cond that
	// would read whatever PSTATE last happened to hold.
	var skipDecrement *PendingBranch
	if cc != CC_F {
		if _, ok := hostCondFor(cc); !ok {
			return fmt.Errorf("emit dbcc: unmapped condition %d", cc)
		}
		emitMovImm64(ctx.Buf, HostReg(0), uint64(cc))
		ctx.Buf.Emit32(0x94000000) // BL conditionTestHelper(g, cc) -> W0: 1 if cc holds
		// CBNZ W0, <label>: skip the decrement+branch block when cc holds.
		skipDecrement = ctx.Buf.MarkBranch(BranchCompareZero, 0x35000000)
	}

	scratch, err := ctx.Regs.AllocTemporary()
	if err != nil {
		return fmt.Errorf("emit dbcc: %w", err)
	}

	// SUB Wscratch, Whost, #1 (only the low 16 bits are architecturally
	// meaningful; SUB on the 32-bit view and a subsequent SXTH keeps the
	// upper word of Dn untouched, as required by §8's DBF property).
	ctx.Buf.Emit32(0x51000400 | (uint32(hostDn) << 5) | uint32(scratch))
	// SXTH Wscratch, Wscratch (sign-extend low 16 bits into the 32-bit reg).
	ctx.Buf.Emit32(0x13003C00 | (uint32(scratch) << 5) | uint32(scratch))
	// BFI Whost, Wscratch, #0, #16 - write back only the low 16 bits of Dn.
	ctx.Buf.Emit32(0x33000000 | (uint32(15) << 10) | (uint32(scratch) << 5) | uint32(hostDn))
	ctx.Regs.MarkDirty(dn)

	ctx.Regs.FreeTemporary(scratch) // freed exactly once, on this single path

	// CMN Wscratch, #1 tests whether the decremented low word is now -1
	// (0xFFFF after sign extension), i.e. the loop is exhausted. Unlike the
	// guest-cc test above, this branch immediately follows the comparison
	// that sets it, so a native B.EQ off the just-written host flags is
	// exact (§4.C's "immediately follows" case in hostCondFor's contract).
	ctx.Buf.Emit32(0x31000400 | (uint32(scratch) << 5) | 0x1F)
	exhausted := ctx.Buf.MarkBranch(BranchConditional, 0x54000000|uint32(condEQ)) // B.EQ -> fallthrough

	branchBack := emitBranchToGuestPCPending(ctx, target)
	_ = branchBack

	exitOffset := ctx.Buf.Offset()
	if skipDecrement != nil {
		if err := ctx.Buf.PatchBranch(skipDecrement, exitOffset); err != nil {
			return err
		}
	}
	if err := ctx.Buf.PatchBranch(exhausted, exitOffset); err != nil {
		return err
	}
	emitBranchToGuestPC(ctx, fallthroughPC)
	return nil
}

// emitLoadGuestGP loads guest data register n from GuestState into a host
// register via the reserved GuestState-base register (X27).
func emitLoadGuestGP(ctx *EmitCtx, n int, host HostReg) {
	off := guestStateDataRegOffset(n)
	// LDR Whost, [X27, #off]
	ctx.Buf.Emit32(0xB9400000 | (uint32(off/4) << 10) | (27 << 5) | uint32(host))
}

// guestStateDataRegOffset computes the byte offset of DataRegs[n] within
// GuestState, matching the field layout in guest_state.go.
func guestStateDataRegOffset(n int) int {
	const pcSRPad = 4 + 2 + 2 // PC + SR + _pad0
	return pcSRPad + n*4
}

// emitBranchToGuestPC emits the unconditional exit sequence that hands
// control back to the dispatcher with the guest PC materialized, for a
// statically-known target.
func emitBranchToGuestPC(ctx *EmitCtx, pc uint32) {
	emitMovImm64(ctx.Buf, HostReg(0), uint64(pc))
	// STR W0, [X27, #0]  (GuestState.PC is the first field)
	ctx.Buf.Emit32(0xB9000000 | (27 << 5) | 0)
	// RET (return to the dispatcher trampoline)
	ctx.Buf.Emit32(0xD65F03C0)
}

// emitBranchToGuestPCPending is identical but reserved for a future linker
// pass that resolves intra-cache direct links; for now it behaves exactly
// like emitBranchToGuestPC (§4.D leaves direct linking as a cache-layer
// optimization, not a correctness requirement).
func emitBranchToGuestPCPending(ctx *EmitCtx, pc uint32) *PendingBranch {
	emitBranchToGuestPC(ctx, pc)
	return nil
}
