// emit_common.go - Shared helpers used by every instruction emitter (§4.C):
// guest->host condition mapping and the capacity-guard a caller must run
// before emitting a new instruction group. No status-register
// materialization is emitted; condition tests call CheckCondition-based
// runtime helpers instead.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import "fmt"

// EmitCtx bundles the per-unit state every emitter needs: the output
// buffer, the register allocator, and the guest PC the current guest
// instruction starts at (for PC-relative branch targets).
type EmitCtx struct {
	Buf     *CodeBuffer
	Regs    *RegAlloc
	GuestPC uint32
}

// arm64Cond is the ARM64 condition-code encoding (AArch64 ARM, C1.2.4); only
// the subset the guest's 16 predicates map onto is named here.
type arm64Cond uint8

const (
	condEQ arm64Cond = 0x0
	condNE arm64Cond = 0x1
	condCS arm64Cond = 0x2 // HS
	condCC arm64Cond = 0x3 // LO
	condMI arm64Cond = 0x4
	condPL arm64Cond = 0x5
	condVS arm64Cond = 0x6
	condVC arm64Cond = 0x7
	condHI arm64Cond = 0x8
	condLS arm64Cond = 0x9
	condGE arm64Cond = 0xA
	condLT arm64Cond = 0xB
	condGT arm64Cond = 0xC
	condLE arm64Cond = 0xD
	condAL arm64Cond = 0xE
)

// hostCondFor maps a guest condition predicate onto the matching ARM64
// condition code, valid only for a branch that immediately follows the host
// comparison instruction that set NZCV (e.g. DBcc's own CMN test, §4.C).
// Flags are not kept resident in host NZCV across a whole translation unit,
// so any guest condition test that is not immediately adjacent to its own
// flag-setting instruction - a guest Bcc, or DBcc's cc predicate - must
// instead go through GuestState.CheckCondition via a runtime helper call
// (condBranchHelper, conditionTestHelper) rather than this mapping.
func hostCondFor(cc uint8) (arm64Cond, bool) {
	switch cc {
	case CC_T:
		return condAL, true
	case CC_F:
		return 0, false // caller must emit an unconditional skip instead
	case CC_HI:
		return condHI, true
	case CC_LS:
		return condLS, true
	case CC_CC:
		return condCC, true
	case CC_CS:
		return condCS, true
	case CC_NE:
		return condNE, true
	case CC_EQ:
		return condEQ, true
	case CC_VC:
		return condVC, true
	case CC_VS:
		return condVS, true
	case CC_PL:
		return condPL, true
	case CC_MI:
		return condMI, true
	case CC_GE:
		return condGE, true
	case CC_LT:
		return condLT, true
	case CC_GT:
		return condGT, true
	case CC_LE:
		return condLE, true
	}
	return 0, false
}

// The worstCase* constants are the per-guest-instruction-class upper bound on emitted
// host bytes, used for the EnsureCapacity precheck (§4.A contract). Classes
// not listed fall back to worstCaseDefault, which every emitter in this
// core comfortably fits under.
const (
	worstCaseDefault = 64
	worstCaseDBcc    = 96
	worstCaseFPUTrig = 512 // range-reduction + polynomial + ROM constant load
)

// guardCapacity is the one call every emitter function makes before writing
// its first byte (§4.A, §7): translation never partially emits a guest
// instruction into a fragment that then turns out to be too small.
func guardCapacity(ctx *EmitCtx, worstCase int) error {
	if err := ctx.Buf.EnsureCapacity(worstCase); err != nil {
		return fmt.Errorf("emit: pc=%#x: %w", ctx.GuestPC, err)
	}
	return nil
}

// emitMovImm64 emits the short sequence to materialize an arbitrary 64-bit
// immediate into host register dst via MOVZ/MOVK (ARM64 has no single
// 64-bit immediate-load instruction). Used by emitters that need a literal
// address or constant without going through the buffer's literal pool.
func emitMovImm64(buf *CodeBuffer, dst HostReg, value uint64) {
	// MOVZ Xd, #imm16, LSL #0
	buf.Emit32(0xD2800000 | (uint32(value&0xFFFF) << 5) | uint32(dst))
	for shift := 1; shift < 4; shift++ {
		chunk := uint32((value >> (16 * shift)) & 0xFFFF)
		if chunk == 0 {
			continue
		}
		// MOVK Xd, #imm16, LSL #(16*shift)
		buf.Emit32(0xF2800000 | (uint32(shift) << 21) | (chunk << 5) | uint32(dst))
	}
}
