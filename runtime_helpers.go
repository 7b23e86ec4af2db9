// runtime_helpers.go - Runtime helpers that the emitted BL #0 placeholders
// stand for; no pass in this core patches those BLs to these addresses
// (§4.C, §4.D). Small Go-side routines for logic this core judges
// not worth inlining as raw host instructions, the same tradeoff emit_fpu.go
// makes for FSIN/FCOS. Flag state lives in GuestState.SR rather than being
// continuously mirrored into host NZCV across a whole translation unit
// (decodeBranch's own design note), so every guest condition test - Bcc and
// DBcc alike - goes through GuestState.CheckCondition rather than a native
// ARM64 B.cond reading possibly-stale flags.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

// condBranchHelper is the runtime counterpart of decodeBranch's emitted BL:
// it resolves a conditional Bcc by setting GuestState.PC to target when cc
// holds, fallthroughPC otherwise.
func condBranchHelper(g *GuestState, cc uint8, target, fallthroughPC uint32) {
	if g.CheckCondition(cc) {
		g.PC = target
	} else {
		g.PC = fallthroughPC
	}
}

// conditionTestHelper is EmitDBcc's runtime counterpart: it reports whether
// predicate cc currently holds, so the emitted CBNZ can skip the
// decrement-and-branch block exactly when the guest condition is true
// (§4.C, §8 Testable Properties).
func conditionTestHelper(g *GuestState, cc uint8) uint64 {
	if g.CheckCondition(cc) {
		return 1
	}
	return 0
}

// rtsHelper is RTS's runtime counterpart: pop the return address off the
// currently active guest stack (USP/ISP/MSP per (S,M), §3) and hand it back
// as the new guest PC.
func rtsHelper(g *GuestState, mem GuestMemory) uint32 {
	sp := g.activeStack()
	ret := mem.Read32(*sp)
	*sp += 4
	g.syncA7Shadow()
	g.PC = ret
	return ret
}
