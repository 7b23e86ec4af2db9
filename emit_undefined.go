// emit_undefined.go - Guard-word emitter for opcodes the decoder cannot
// recognize (§4.C, §7). Translation always succeeds syntactically: an
// unrecognized word becomes a guest-side illegal-instruction exception
// raised when the fragment actually runs, never a translator-side error.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

// EmitUndefined emits the sentinel sequence for a guest opcode the decoder
// does not recognize at pc. At run time this synthesizes an illegal-
// instruction exception frame through vector VEC_ILLEGAL_INSTR rather than
// trapping the host process.
func EmitUndefined(ctx *EmitCtx, pc uint32) error {
	if err := guardCapacity(ctx, worstCaseDefault); err != nil {
		return err
	}
	// The guard word itself is never executed as a host instruction; it is
	// a marker a disassembly/debug dump recognizes immediately before the
	// real exception-raising sequence below.
	ctx.Buf.Emit32(UndefinedGuardWord)

	emitMovImm64(ctx.Buf, HostReg(0), uint64(pc))
	// STR W0, [X27, #0] - GuestState.PC, so the exception frame records the
	// faulting instruction's address.
	ctx.Buf.Emit32(0xB9000000 | (27 << 5) | 0)
	emitMovImm64(ctx.Buf, HostReg(1), uint64(VEC_ILLEGAL_INSTR))
	// BL #0 placeholder standing for raiseGuestException with the vector in
	// X1; no pass in this core patches it, the same as the FPU trig BL.
	ctx.Buf.Emit32(0x94000000)
	ctx.Buf.Emit32(0xD65F03C0) // RET
	return nil
}
