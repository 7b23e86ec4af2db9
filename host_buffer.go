// host_buffer.go - Append-only cursor over a host-code fragment (§4.A).

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"fmt"
	"runtime"
)

// PendingBranch records a forward branch site that needs patching once its
// target is known. Kept in a side table alongside the cursor rather than
// inline in the instruction stream (§9 Design Notes), so branch fixup
// records never occupy words of the emitted code. (Literal slots from
// ReserveLiteral are the one kind of data written inline.)
type PendingBranch struct {
	Offset int // byte offset of the branch instruction within the fragment
	Kind   BranchKind
}

// BranchKind distinguishes the handful of ARM64 branch encodings the
// emitters produce; each has a different immediate field width and shift.
type BranchKind int

const (
	BranchUnconditional BranchKind = iota // B, 26-bit word-offset immediate
	BranchConditional                     // B.cond, 19-bit word-offset immediate
	BranchCompareZero                     // CBZ/CBNZ, 19-bit word-offset immediate
)

// CodeBuffer is an append-only writer over one translation unit's fragment
// of the host-code arena. All relative offsets are computed at patch time,
// never at emit time (§4.A contract).
type CodeBuffer struct {
	frag     []byte
	cursor   int
	pending  []PendingBranch
	literals map[int]uint64 // byte offset of an 8-byte literal slot -> value
}

// NewCodeBuffer wraps a freshly-allocated arena fragment for emission.
func NewCodeBuffer(fragment []byte) *CodeBuffer {
	return &CodeBuffer{frag: fragment, literals: make(map[int]uint64)}
}

// Remaining reports the unused capacity, for the "emitters must query
// capacity before starting" contract.
func (b *CodeBuffer) Remaining() int { return len(b.frag) - b.cursor }

// EnsureCapacity fails if the remaining fragment capacity cannot hold a
// worst-case expansion of the next emitted group.
func (b *CodeBuffer) EnsureCapacity(worstCase int) error {
	if b.Remaining() < worstCase {
		return fmt.Errorf("host buffer: need %d bytes, have %d: %w", worstCase, b.Remaining(), ErrArenaExhausted)
	}
	return nil
}

// Emit32 appends one native instruction word (ARM64 instructions are
// uniformly 4 bytes).
func (b *CodeBuffer) Emit32(word uint32) {
	binary.LittleEndian.PutUint32(b.frag[b.cursor:], word)
	b.cursor += 4
}

// Offset returns the current cursor position, for recording branch or
// literal-pool sites.
func (b *CodeBuffer) Offset() int { return b.cursor }

// MarkBranch records a pending branch at the current cursor and emits seed
// as the placeholder word. For BranchConditional/BranchCompareZero, seed
// must already carry the opcode base and condition/register bits (e.g.
// 0x54000000|cond for B.cond) since PatchBranch only ever rewrites the
// imm19 field, never the opcode; BranchUnconditional's seed is irrelevant
// since PatchBranch recomputes that word from scratch.
func (b *CodeBuffer) MarkBranch(kind BranchKind, seed uint32) *PendingBranch {
	pb := PendingBranch{Offset: b.cursor, Kind: kind}
	b.pending = append(b.pending, pb)
	b.Emit32(seed) // patched later
	return &b.pending[len(b.pending)-1]
}

// ReserveLiteral writes a 64-bit immediate into an 8-byte slot inline at
// the cursor, for an adjacent emitted load to read PC-relative, and returns
// the slot's offset. The value is also recorded in b.literals; no trailing
// literal pool is built from it, and the caller keeps execution from
// running into the slot.
func (b *CodeBuffer) ReserveLiteral(value uint64) int {
	off := b.cursor
	binary.LittleEndian.PutUint64(b.frag[off:], value)
	b.cursor += 8
	b.literals[off] = value
	return off
}

// PatchBranch resolves one pending branch to targetOffset (a byte offset
// within the same fragment).
func (b *CodeBuffer) PatchBranch(pb *PendingBranch, targetOffset int) error {
	delta := targetOffset - pb.Offset
	if delta%4 != 0 {
		return fmt.Errorf("host buffer: branch target not word-aligned: delta=%d", delta)
	}
	wordDelta := int32(delta / 4)

	var word uint32
	switch pb.Kind {
	case BranchUnconditional:
		if wordDelta < -(1<<25) || wordDelta >= (1<<25) {
			return fmt.Errorf("host buffer: unconditional branch out of range: %d words", wordDelta)
		}
		word = (0b000101 << 26) | (uint32(wordDelta) & 0x03FFFFFF)
	case BranchConditional, BranchCompareZero:
		if wordDelta < -(1<<18) || wordDelta >= (1<<18) {
			return fmt.Errorf("host buffer: conditional branch out of range: %d words", wordDelta)
		}
		// The condition/register bits were already baked into the low bits
		// of the placeholder word by the emitter; only the imm19 field (bits
		// 23:5) is rewritten here.
		existing := binary.LittleEndian.Uint32(b.frag[pb.Offset:])
		word = (existing &^ (0x7FFFF << 5)) | ((uint32(wordDelta) & 0x7FFFF) << 5)
	}
	binary.LittleEndian.PutUint32(b.frag[pb.Offset:], word)
	return nil
}

// Finalize closes emission for the fragment and must run before the
// fragment is ever entered or a pointer to it published (§4.A contract).
// It issues no data- or instruction-cache maintenance itself (see
// syncInstructionCache).
func (b *CodeBuffer) Finalize() error {
	written := b.frag[:b.cursor]
	if len(written) == 0 {
		return nil
	}
	if err := syncInstructionCache(written); err != nil {
		return fmt.Errorf("host buffer: icache sync: %w", err)
	}
	return nil
}

// Bytes returns the finalized slice of the fragment actually used.
func (b *CodeBuffer) Bytes() []byte { return b.frag[:b.cursor] }

// syncInstructionCache performs no cache maintenance: runtime.KeepAlive
// only keeps the code slice reachable up to this call. The DC CVAU /
// IC IVAU / ISB sequence for the written range is not issued by this core;
// the bare-metal boot layer (out of scope, §1) owns it.
func syncInstructionCache(code []byte) error {
	runtime.KeepAlive(code)
	return nil
}
