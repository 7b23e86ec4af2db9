// dispatcher.go - Execution dispatcher (§4.E): the steady-state loop that
// reads the guest PC, checks for a pending interrupt, looks up or builds a
// translation unit, and enters it.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"fmt"
)

// Decoder translates one guest instruction starting at pc into ctx,
// returning the guest PC of the next sequential instruction and whether
// translation of the current unit should stop here (a branch, trap, or
// unit-size limit).
type Decoder interface {
	DecodeOne(ctx *EmitCtx, mem GuestMemory, pc uint32) (nextPC uint32, stopUnit bool, err error)
}

// Dispatcher ties the guest state, memory, cache and arena together into
// the run loop described by §4.E.
type Dispatcher struct {
	State   *GuestState
	Mem     GuestMemory
	Cache   *TUCache
	Arena   HostArena
	Decoder Decoder
	Index   *ReverseIndex
	Svc     *ServiceThreads
	Disasm  Disassembler

	maxUnitInstrs int
}

// NewDispatcher wires one dispatcher from its collaborators; maxUnitInstrs
// bounds how many guest instructions a single translation unit covers
// before the decoder is forced to stop (keeps worst-case build latency and
// fragment size bounded, per §4.D).
func NewDispatcher(state *GuestState, mem GuestMemory, cache *TUCache, arena HostArena, dec Decoder) *Dispatcher {
	return &Dispatcher{
		State:         state,
		Mem:           mem,
		Cache:         cache,
		Arena:         arena,
		Decoder:       dec,
		Index:         NewReverseIndex(),
		maxUnitInstrs: 256,
	}
}

// Run executes the guest until its PC reaches HaltSentinelPC or ctx is
// cancelled (§4.E steady-state loop).
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.State.PC == HaltSentinelPC {
			return nil
		}

		if level := d.acceptedInterruptLevel(); level != 0 {
			d.deliverInterrupt(level)
			continue
		}

		if err := d.stepOnce(); err != nil {
			return err
		}
	}
}

// acceptedInterruptLevel returns the highest pending IRQ level strictly
// greater than the current IPM, or 0 if none is accepted (§3, §4.E): bit 5
// raised with IPM=3 vectors; bit 2 raised with IPM=3 does not, until IPM
// drops below 2 (§8 Testable Properties).
func (d *Dispatcher) acceptedInterruptLevel() uint8 {
	pint := d.State.PINT.Load()
	ipm := uint8((d.State.SR & SR_IPM) >> SR_SHIFT)
	for level := uint8(7); level >= 1; level-- {
		if pint&(1<<level) == 0 {
			continue
		}
		if level == 7 || level > ipm {
			return level
		}
	}
	return 0
}

// deliverInterrupt synthesizes an exception frame for the accepted level
// and raises the guest's interrupt priority mask to that level (§4.E) -
// this is routine guest-visible control flow, never a Go error (§7).
func (d *Dispatcher) deliverInterrupt(level uint8) {
	vec := interruptVector(level)
	raiseGuestException(d.State, d.Mem, &GuestException{Vector: vec, PC: d.State.PC, Detail: "interrupt"})

	d.State.PINT.And(^uint32(1 << level))
	d.State.SR = (d.State.SR &^ SR_IPM) | (uint16(level) << SR_SHIFT)
}

// stepOnce performs one cache-lookup-or-build-then-enter cycle (§4.E steps
// 3-5). When pc equals the last-entered PC the unit is still looked up with
// Cache.Find (which counts the hit); no unit is re-entered without a
// lookup, and CACR is not consulted.
func (d *Dispatcher) stepOnce() error {
	pc := d.State.PC

	if pc == d.State.lastEnteredPC {
		u := d.Cache.Find(pc)
		if u != nil {
			return d.enter(u)
		}
	}

	if u := d.Cache.Find(pc); u != nil {
		return d.enter(u)
	}

	u, err := d.build(pc)
	if err != nil {
		return err
	}
	return d.enter(u)
}

// build translates guest code starting at pc into a new fragment (§4.C,
// §4.D), retrying through soft- then hard-flush on arena exhaustion (§7).
func (d *Dispatcher) build(pc uint32) (*TranslationUnit, error) {
	tu, err := buildWithRetry(d.Cache, pc, func() (TranslationUnit, error) {
		return d.translateUnit(pc)
	})
	if err != nil {
		return nil, err
	}
	d.Index.Record(tu.GuestPC, tu.SourceLen)
	return tu, nil
}

// translateUnit runs the decoder over consecutive guest instructions
// starting at pc until it signals stopUnit or the instruction budget is
// reached, emitting host code into a freshly allocated fragment.
func (d *Dispatcher) translateUnit(pc uint32) (TranslationUnit, error) {
	frag, err := d.Arena.Alloc(4096)
	if err != nil {
		return TranslationUnit{}, err
	}
	buf := NewCodeBuffer(frag)
	regs := NewRegAlloc()

	start := pc
	cur := pc
	for i := 0; i < d.maxUnitInstrs; i++ {
		ctx := &EmitCtx{Buf: buf, Regs: regs, GuestPC: cur}
		next, stop, err := d.Decoder.DecodeOne(ctx, d.Mem, cur)
		if err != nil {
			d.Arena.Free(frag)
			return TranslationUnit{}, fmt.Errorf("dispatcher: decode at pc=%#x: %w", cur, err)
		}
		cur = next
		if stop {
			break
		}
	}

	if err := buf.Finalize(); err != nil {
		d.Arena.Free(frag)
		return TranslationUnit{}, err
	}
	// Return the unused tail of the fragment now, so that evicting the unit
	// (which frees Code, the used prefix) releases the whole allocation.
	d.Arena.Free(frag[buf.Offset():])

	src := d.Mem.ReadAlias(start, int(cur-start))
	return TranslationUnit{
		GuestPC:     start,
		Code:        buf.Bytes(),
		SourceLen:   cur - start,
		Fingerprint: fingerprint(src),
	}, nil
}

// enter verifies the unit is still consistent with guest memory, rebuilding
// it on a mismatch, then hands control to it. Entering a host fragment
// itself is the one piece of this dispatcher that reaches outside Go (an
// architecture-specific trampoline call, out of scope for this core, §1);
// EnterFragment is the narrow hook a full system supplies.
func (d *Dispatcher) enter(u *TranslationUnit) error {
	src := d.Mem.ReadAlias(u.GuestPC, int(u.SourceLen))
	if !d.Cache.Verify(u, src) {
		idx := d.Cache.indexOf(u)
		if idx >= 0 {
			d.Index.Forget(u.GuestPC, u.SourceLen)
			d.Cache.evict(idx)
		}
		rebuilt, err := d.build(u.GuestPC)
		if err != nil {
			return err
		}
		u = rebuilt
	}

	if d.State.ControlFlags&CtrlDebug != 0 {
		logDebug(d.State, "enter pc=%08X uses=%d", u.GuestPC, u.UseCount)
		DumpRegisters(d.State)
	}
	if d.State.ControlFlags&CtrlDisassemble != 0 && d.Disasm != nil {
		DumpDisassembly(d.Disasm, d.Mem, u.GuestPC)
	}

	d.State.lastEnteredPC = u.GuestPC
	return EnterFragment(d.State, u.Code)
}

// EnterFragment transfers control to finalized host code at fragment,
// returning when the fragment exits back to the dispatcher (via the RET
// sequence every emitter's exit path ends with). The real implementation is
// an assembly trampoline that loads X27/X28 with GuestState/arena base
// pointers and branches into fragment; left as a seam here since calling
// convention glue is architecture-specific host assembly, out of scope (§1).
var EnterFragment = func(g *GuestState, fragment []byte) error {
	return nil
}
