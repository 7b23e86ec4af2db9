// errors.go - Error taxonomy (§7): unrecognized-opcode sentinel handling,
// arena-exhaustion retry, guest exceptions, and the "interrupts are not
// errors" boundary.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"errors"
	"fmt"
)

// GuestException models a synthesized 68000-family exception: a condition
// the translated code or the dispatcher detected that must be delivered to
// the guest via its own vector table, not surfaced as a Go error to the
// caller of Run (§7).
type GuestException struct {
	Vector uint8
	PC     uint32
	Detail string
}

func (e *GuestException) Error() string {
	return fmt.Sprintf("guest exception: vector=%d pc=%#x: %s", e.Vector, e.PC, e.Detail)
}

// NewIllegalInstruction builds the exception raised when a translated unit
// hits its EmitUndefined guard at run time.
func NewIllegalInstruction(pc uint32) *GuestException {
	return &GuestException{Vector: VEC_ILLEGAL_INSTR, PC: pc, Detail: "unrecognized opcode"}
}

// NewZeroDivide, NewPrivilegeViolation, NewAddressError mirror the other
// guest-exception classes §7 names as routine, guest-visible conditions
// rather than translator failures.
func NewZeroDivide(pc uint32) *GuestException {
	return &GuestException{Vector: VEC_ZERO_DIVIDE, PC: pc, Detail: "division by zero"}
}

func NewPrivilegeViolation(pc uint32) *GuestException {
	return &GuestException{Vector: VEC_PRIVILEGE, PC: pc, Detail: "privileged instruction in user mode"}
}

func NewAddressError(pc uint32, addr uint32) *GuestException {
	return &GuestException{Vector: VEC_ADDRESS_ERROR, PC: pc, Detail: fmt.Sprintf("misaligned access at %#x", addr)}
}

// raiseGuestException pushes an exception frame and vectors the guest PC to
// the handler, the runtime counterpart of the BL placeholder EmitUndefined
// emits; the dispatcher also calls it to deliver interrupts. The frame is
// pushed on ISP: PC first, then SR, so SR ends at the new stack pointer and
// PC at sp+2. It never returns a Go error:
// delivering the exception IS the resolution (§7).
func raiseGuestException(g *GuestState, mem GuestMemory, exc *GuestException) {
	wasSupervisor := g.SR&SR_S != 0
	g.swapStacksForMode(true, false)

	sp := g.activeStack()
	*sp -= 4
	mem.Write32(*sp, exc.PC)
	*sp -= 2
	oldSR := g.SR
	if !wasSupervisor {
		oldSR &^= SR_S
	}
	mem.Write16(*sp, oldSR)
	g.syncA7Shadow()

	g.PC = mem.Read32(uint32(g.VBR) + uint32(exc.Vector)*4)
}

// ErrTranslationFailed wraps an emitter error with the guest PC translation
// was attempting to cover, for the dispatcher's retry/flush decision.
type ErrTranslationFailed struct {
	PC  uint32
	Err error
}

func (e *ErrTranslationFailed) Error() string {
	return fmt.Sprintf("translation failed at pc=%#x: %v", e.PC, e.Err)
}

func (e *ErrTranslationFailed) Unwrap() error { return e.Err }

// buildWithRetry runs build once; on arena exhaustion it soft-flushes and
// retries once, then hard-flushes and retries a final time before giving up
// with a fatal condition (§7). Nothing panics: the error is returned here,
// propagates out of Dispatcher.Run, and main prints it and exits with
// status 1, so this is testable without crashing.
func buildWithRetry(cache *TUCache, pc uint32, build func() (TranslationUnit, error)) (*TranslationUnit, error) {
	tu, err := build()
	if err == nil {
		return cache.Insert(tu)
	}
	if !errors.Is(err, ErrArenaExhausted) {
		return nil, &ErrTranslationFailed{PC: pc, Err: err}
	}

	cache.SoftFlush()
	tu, err = build()
	if err == nil {
		return cache.Insert(tu)
	}
	if !errors.Is(err, ErrArenaExhausted) {
		return nil, &ErrTranslationFailed{PC: pc, Err: err}
	}

	cache.HardFlush()
	tu, err = build()
	if err != nil {
		return nil, &ErrTranslationFailed{PC: pc, Err: fmt.Errorf("arena exhausted after hard flush: %w", err)}
	}
	return cache.Insert(tu)
}
