// regalloc.go - Register allocator (§4.B): maps guest registers onto a
// fixed partition of host registers for the lifetime of one translation
// unit, tracks dirtiness, and spills on demand.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import "fmt"

// Host register partition (ARM64 general-purpose registers, §4.B):
//   X19-X26  fixed, one-to-one with guest D0-D7 when resident
//   X9-X15   scratch pool available to emitters between guest-register needs
//   X27      reserved: live pointer to the GuestState base
//   X28      reserved: live pointer to the host-code arena / literal pool
// The FP register partition mirrors this 1:1 over D8-D15 for guest FP0-FP7.
const (
	numGuestGP   = 8
	numGuestFP   = 8
	numScratchGP = 7 // X9..X15
)

// HostReg identifies one physical host register slot.
type HostReg int

// regEntry tracks the residency state of one guest register.
type regEntry struct {
	resident bool
	dirty    bool
	host     HostReg
}

// RegAlloc is built fresh for each translation unit; it never persists
// state across units (residency always starts cold, §4.B).
type RegAlloc struct {
	gp [numGuestGP]regEntry
	fp [numGuestFP]regEntry

	scratchUsed [numScratchGP]bool
	scratchLRU  []int // index into scratchUsed, most-recently-allocated last
}

// NewRegAlloc returns an allocator with every guest register cold.
func NewRegAlloc() *RegAlloc {
	ra := &RegAlloc{}
	for i := range ra.gp {
		ra.gp[i].host = HostReg(19 + i)
	}
	for i := range ra.fp {
		ra.fp[i].host = HostReg(8 + i)
	}
	return ra
}

// MapForRead returns the host register holding guest data register n,
// emitting nothing itself - the caller's emitter is responsible for the
// load-on-first-use sequence when resident reports false.
func (ra *RegAlloc) MapForRead(n int) (host HostReg, alreadyResident bool) {
	e := &ra.gp[n]
	was := e.resident
	e.resident = true
	return e.host, was
}

// MapForWrite is identical to MapForRead but also marks the register dirty,
// since the caller is about to overwrite it.
func (ra *RegAlloc) MapForWrite(n int) (host HostReg, alreadyResident bool) {
	host, was := ra.MapForRead(n)
	ra.gp[n].dirty = true
	return host, was
}

// MapFPForRead/MapFPForWrite mirror the GP variants for the FPU register file.
func (ra *RegAlloc) MapFPForRead(n int) (host HostReg, alreadyResident bool) {
	e := &ra.fp[n]
	was := e.resident
	e.resident = true
	return e.host, was
}

func (ra *RegAlloc) MapFPForWrite(n int) (host HostReg, alreadyResident bool) {
	host, was := ra.MapFPForRead(n)
	ra.fp[n].dirty = true
	return host, was
}

// MarkDirty flags a guest data register as holding a value the unit has not
// yet spilled, for callers that write through raw host-register emission
// rather than MapForWrite.
func (ra *RegAlloc) MarkDirty(n int) { ra.gp[n].dirty = true }

// AllocTemporary claims one scratch host register from the pool (X9-X15),
// evicting the least-recently-allocated entry if the pool is exhausted -
// every translated sequence is short enough that this never starves real
// work, but the fallback keeps emitters from panicking on a pathological
// instruction that needs more temporaries than the pool holds.
func (ra *RegAlloc) AllocTemporary() (HostReg, error) {
	for i := 0; i < numScratchGP; i++ {
		if !ra.scratchUsed[i] {
			ra.scratchUsed[i] = true
			ra.scratchLRU = append(ra.scratchLRU, i)
			return HostReg(9 + i), nil
		}
	}
	if len(ra.scratchLRU) == 0 {
		return 0, fmt.Errorf("regalloc: scratch pool exhausted with nothing to evict")
	}
	victim := ra.scratchLRU[0]
	ra.scratchLRU = ra.scratchLRU[1:]
	ra.scratchLRU = append(ra.scratchLRU, victim)
	return HostReg(9 + victim), nil
}

// FreeTemporary releases a scratch register back to the pool. Calling it
// twice on the same register without an intervening AllocTemporary is a
// caller bug (§9 design note: free exactly once per alloc, never twice) -
// the second call is a silent no-op rather than a crash, since a scratch
// register already free carries no state to corrupt.
func (ra *RegAlloc) FreeTemporary(r HostReg) {
	idx := int(r) - 9
	if idx < 0 || idx >= numScratchGP || !ra.scratchUsed[idx] {
		return
	}
	ra.scratchUsed[idx] = false
	for i, v := range ra.scratchLRU {
		if v == idx {
			ra.scratchLRU = append(ra.scratchLRU[:i], ra.scratchLRU[i+1:]...)
			break
		}
	}
}

// SpillPlan describes one dirty guest register that must be written back to
// GuestState before the unit can exit (branch, trap, or natural fallthrough
// to untranslated code).
type SpillPlan struct {
	IsFP    bool
	GuestNo int
	Host    HostReg
}

// SpillAll returns every dirty resident register, for the emitter that
// builds the unit's exit sequence. It does not clear dirty flags itself -
// the caller does that only once the spill code has actually been emitted.
func (ra *RegAlloc) SpillAll() []SpillPlan {
	var plans []SpillPlan
	for i, e := range ra.gp {
		if e.resident && e.dirty {
			plans = append(plans, SpillPlan{GuestNo: i, Host: e.host})
		}
	}
	for i, e := range ra.fp {
		if e.resident && e.dirty {
			plans = append(plans, SpillPlan{IsFP: true, GuestNo: i, Host: e.host})
		}
	}
	return plans
}

// ClearDirty marks every register in plans as clean, after their spill code
// has been emitted.
func (ra *RegAlloc) ClearDirty(plans []SpillPlan) {
	for _, p := range plans {
		if p.IsFP {
			ra.fp[p.GuestNo].dirty = false
		} else {
			ra.gp[p.GuestNo].dirty = false
		}
	}
}
