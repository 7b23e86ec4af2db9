// host_arena.go - The executable host-code arena (§3, §4.A).
//
// The real system hands fragment allocation to an external TLSF allocator
// (out of scope, §1); HostArena is the narrow interface the translator
// consumes from it, with a concrete mmap-backed implementation for hosts
// that run this core directly (tests, standalone tooling) rather than under
// the bare-metal boot path.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// HostArena allocates and frees fragments of executable memory. Single-
// writer: only the translator allocates; service threads never call it (§5).
type HostArena interface {
	Alloc(size int) (fragment []byte, err error)
	Free(fragment []byte)
	TotalSize() uint64
	FreeBytes() uint64
}

// ErrArenaExhausted is returned by Alloc when no fragment of the requested
// size is available (§7).
var ErrArenaExhausted = fmt.Errorf("host arena: exhausted")

// mmapArena is a simple bump/free-list allocator over one mmap'd
// PROT_READ|PROT_WRITE|PROT_EXEC region. It is not meant to be clever -
// the spec treats the real allocator as an external collaborator - only
// correct and safe for concurrent Free calls from cache eviction.
type mmapArena struct {
	mu    sync.Mutex
	base  []byte
	total uint64
	free  []region // free-list, sorted and coalesced on Free
}

type region struct {
	off, size int
}

// NewMmapArena reserves size bytes of RWX memory for the translation unit
// cache to carve fragments from.
func NewMmapArena(size int) (HostArena, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("host arena: mmap %d bytes: %w", size, err)
	}
	return &mmapArena{
		base:  buf,
		total: uint64(size),
		free:  []region{{0, size}},
	}, nil
}

func (a *mmapArena) Alloc(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, r := range a.free {
		if r.size < size {
			continue
		}
		frag := a.base[r.off : r.off+size]
		if r.size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = region{r.off + size, r.size - size}
		}
		return frag, nil
	}
	return nil, ErrArenaExhausted
}

func (a *mmapArena) Free(fragment []byte) {
	if len(fragment) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	off := fragmentOffset(a.base, fragment)
	a.free = append(a.free, region{off, len(fragment)})
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].off < a.free[j].off })
	a.free = coalesceRegions(a.free)
}

func (a *mmapArena) TotalSize() uint64 { return a.total }

func (a *mmapArena) FreeBytes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n uint64
	for _, r := range a.free {
		n += uint64(r.size)
	}
	return n
}

func fragmentOffset(base, fragment []byte) int {
	baseAddr := uintptr(unsafe.Pointer(&base[0]))
	fragAddr := uintptr(unsafe.Pointer(&fragment[0]))
	return int(fragAddr - baseAddr)
}

// coalesceRegions merges adjacent free regions so large allocations remain
// possible after a run of small evictions; a simple O(n^2) pass is fine at
// the cache's bucket-bounded scale.
func coalesceRegions(regions []region) []region {
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if regions[i].off+regions[i].size == regions[j].off {
				regions[i].size += regions[j].size
				regions = append(regions[:j], regions[j+1:]...)
				j = i
			}
		}
	}
	return regions
}
