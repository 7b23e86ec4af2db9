// guest_memory.go - GuestMemory implementation (§6): flat guest RAM plus
// page-mapped I/O regions for BusDevice callbacks, the pattern the
// teacher's machine bus used for its VGA/audio-chip memory-mapped I/O,
// generalized here to the narrow GuestMemory/BusDevice interfaces this
// core actually needs.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const (
	ioPageSize = 0x100
	ioPageMask = 0xFFFFFF00
)

// ioRegion is one registered memory-mapped device window.
type ioRegion struct {
	start, end uint32
	dev        BusDevice
}

// FlatGuestMemory is a contiguous guest address space with page-keyed I/O
// region lookup, matching the teacher's page-bitmap-then-region-scan
// dispatch shape but addressed through the BusDevice interface (§6) instead
// of per-device callback closures.
type FlatGuestMemory struct {
	mu      sync.RWMutex
	mem     []byte
	mapping map[uint32][]ioRegion

	onWrite func(addr uint32) // hook for self-modifying-code invalidation (§5, §9)
}

// NewFlatGuestMemory allocates size bytes of guest RAM, zeroed.
func NewFlatGuestMemory(size int) *FlatGuestMemory {
	return &FlatGuestMemory{
		mem:     make([]byte, size),
		mapping: make(map[uint32][]ioRegion),
	}
}

// MapDevice registers dev to handle guest accesses in [start, end].
func (m *FlatGuestMemory) MapDevice(start, end uint32, dev BusDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for page := start & ioPageMask; page <= end; page += ioPageSize {
		m.mapping[page] = append(m.mapping[page], ioRegion{start, end, dev})
		if page == 0xFFFFFF00 { // guard against wraparound on the last page
			break
		}
	}
}

// SetWriteHook installs the callback invoked after every Write8/16/32, used
// to drive InvalidateOnWrite for self-modifying code tracking (§5).
func (m *FlatGuestMemory) SetWriteHook(fn func(addr uint32)) { m.onWrite = fn }

func (m *FlatGuestMemory) lookup(addr uint32) BusDevice {
	regions, ok := m.mapping[addr&ioPageMask]
	if !ok {
		return nil
	}
	for _, r := range regions {
		if addr >= r.start && addr <= r.end {
			return r.dev
		}
	}
	return nil
}

func (m *FlatGuestMemory) Read8(addr uint32) uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if dev := m.lookup(addr); dev != nil {
		return uint8(dev.HandleRead(addr))
	}
	return m.mem[addr]
}

func (m *FlatGuestMemory) Write8(addr uint32, v uint8) {
	m.mu.Lock()
	if dev := m.lookup(addr); dev != nil {
		dev.HandleWrite(addr, uint32(v))
	} else {
		m.mem[addr] = v
	}
	m.mu.Unlock()
	m.fireWriteHook(addr)
}

func (m *FlatGuestMemory) Read16(addr uint32) uint16 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if dev := m.lookup(addr); dev != nil {
		return uint16(dev.HandleRead(addr))
	}
	return binary.BigEndian.Uint16(m.mem[addr : addr+2])
}

func (m *FlatGuestMemory) Write16(addr uint32, v uint16) {
	m.mu.Lock()
	if dev := m.lookup(addr); dev != nil {
		dev.HandleWrite(addr, uint32(v))
	} else {
		binary.BigEndian.PutUint16(m.mem[addr:addr+2], v)
	}
	m.mu.Unlock()
	m.fireWriteHook(addr)
}

func (m *FlatGuestMemory) Read32(addr uint32) uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if dev := m.lookup(addr); dev != nil {
		return dev.HandleRead(addr)
	}
	return binary.BigEndian.Uint32(m.mem[addr : addr+4])
}

func (m *FlatGuestMemory) Write32(addr uint32, v uint32) {
	m.mu.Lock()
	if dev := m.lookup(addr); dev != nil {
		dev.HandleWrite(addr, v)
	} else {
		binary.BigEndian.PutUint32(m.mem[addr:addr+4], v)
	}
	m.mu.Unlock()
	m.fireWriteHook(addr)
}

// ReadAlias satisfies GuestMemory's uncached-alias read (§5, §9). This
// implementation has no separate icache to bypass, so it reads straight
// through; a hardware boot layer's high alias window would instead avoid a
// coherent cache lookup entirely.
func (m *FlatGuestMemory) ReadAlias(addr uint32, n int) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, n)
	copy(out, m.mem[addr:addr+uint32(n)])
	return out
}

func (m *FlatGuestMemory) fireWriteHook(addr uint32) {
	if m.onWrite != nil {
		m.onWrite(addr)
	}
}

// Reset zeroes guest RAM, for a warm restart without reallocating.
func (m *FlatGuestMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.mem)
}

var _ GuestMemory = (*FlatGuestMemory)(nil)

// checkBounds is a debug-build guard the core's own tests rely on; accesses
// past the end of guest RAM from a misbehaving translation unit should fail
// loudly rather than corrupt adjacent Go heap memory.
func (m *FlatGuestMemory) checkBounds(addr uint32, width int) error {
	if uint64(addr)+uint64(width) > uint64(len(m.mem)) {
		return fmt.Errorf("guest memory: access %#x+%d out of range (size %#x)", addr, width, len(m.mem))
	}
	return nil
}
