package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatGuestMemoryReadWriteRoundTrip(t *testing.T) {
	mem := NewFlatGuestMemory(1024)
	mem.Write32(0x100, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), mem.Read32(0x100))
	require.Equal(t, uint16(0xDEAD), mem.Read16(0x100), "big-endian: high halfword first")
	require.Equal(t, uint8(0xDE), mem.Read8(0x100))
}

func TestFlatGuestMemoryResetZeroesRAM(t *testing.T) {
	mem := NewFlatGuestMemory(64)
	mem.Write32(0, 0x11223344)
	mem.Reset()
	require.Equal(t, uint32(0), mem.Read32(0))
}

type recordingDevice struct {
	reads, writes []uint32
	writeVal      uint32
}

func (d *recordingDevice) HandleRead(addr uint32) uint32 {
	d.reads = append(d.reads, addr)
	return 0x42
}

func (d *recordingDevice) HandleWrite(addr uint32, v uint32) {
	d.writes = append(d.writes, addr)
	d.writeVal = v
}

func TestFlatGuestMemoryMapDeviceRoutesAccess(t *testing.T) {
	mem := NewFlatGuestMemory(0x10000)
	dev := &recordingDevice{}
	mem.MapDevice(0x9000, 0x90FF, dev)

	require.Equal(t, uint32(0x42), mem.Read32(0x9000))
	require.Equal(t, []uint32{0x9000}, dev.reads)

	mem.Write32(0x9004, 7)
	require.Equal(t, []uint32{0x9004}, dev.writes)
	require.Equal(t, uint32(7), dev.writeVal)

	// An address on another page, outside the registered window, falls
	// straight through to RAM.
	mem.Write8(0x9200, 9)
	require.Equal(t, uint8(9), mem.Read8(0x9200))
}

func TestFlatGuestMemoryWriteHookFiresOnEveryWidth(t *testing.T) {
	mem := NewFlatGuestMemory(4096)
	var seen []uint32
	mem.SetWriteHook(func(addr uint32) { seen = append(seen, addr) })

	mem.Write8(0x10, 1)
	mem.Write16(0x20, 2)
	mem.Write32(0x30, 3)

	require.Equal(t, []uint32{0x10, 0x20, 0x30}, seen)
}

func TestFlatGuestMemoryReadAliasCopiesBytes(t *testing.T) {
	mem := NewFlatGuestMemory(64)
	mem.Write32(0, 0xCAFEBABE)
	out := mem.ReadAlias(0, 4)
	require.Len(t, out, 4)
	require.Equal(t, byte(0xCA), out[0])

	// Mutating the returned slice must not alias guest RAM.
	out[0] = 0
	require.Equal(t, uint32(0xCAFEBABE), mem.Read32(0))
}

func TestFlatGuestMemoryCheckBounds(t *testing.T) {
	mem := NewFlatGuestMemory(16)
	require.NoError(t, mem.checkBounds(12, 4))
	require.Error(t, mem.checkBounds(13, 4))
	require.Error(t, mem.checkBounds(16, 1))
}
