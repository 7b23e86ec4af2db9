// jit_debug.go - Ambient debug/disassemble logging (§6, §10): plain
// register dumps and decoded-mnemonic printing, not a debugger protocol
// (breakpoints/watchpoints are an explicit non-goal).

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import "fmt"

// DumpRegisters prints the guest register file to stdout, in the shape the
// teacher's own debug register dump used, for the `debug` option (§6).
func DumpRegisters(g *GuestState) {
	fmt.Printf("PC=%08X SR=%04X\n", g.PC, g.SR)
	for i := 0; i < 8; i++ {
		fmt.Printf("D%d=%08X  A%d=%08X\n", i, g.DataRegs[i], i, g.AddrRegs[i])
	}
	fmt.Printf("USP=%08X ISP=%08X MSP=%08X VBR=%08X\n", g.USP, g.ISP, g.MSP, g.VBR)
}

// DumpDisassembly prints one decoded instruction's mnemonic for the
// `disassemble` option (§6), when a Disassembler is attached.
func DumpDisassembly(dis Disassembler, mem GuestMemory, pc uint32) uint32 {
	if dis == nil {
		return pc + M68K_WORD_SIZE
	}
	mnemonic, words := dis.Disassemble(mem, pc)
	fmt.Printf("%08X: %s\n", pc, mnemonic)
	return pc + uint32(words)*M68K_WORD_SIZE
}

// logDebug prints a debug line only when the guest state's CtrlDebug flag
// is set, so hot-path callers can call it unconditionally without an
// explicit branch at every call site.
func logDebug(g *GuestState, format string, args ...any) {
	if g.ControlFlags&CtrlDebug == 0 {
		return
	}
	fmt.Printf(format+"\n", args...)
}
