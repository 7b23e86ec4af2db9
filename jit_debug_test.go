package main

import "testing"

type stubDisassembler struct{ called int }

func (s *stubDisassembler) Disassemble(mem GuestMemory, pc uint32) (string, int) {
	s.called++
	return "nop", 1
}

func TestDumpRegistersDoesNotPanic(t *testing.T) {
	g := NewGuestState(DefaultSupervisorConfig())
	g.PC = 0x1000
	DumpRegisters(g)
}

func TestDumpDisassemblyAdvancesByWordCount(t *testing.T) {
	mem := NewFlatGuestMemory(64)
	dis := &stubDisassembler{}
	next := DumpDisassembly(dis, mem, 0x100)
	if next != 0x100+M68K_WORD_SIZE {
		t.Fatalf("expected pc+word size, got %#x", next)
	}
	if dis.called != 1 {
		t.Fatalf("expected Disassemble to be called once, got %d", dis.called)
	}
}

func TestDumpDisassemblyNilDisassemblerStillAdvances(t *testing.T) {
	mem := NewFlatGuestMemory(64)
	next := DumpDisassembly(nil, mem, 0x200)
	if next != 0x200+M68K_WORD_SIZE {
		t.Fatalf("expected pc+word size, got %#x", next)
	}
}

func TestLogDebugRespectsCtrlDebugFlag(t *testing.T) {
	g := NewGuestState(DefaultSupervisorConfig())
	logDebug(g, "should not print: %d", 1) // CtrlDebug unset, must not panic

	g.ControlFlags |= CtrlDebug
	logDebug(g, "should print: %d", 1)
}
