package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootContract(t *testing.T) {
	mem := NewFlatGuestMemory(1024)
	mem.Write32(0, 0x0000ABCD) // initial SP
	mem.Write32(4, 0x00001000) // initial PC

	g := NewGuestState(DefaultSupervisorConfig())
	g.Boot(mem)

	assert.Equal(t, uint32(0x0000ABCD), g.ISP)
	assert.Equal(t, uint32(0x00001000), g.PC)
	assert.Equal(t, uint32(0x0000ABCD), g.AddrRegs[7])
	assert.NotZero(t, g.SR&SR_S)
	assert.Equal(t, uint16(7), (g.SR&SR_IPM)>>SR_SHIFT)
}

func TestActiveStackSelection(t *testing.T) {
	g := NewGuestState(DefaultSupervisorConfig())
	g.USP = 1
	g.ISP = 2
	g.MSP = 3

	g.SR &^= SR_S
	require.Equal(t, &g.USP, g.activeStack())

	g.SR |= SR_S
	g.SR &^= SR_M
	require.Equal(t, &g.ISP, g.activeStack())

	g.SR |= SR_M
	require.Equal(t, &g.MSP, g.activeStack())
}

func TestSwapStacksForModeSyncsA7Shadow(t *testing.T) {
	g := NewGuestState(DefaultSupervisorConfig())
	g.USP = 0x100
	g.ISP = 0x200
	g.MSP = 0x300
	g.SR &^= SR_S
	g.syncA7Shadow()
	require.Equal(t, uint32(0x100), g.AddrRegs[7])

	g.AddrRegs[7] = 0x999 // simulate generated code having written A7
	g.swapStacksForMode(true, true)

	assert.Equal(t, uint32(0x999), g.USP, "commit must land in the stack being LEFT")
	assert.Equal(t, uint32(0x300), g.AddrRegs[7], "shadow must now reflect MSP")
	assert.NotZero(t, g.SR&SR_S)
	assert.NotZero(t, g.SR&SR_M)
}

func TestCheckConditionTable(t *testing.T) {
	cases := []struct {
		name   string
		n, z, v, c bool
		cc     uint8
		want   bool
	}{
		{"T always true", false, false, false, false, CC_T, true},
		{"F always false", true, true, true, true, CC_F, false},
		{"EQ when Z set", false, true, false, false, CC_EQ, true},
		{"NE when Z clear", false, false, false, false, CC_NE, true},
		{"GT needs Z clear and N==V", false, false, false, false, CC_GT, true},
		{"GT fails when Z set", false, true, false, false, CC_GT, false},
		{"LE when Z set", false, true, false, false, CC_LE, true},
		{"LT when N!=V", true, false, false, false, CC_LT, true},
		{"GE when N==V both false", false, false, false, false, CC_GE, true},
		{"HI needs C and Z both clear", false, false, false, false, CC_HI, true},
		{"LS when C set", false, false, false, true, CC_LS, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGuestState(DefaultSupervisorConfig())
			if tc.n {
				g.SR |= SR_N
			}
			if tc.z {
				g.SR |= SR_Z
			}
			if tc.v {
				g.SR |= SR_V
			}
			if tc.c {
				g.SR |= SR_C
			}
			assert.Equal(t, tc.want, g.CheckCondition(tc.cc))
		})
	}
}
