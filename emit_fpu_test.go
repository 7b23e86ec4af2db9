package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupConstantROMPi(t *testing.T) {
	v, ok := LookupConstantROM(0x00)
	require.True(t, ok)
	assert.InDelta(t, math.Pi, v, 0, "FMOVECR #0x00 must load pi bit-equal")
	assert.Equal(t, math.Float64bits(math.Pi), math.Float64bits(v))
}

func TestLookupConstantROMUnknownSlot(t *testing.T) {
	_, ok := LookupConstantROM(0x02)
	require.False(t, ok)
}

func TestLookupConstantROMOutOfRange(t *testing.T) {
	_, ok := LookupConstantROM(200)
	require.False(t, ok)
}

func TestTrigHelperPreservesSignedZero(t *testing.T) {
	g := &GuestState{}

	g.FPRegs[0] = 0.0
	trigHelper(g, trigSin, 0)
	assert.False(t, math.Signbit(g.FPRegs[0]))

	g.FPRegs[0] = math.Copysign(0, -1)
	trigHelper(g, trigSin, 0)
	assert.True(t, math.Signbit(g.FPRegs[0]), "FSIN of -0.0 must preserve the sign")
}

func TestTrigHelperSinPiNearZero(t *testing.T) {
	g := &GuestState{}
	g.FPRegs[0] = math.Pi
	trigHelper(g, trigSin, 0)
	assert.Less(t, math.Abs(g.FPRegs[0]), math.Pow(2, -40))
}

func TestTrigHelperSinHalfPiNearOne(t *testing.T) {
	g := &GuestState{}
	g.FPRegs[0] = math.Pi / 2
	trigHelper(g, trigSin, 0)
	assert.InDelta(t, 1.0, g.FPRegs[0], 1e-9)
}

func TestTrigHelperCosZeroIsOne(t *testing.T) {
	g := &GuestState{}
	g.FPRegs[0] = 0
	trigHelper(g, trigCos, 0)
	assert.Equal(t, 1.0, g.FPRegs[0])
}

func TestEmitFMOVECRRejectsUnknownOffset(t *testing.T) {
	ctx, _ := newTestEmitCtx(t, 0x4000)
	err := EmitFMOVECR(ctx, 0, 0x02)
	require.Error(t, err)
}

func TestEmitFMOVECREmitsLiteralLoad(t *testing.T) {
	ctx, buf := newTestEmitCtx(t, 0x4000)
	err := EmitFMOVECR(ctx, 0, 0x00)
	require.NoError(t, err)
	require.Greater(t, buf.Offset(), 0)
}
