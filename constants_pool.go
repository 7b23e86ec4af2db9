// constants_pool.go - The 128-slot FMOVECR constant ROM (§3, §6).
//
// The 68881 exposes a fixed table of extended-precision constants selected
// by a 7-bit ROM offset in the FMOVECR instruction. Only float64 precision
// is preserved (§3); slots beyond the double range saturate to +Inf rather
// than silently truncating.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import "math"

// fmoveCRTable holds every offset the core recognizes; unused slots default
// to 0 and are rejected by LookupConstantROM rather than silently read.
var fmoveCRTable = buildConstantROM()

func buildConstantROM() [128]float64 {
	var t [128]float64

	// 0x00, 0x0B-0x0E: standard math constants. 0x01-0x0A are reserved/unused
	// in the real ROM and stay unrecognized (LookupConstantROM rejects them).
	t[0x00] = math.Pi
	t[0x0B] = math.Log10(2)
	t[0x0C] = math.E
	t[0x0D] = math.Log2(math.E)
	t[0x0E] = math.Log10(math.E)
	t[0x30] = math.Ln2
	t[0x31] = math.Log(10)

	// 0x10-0x17: sine polynomial coefficients (minimax approximation used
	// by the FSIN emitter's range-reduced argument).
	sineCoeffs := [8]float64{
		1.0,
		-1.0 / 6,
		1.0 / 120,
		-1.0 / 5040,
		1.0 / 362880,
		-1.0 / 39916800,
		1.0 / 6227020800,
		-1.0 / 1307674368000,
	}
	for i, c := range sineCoeffs {
		t[0x10+i] = c
	}

	// 0x20-0x28: cosine polynomial coefficients.
	cosCoeffs := [9]float64{
		1.0,
		-1.0 / 2,
		1.0 / 24,
		-1.0 / 720,
		1.0 / 40320,
		-1.0 / 3628800,
		1.0 / 479001600,
		-1.0 / 87178291200,
		1.0 / 20922789888000,
	}
	for i, c := range cosCoeffs {
		t[0x20+i] = c
	}

	// 0x1A-0x1E / 0x2A-0x2E: reduced-range sine/cosine coefficients used
	// when the argument has already been brought into [-pi/4, pi/4] by the
	// FSIN/FCOS emitter's quadrant dispatch, trading a couple of terms for
	// the tighter input range.
	reducedSine := [5]float64{1.0, -1.0 / 6, 1.0 / 120, -1.0 / 5040, 1.0 / 362880}
	for i, c := range reducedSine {
		t[0x1A+i] = c
	}
	reducedCos := [5]float64{1.0, -1.0 / 2, 1.0 / 24, -1.0 / 720, 1.0 / 40320}
	for i, c := range reducedCos {
		t[0x2A+i] = c
	}

	// 0x32-0x3F: the 68881's doubling-exponent powers-of-ten sequence (10^0,
	// 10^1, 10^2, then the exponent doubles through 10^4096), saturating to
	// +Inf once the exponent would overflow a float64 (real extended-
	// precision hardware keeps going to 10^4932; this core has no extended
	// type to hold that, §3, §6).
	powerOfTenExponents := [14]float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096}
	for i, exp := range powerOfTenExponents {
		v := math.Pow(10, exp)
		if math.IsInf(v, 1) {
			v = math.Inf(1)
		}
		t[0x32+i] = v
	}

	return t
}

// LookupConstantROM returns the float64 bit-pattern for ROM offset idx, and
// whether the core recognizes that offset at all.
func LookupConstantROM(idx uint8) (float64, bool) {
	if idx >= 128 {
		return 0, false
	}
	switch {
	case idx == 0x00, idx >= 0x0B && idx <= 0x0E, idx == 0x30, idx == 0x31:
	case idx >= 0x10 && idx <= 0x17:
	case idx >= 0x1A && idx <= 0x1E:
	case idx >= 0x20 && idx <= 0x28:
	case idx >= 0x2A && idx <= 0x2E:
	case idx >= 0x32 && idx <= 0x3F:
	default:
		return 0, false
	}
	return fmoveCRTable[idx], true
}
