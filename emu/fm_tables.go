package emu

import "math"

// sineTable is a quarter-sine log table: 256 entries of -log2(sin((2i+1)/512 * pi/2))
// in 4.8 fixed-point (12-bit values). Used for operator output computation.
var sineTable [256]uint16

// pow2Table is a power-of-2 table: 256 entries of 2^(1-(i+1)/256) scaled to 11-bit.
// Used to convert log-domain attenuation back to linear amplitude.
var pow2Table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		angle := float64(2*i+1) / 512.0 * math.Pi / 2.0
		logVal := -math.Log2(math.Sin(angle)) * 256.0
		sineTable[i] = uint16(math.Round(logVal))
	}

	for i := 0; i < 256; i++ {
		val := math.Pow(2.0, 1.0-float64(i+1)/256.0) * 1024.0
		pow2Table[i] = uint16(math.Round(val))
	}
}

// attenuationToLinear converts a 4.8 fixed-point log attenuation to a
// 13-bit linear magnitude. Attenuations of 13 or more whole steps shift the
// table value out completely and yield 0.
func attenuationToLinear(atten uint32) uint32 {
	linear := uint32(pow2Table[atten&0xFF]) << 2
	return linear >> (atten >> 8)
}

// computeOperatorOutput computes the signed 14-bit output of an operator
// given its phase (with modulation) and envelope attenuation.
func computeOperatorOutput(phase uint32, egLevel uint16) int16 {
	// Top 10 bits of the 20-bit phase index the sine
	phaseIdx := (phase >> 10) & 0x3FF

	sign := phaseIdx & 0x200
	mirror := phaseIdx & 0x100
	idx := phaseIdx & 0xFF
	if mirror != 0 {
		idx = 0xFF - idx
	}

	// Total attenuation = sine_atten + (envelope_atten << 2)
	totalAtten := uint32(sineTable[idx]) + (uint32(egLevel) << 2)
	linear := attenuationToLinear(totalAtten)

	if sign != 0 {
		return -int16(linear)
	}
	return int16(linear)
}

// detuneTable is a 32x4 table of phase increment deltas indexed by [keyCode][DT&3].
// Column 0 = DT value 0 (no detune), columns 1-3 = increasing detune.
// DT bit 2 controls sign (0 = add, 1 = subtract). Shared by OPN and OPM.
var detuneTable = [32][4]uint32{
	{0, 0, 1, 2},   // KC 0
	{0, 0, 1, 2},   // KC 1
	{0, 0, 1, 2},   // KC 2
	{0, 0, 1, 2},   // KC 3
	{0, 1, 2, 2},   // KC 4
	{0, 1, 2, 3},   // KC 5
	{0, 1, 2, 3},   // KC 6
	{0, 1, 2, 3},   // KC 7
	{0, 1, 2, 4},   // KC 8
	{0, 1, 3, 4},   // KC 9
	{0, 1, 3, 4},   // KC 10
	{0, 1, 3, 5},   // KC 11
	{0, 2, 4, 5},   // KC 12
	{0, 2, 4, 6},   // KC 13
	{0, 2, 4, 6},   // KC 14
	{0, 2, 5, 7},   // KC 15
	{0, 2, 5, 8},   // KC 16
	{0, 3, 6, 8},   // KC 17
	{0, 3, 6, 9},   // KC 18
	{0, 3, 7, 10},  // KC 19
	{0, 4, 8, 11},  // KC 20
	{0, 4, 8, 12},  // KC 21
	{0, 4, 9, 13},  // KC 22
	{0, 5, 10, 14}, // KC 23
	{0, 5, 11, 16}, // KC 24
	{0, 6, 12, 17}, // KC 25
	{0, 6, 13, 19}, // KC 26
	{0, 7, 14, 20}, // KC 27
	{0, 8, 16, 22}, // KC 28
	{0, 8, 16, 22}, // KC 29
	{0, 8, 16, 22}, // KC 30
	{0, 8, 16, 22}, // KC 31
}

// egIncrementTable defines the attenuation increment patterns for rates 4-47.
// For rates 4-47, the shift value (11 - rate>>2) controls how often updates
// occur, and rate&3 selects one of 4 base patterns that control how much to
// increment each update. Row 0 is unused (frozen rates return early).
var egIncrementTable = [5][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 1, 0, 1, 0, 1, 0, 1}, // rate&3 == 0 (avg 4/8)
	{0, 1, 0, 1, 1, 1, 0, 1}, // rate&3 == 1 (avg 5/8)
	{0, 1, 1, 1, 0, 1, 1, 1}, // rate&3 == 2 (avg 6/8)
	{0, 1, 1, 1, 1, 1, 1, 1}, // rate&3 == 3 (avg 7/8)
}

// egHighRateTable defines per-rate increment patterns for rates 48-63.
// Rates >= 48 update on every EG tick and each rate has its own pattern.
var egHighRateTable = [16][8]uint8{
	{1, 1, 1, 1, 1, 1, 1, 1}, // rate 48
	{1, 1, 1, 2, 1, 1, 1, 2}, // rate 49
	{1, 2, 1, 2, 1, 2, 1, 2}, // rate 50
	{1, 2, 2, 2, 1, 2, 2, 2}, // rate 51
	{2, 2, 2, 2, 2, 2, 2, 2}, // rate 52
	{2, 2, 2, 4, 2, 2, 2, 4}, // rate 53
	{2, 4, 2, 4, 2, 4, 2, 4}, // rate 54
	{2, 4, 4, 4, 2, 4, 4, 4}, // rate 55
	{4, 4, 4, 4, 4, 4, 4, 4}, // rate 56
	{4, 4, 4, 8, 4, 4, 4, 8}, // rate 57
	{4, 8, 4, 8, 4, 8, 4, 8}, // rate 58
	{4, 8, 8, 8, 4, 8, 8, 8}, // rate 59
	{8, 8, 8, 8, 8, 8, 8, 8}, // rate 60
	{8, 8, 8, 8, 8, 8, 8, 8}, // rate 61
	{8, 8, 8, 8, 8, 8, 8, 8}, // rate 62
	{8, 8, 8, 8, 8, 8, 8, 8}, // rate 63
}

// egIncrement returns the attenuation step for an effective rate (0-63) at
// the given global EG counter value, or 0 when this tick does not update.
func egIncrement(rate uint8, counter uint16) uint8 {
	if rate == 0 {
		return 0
	}
	if rate >= 48 {
		return egHighRateTable[rate-48][counter&7]
	}
	// Rates below 48: the group sets how often an update happens and
	// rate&3 picks the increment pattern within the group.
	shift := uint(11 - int(rate>>2))
	if shift > 0 && (counter&((1<<shift)-1)) != 0 {
		return 0
	}
	return egIncrementTable[(rate&3)+1][(counter>>shift)&7]
}
