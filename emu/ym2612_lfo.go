package emu

// opnLFOPeriods maps the 3-bit LFO frequency setting to the number of
// samples between LFO steps.
var opnLFOPeriods = [8]uint16{108, 77, 71, 67, 62, 44, 8, 5}

// opnAMShift maps AMS to a right shift of the 7-bit AM triangle.
// AMS 0 disables AM; 1, 2 and 3 give 1.4dB, 5.9dB and 11.8dB.
var opnAMShift = [4]uint8{8, 3, 1, 0}

// opnPMTable is the PM increment per FMS and quarter-wave step for
// F-number bit 10. Lower F-number bits contribute proportionally less.
var opnPMTable = [8][8]int32{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 4, 4, 4, 4},
	{0, 0, 0, 4, 4, 4, 8, 8},
	{0, 0, 4, 4, 8, 8, 12, 12},
	{0, 0, 4, 8, 8, 8, 12, 16},
	{0, 0, 8, 12, 16, 16, 20, 24},
	{0, 0, 16, 24, 32, 32, 40, 48},
	{0, 0, 32, 48, 64, 64, 80, 96},
}

// stepLFO advances the 128-step LFO and updates the AM triangle output.
func (y *ym2612) stepLFO() {
	if !y.lfoEnable {
		y.lfoAMOut = 0
		return
	}
	y.lfoCnt++
	if y.lfoCnt >= opnLFOPeriods[y.lfoFreq] {
		y.lfoCnt = 0
		y.lfoStep = (y.lfoStep + 1) & 0x7F
	}

	// Steps 0-63 fall from 126 to 0, steps 64-127 rise back to 126.
	if y.lfoStep < 64 {
		y.lfoAMOut = (63 - y.lfoStep) * 2
	} else {
		y.lfoAMOut = (y.lfoStep - 64) * 2
	}
}

// amAttenuation returns the AM attenuation for a channel's AMS setting.
func (y *ym2612) amAttenuation(ams uint8) uint16 {
	shift := opnAMShift[ams&0x03]
	if shift >= 8 {
		return 0
	}
	return uint16(y.lfoAMOut) >> shift
}

// opnPMDelta computes the signed F-number delta (in 12-bit precision) that
// PM adds at LFO position step. The delta scales with F-number bits 4-10,
// so higher notes get proportionally more vibrato.
func opnPMDelta(step, fms uint8, fNum uint16) int32 {
	if fms == 0 {
		return 0
	}
	pmStep := step >> 2

	// Quarter-wave index, mirrored in the second quarter
	idx := pmStep & 0x07
	if pmStep&0x08 != 0 {
		idx = 7 - idx
	}
	base := opnPMTable[fms&0x07][idx]

	var delta int32
	for bit := uint(4); bit <= 10; bit++ {
		if fNum&(1<<bit) != 0 {
			delta += base >> (10 - bit)
		}
	}
	if pmStep&0x10 != 0 {
		delta = -delta
	}
	return delta
}
