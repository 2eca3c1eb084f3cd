package emu

// Rhythm mode replaces channels 7-9 with five percussion voices:
// bass drum (channel 7, both operators), hi-hat (channel 8 op 1), snare
// (channel 8 op 2), tom (channel 9 op 1) and top cymbal (channel 9 op 2).
// Hi-hat, snare and cymbal derive their phase from bits of the hi-hat and
// cymbal phase counters mixed with the noise generator.

// rhythmPhases returns the phase bits shared by the hi-hat and cymbal:
// the hi-hat bit combination and the cymbal bit combination.
func (y *ym3812) rhythmPhases() (hh, tc bool) {
	p7 := y.ch[7].op[0].phase >> 10
	p8 := y.ch[8].op[1].phase >> 10
	bit7 := p7 >> 7 & 1
	bit3 := p7 >> 3 & 1
	bit2 := p7 >> 2 & 1
	hh = (bit2^bit7)|bit3 != 0
	tc = (p8>>3&1)^(p8>>5&1) != 0
	return hh, tc
}

func (y *ym3812) evaluateRhythm(am uint16) int32 {
	noise := y.noise&1 != 0
	hhBits, tcBits := y.rhythmPhases()

	// Bass drum: operator 2 alone when CNT is set, otherwise modulated
	bd := &y.ch[6]
	m := bd.op[0].output(bd.feedbackMod(), y.opWave(&bd.op[0]), am)
	var bdOut int16
	if bd.additive {
		bdOut = bd.op[1].output(0, y.opWave(&bd.op[1]), am)
	} else {
		bdOut = bd.op[1].output(int32(m)>>1, y.opWave(&bd.op[1]), am)
	}

	// Hi-hat
	hhOp := &y.ch[7].op[0]
	var phase uint32 = 0xD0
	if hhBits || tcBits {
		phase = 0x200 | (0xD0 >> 2)
	}
	if noise {
		if phase&0x200 != 0 {
			phase = 0x2D0
		} else {
			phase = 0x34
		}
	}
	hh := hhOp.outputAt(phase, y.opWave(hhOp), am)

	// Snare drum
	sdOp := &y.ch[7].op[1]
	phase = 0x100
	if y.ch[7].op[0].phase>>10&0x100 != 0 {
		phase = 0x200
	}
	if noise {
		phase ^= 0x100
	}
	sd := sdOp.outputAt(phase, y.opWave(sdOp), am)

	// Tom-tom: plain sine of its own phase
	tomOp := &y.ch[8].op[0]
	tom := tomOp.output(0, y.opWave(tomOp), am)

	// Top cymbal
	tcOp := &y.ch[8].op[1]
	phase = 0x100
	if hhBits || tcBits {
		phase = 0x300
	}
	tc := tcOp.outputAt(phase, y.opWave(tcOp), am)

	return 2 * (int32(bdOut) + int32(hh) + int32(sd) + int32(tom) + int32(tc))
}
