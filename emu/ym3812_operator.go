package emu

// oplMulX2 is the OPL frequency multiplier times two, indexed by MULT.
var oplMulX2 = [16]uint32{1, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 20, 24, 24, 30, 30}

// oplKSLRom is the key scale attenuation of the top four F-number bits at
// block 7, in 0.375 dB steps (four envelope units each).
var oplKSLRom = [16]int32{0, 32, 40, 45, 48, 51, 53, 55, 56, 58, 59, 60, 61, 62, 63, 64}

// Key-on sources of an OPL operator.
const (
	oplKeyNormal = 1 << iota // $B0 bit 5
	oplKeyRhythm             // $BD percussion bits
	oplKeyCSM                // Timer 1 overflow in CSM mode
)

// oplOperator is one operator of a two-operator OPL channel.
type oplOperator struct {
	// Register fields
	am   bool  // Tremolo enable
	vib  bool  // Vibrato enable
	egt  bool  // Sustained envelope (hold at sustain level)
	ksr  bool  // Full key scale rate
	mul  uint8 // 4-bit multiplier index
	ksl  uint8 // 2-bit key scale level
	tl   uint8 // 6-bit total level (0.75 dB steps)
	ar   uint8 // 4-bit rates
	dr   uint8
	sl   uint8
	rr   uint8
	wave uint8 // 2-bit waveform select

	// Derived from the channel frequency
	phaseInc uint32
	kslAtten uint16
	keyScale uint8 // 4-bit rate key scale code

	// Generator state
	phase   uint32 // 20-bit phase accumulator
	egState uint8
	egLevel uint16
	key     uint8 // active key-on sources
	prevOut [2]int16
}

func (op *oplOperator) silence() {
	*op = oplOperator{egState: egRelease, egLevel: egMax}
}

// rate returns the effective envelope rate 4*r + key scaling, 0 if r is 0.
func (op *oplOperator) rate(r uint8) uint8 {
	if r == 0 {
		return 0
	}
	rks := op.keyScale
	if !op.ksr {
		rks >>= 2
	}
	v := 4*int(r) + int(rks)
	if v > 63 {
		v = 63
	}
	return uint8(v)
}

// setKey turns key-on source src on or off. The envelope restarts when
// the first source keys on and releases when the last one keys off.
func (op *oplOperator) setKey(src uint8, on bool) {
	old := op.key
	if on {
		op.key |= src
	} else {
		op.key &^= src
	}
	switch {
	case old == 0 && op.key != 0:
		op.phase = 0
		op.egState = egAttack
		if op.rate(op.ar) >= 62 {
			op.egLevel = 0
			op.egState = egDecay
		}
	case old != 0 && op.key == 0:
		op.egState = egRelease
	}
}

func (op *oplOperator) stepEnvelope(counter uint16) {
	if op.egState == egDecay && op.egLevel >= sustainLevel(op.sl) {
		op.egState = egSustain
	}

	var rate uint8
	switch op.egState {
	case egAttack:
		rate = op.rate(op.ar)
	case egDecay:
		rate = op.rate(op.dr)
	case egSustain:
		if op.egt {
			return
		}
		rate = op.rate(op.rr)
	case egRelease:
		rate = op.rate(op.rr)
	}

	incr := egIncrement(rate, counter)
	if incr == 0 {
		return
	}
	if op.egState == egAttack {
		op.egLevel = attackStep(op.egLevel, incr)
		if op.egLevel == 0 {
			op.egState = egDecay
		}
		return
	}
	op.egLevel += uint16(incr)
	if op.egLevel > egMax {
		op.egLevel = egMax
	}
}

func (op *oplOperator) attenuation(amAtten uint16) uint16 {
	atten := totalLevel(op.egLevel, op.tl) + op.kslAtten
	if op.am {
		atten += amAtten
	}
	if atten > egMax {
		atten = egMax
	}
	return atten
}

// outputAt computes the operator output at a 10-bit phase index and
// records it for feedback.
func (op *oplOperator) outputAt(idx uint32, wave uint8, amAtten uint16) int16 {
	out := oplWaveOutput(wave, idx, op.attenuation(amAtten))
	op.prevOut[1] = op.prevOut[0]
	op.prevOut[0] = out
	return out
}

// output computes the operator output with phase modulation in the 10-bit
// index domain.
func (op *oplOperator) output(mod int32, wave uint8, amAtten uint16) int16 {
	idx := ((op.phase >> 10) + uint32(mod)) & 0x3FF
	return op.outputAt(idx, wave, amAtten)
}

// oplWaveOutput evaluates an OPL2 waveform: 0 sine, 1 half sine, 2 absolute
// sine, 3 quarter (pulse) sine.
func oplWaveOutput(wave uint8, idx uint32, egLevel uint16) int16 {
	switch wave {
	case 1:
		if idx&0x200 != 0 {
			return 0
		}
	case 2:
		idx &^= 0x200
	case 3:
		if idx&0x100 != 0 {
			return 0
		}
		idx &^= 0x200
	}
	return computeOperatorOutput(idx<<10, egLevel)
}

// oplIncrement returns the 20-bit phase increment for an F-number, block
// and multiplier.
func oplIncrement(fnum uint16, block, mul uint8) uint32 {
	return ((uint32(fnum) << block) * oplMulX2[mul&0x0F]) >> 1
}

// oplKSLAttenuation returns the key scale attenuation in envelope units:
// 3 dB/octave for KSL 1, 1.5 for KSL 2 and 6 for KSL 3.
func oplKSLAttenuation(fnum uint16, block, ksl uint8) uint16 {
	if ksl == 0 {
		return 0
	}
	base := oplKSLRom[fnum>>6&0x0F]*4 - int32(7-block)*32
	if base < 0 {
		base = 0
	}
	switch ksl {
	case 2:
		base >>= 1
	case 3:
		base <<= 1
	}
	return uint16(base)
}

func (op *oplOperator) saveState(w *stateWriter) {
	w.u32(op.phase)
	w.u8(op.egState)
	w.u16(op.egLevel)
	w.u8(op.key)
	w.i16(op.prevOut[0])
	w.i16(op.prevOut[1])
}

func (op *oplOperator) loadState(r *stateReader) {
	op.phase = r.u32() & 0xFFFFF
	op.egState = r.u8() & 0x03
	op.egLevel = r.u16() & egMax
	op.key = r.u8() & 0x07
	op.prevOut[0] = r.i16()
	op.prevOut[1] = r.i16()
}
