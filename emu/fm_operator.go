package emu

// Envelope states for ADSR
const (
	egAttack  = 0
	egDecay   = 1
	egSustain = 2
	egRelease = 3
)

// SSG-EG bit masks and boundary constant (OPN only; always 0 on OPM).
const (
	ssgEnable    = 0x08  // SSG-EG enable bit
	ssgAttack    = 0x04  // SSG-EG attack/invert bit
	ssgAlternate = 0x02  // SSG-EG alternate bit
	ssgHold      = 0x01  // SSG-EG hold bit
	ssgCenter    = 0x200 // SSG-EG boundary (10-bit scale)
)

// egMax is the fully attenuated (silent) envelope level.
const egMax = 0x3FF

// fmOperator is one operator of a four-operator channel (OPN2 and OPM).
// Register fields are decoded from the register file and rebuilt after a
// state load; the remaining fields are generator state.
type fmOperator struct {
	// Register fields
	dt  uint8 // Detune 1 (3-bit: bit2=sign, bits1-0=value)
	dt2 uint8 // Detune 2 (2-bit, OPM only)
	mul uint8 // Frequency multiplier (4-bit, 0=x0.5, 1-15=x1..x15)
	tl  uint8 // Total level / attenuation (7-bit, 0=max vol, 127=min)
	rs  uint8 // Rate scaling (2-bit)
	ar  uint8 // Attack rate (5-bit)
	d1r uint8 // Decay 1 rate (5-bit)
	d2r uint8 // Decay 2 rate (5-bit)
	d1l uint8 // Decay 1 level / sustain level (4-bit)
	rr  uint8 // Release rate (4-bit)
	am  bool  // AM enable (amplitude modulation from LFO)

	ssgEG uint8 // SSG-EG mode (4-bit)

	// Derived from frequency registers
	phaseInc uint32 // 20-bit phase increment
	keyCode  uint8  // 5-bit key code for rate scaling

	// Generator state
	phaseCounter uint32 // 20-bit phase accumulator
	egState      uint8
	egLevel      uint16 // 10-bit attenuation (0=full vol, 0x3FF=silent)
	keyOn        bool   // Key-on held by the key-on register
	ssgInverted  bool   // SSG-EG inversion state
	prevOut      [2]int16
}

// silence puts the operator into release at maximum attenuation.
func (op *fmOperator) silence() {
	op.egState = egRelease
	op.egLevel = egMax
}

// effectiveRate computes 2*rate + rks, clamped to 63. Returns 0 if rate is 0.
func (op *fmOperator) effectiveRate(rate uint8) uint8 {
	if rate == 0 {
		return 0
	}
	rks := op.keyCode >> (3 - op.rs)
	r := int(2*rate) + int(rks)
	if r > 63 {
		r = 63
	}
	return uint8(r)
}

// startAttack restarts the operator: phase reset and attack state.
func (op *fmOperator) startAttack() {
	op.phaseCounter = 0
	op.egState = egAttack
	op.ssgInverted = op.ssgEG&ssgAttack != 0
	if op.effectiveRate(op.ar) >= 62 {
		op.egLevel = 0
		op.egState = egDecay
	}
}

// startRelease moves the operator to release, resolving SSG-EG inversion.
func (op *fmOperator) startRelease() {
	if op.ssgEG&ssgEnable != 0 && op.ssgInverted {
		op.egLevel = (ssgCenter - op.egLevel) & egMax
		op.ssgInverted = false
	}
	op.egState = egRelease
}

// setKey applies a key-on register edge.
func (op *fmOperator) setKey(on bool) {
	if on && !op.keyOn {
		op.keyOn = true
		op.startAttack()
	} else if !on && op.keyOn {
		op.keyOn = false
		op.startRelease()
	}
}

// sustainLevel converts the 4-bit D1L field to a 10-bit attenuation level.
// D1L 0-14 = level << 5, D1L 15 = 0x3E0.
func sustainLevel(d1l uint8) uint16 {
	if d1l >= 15 {
		return 0x3E0
	}
	return uint16(d1l) << 5
}

// totalLevel returns the combined envelope + TL attenuation, capped at 0x3FF.
func totalLevel(egLevel uint16, tl uint8) uint16 {
	total := egLevel + uint16(tl)<<3
	if total > egMax {
		return egMax
	}
	return total
}

// attackStep applies one exponential attack step. The complement of the
// level gives a negative step that shrinks as the level approaches 0.
func attackStep(level uint16, incr uint8) uint16 {
	step := (^int32(level) * int32(incr)) >> 4
	newLevel := int32(level) + step
	if newLevel <= 0 {
		return 0
	}
	return uint16(newLevel)
}

// stepEnvelope advances the operator's envelope by one EG step.
func (op *fmOperator) stepEnvelope(counter uint16) {
	// The sustain level check comes before the rate calculation so a
	// decay never overshoots the sustain level.
	if op.egState == egDecay && op.egLevel >= sustainLevel(op.d1l) {
		op.egState = egSustain
	}

	var rate uint8
	switch op.egState {
	case egAttack:
		rate = op.effectiveRate(op.ar)
	case egDecay:
		rate = op.effectiveRate(op.d1r)
	case egSustain:
		rate = op.effectiveRate(op.d2r)
	case egRelease:
		rate = op.effectiveRate(2*op.rr + 1)
	}

	incr := egIncrement(rate, counter)
	if incr == 0 {
		return
	}

	// SSG-EG: 4x decay rate below center, stop at boundary
	if op.ssgEG&ssgEnable != 0 && op.egState != egAttack {
		if op.egLevel < ssgCenter {
			incr *= 4
		} else {
			incr = 0
		}
	}

	switch op.egState {
	case egAttack:
		if rate >= 62 {
			op.egLevel = 0
		} else {
			op.egLevel = attackStep(op.egLevel, incr)
		}
		if op.egLevel == 0 {
			op.egState = egDecay
		}

	case egDecay, egSustain:
		op.egLevel += uint16(incr)
		if op.egLevel > egMax {
			op.egLevel = egMax
		}

	case egRelease:
		op.egLevel += uint16(incr)
		if op.ssgEG&ssgEnable != 0 && op.egLevel >= ssgCenter {
			op.egLevel = egMax
		}
		if op.egLevel > egMax {
			op.egLevel = egMax
		}
	}
}

// ssgEGProcess handles SSG-EG boundary detection, state transitions,
// and output inversion. Returns the effective envelope level for output.
func (op *fmOperator) ssgEGProcess() uint16 {
	// During release, inversion is disabled
	if op.egState == egRelease {
		return op.egLevel
	}

	if op.egLevel >= ssgCenter {
		if op.ssgEG&ssgAlternate != 0 {
			hold := op.ssgEG&ssgHold != 0
			attackSet := op.ssgEG&ssgAttack != 0
			if !hold || attackSet == op.ssgInverted {
				op.ssgInverted = !op.ssgInverted
			}
		} else if op.ssgEG&ssgHold == 0 {
			op.phaseCounter = 0
		}

		if op.ssgEG&ssgHold == 0 &&
			(op.egState == egDecay || op.egState == egSustain) {
			op.egState = egAttack
		}
	}

	if op.ssgInverted {
		return (ssgCenter - op.egLevel) & egMax
	}
	return op.egLevel
}

// attenuation returns the operator's output attenuation for this sample:
// envelope (after SSG-EG), total level and LFO AM.
func (op *fmOperator) attenuation(amAtten uint16) uint16 {
	egLevel := op.egLevel
	if op.ssgEG&ssgEnable != 0 {
		egLevel = op.ssgEGProcess()
	}
	atten := totalLevel(egLevel, op.tl)
	if op.am {
		atten += amAtten
		if atten > egMax {
			atten = egMax
		}
	}
	return atten
}

// output computes the operator's output with phase modulation and stores
// the feedback history. modulation is in the 10-bit phase index domain.
func (op *fmOperator) output(modulation int32, amAtten uint16) int16 {
	atten := op.attenuation(amAtten)
	phase := op.phaseCounter + uint32(modulation<<10)
	out := computeOperatorOutput(phase, atten)

	op.prevOut[1] = op.prevOut[0]
	op.prevOut[0] = out
	return out
}

// feedback computes the self-feedback modulation for operator 1.
func (op *fmOperator) feedback(fbLevel uint8) int32 {
	if fbLevel == 0 {
		return 0
	}
	return (int32(op.prevOut[0]) + int32(op.prevOut[1])) >> (10 - uint(fbLevel))
}

// detuneMultiply applies DT1 and MUL to a 17-bit base phase increment and
// returns the 20-bit operator increment.
func detuneMultiply(base uint32, keyCode, dt, mul uint8) uint32 {
	delta := detuneTable[keyCode&0x1F][dt&0x03]
	if dt&0x04 != 0 {
		// Negative detune underflow wraps, as on hardware
		base -= delta
	} else {
		base += delta
	}
	base &= 0x1FFFF

	var result uint32
	if mul == 0 {
		result = base >> 1
	} else {
		result = base * uint32(mul)
	}
	return result & 0xFFFFF
}

// stepPhase advances the phase accumulator by inc.
func (op *fmOperator) stepPhase(inc uint32) {
	op.phaseCounter = (op.phaseCounter + inc) & 0xFFFFF
}

func (op *fmOperator) saveState(w *stateWriter) {
	w.u32(op.phaseCounter)
	w.u8(op.egState)
	w.u16(op.egLevel)
	w.bool(op.keyOn)
	w.bool(op.ssgInverted)
	w.i16(op.prevOut[0])
	w.i16(op.prevOut[1])
}

func (op *fmOperator) loadState(r *stateReader) {
	op.phaseCounter = r.u32() & 0xFFFFF
	op.egState = r.u8() & 0x03
	op.egLevel = r.u16() & egMax
	op.keyOn = r.bool()
	op.ssgInverted = r.bool()
	op.prevOut[0] = r.i16()
	op.prevOut[1] = r.i16()
}
