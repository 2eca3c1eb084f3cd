package emu

import "math"

// opmPhaseTable holds the 17-bit base phase step at octave 7 for each of
// the 12 semitones in 64 key-fraction steps. Semitone 0 is C#, the first
// OPM note. Pitches are referenced to A4 = 440 Hz on a 3,579,545 Hz clock.
var opmPhaseTable [768]uint32

func init() {
	const refClock = 3579545.0
	for i := range opmPhaseTable {
		semis := float64(i)/64.0 - 8.0 // A is semitone 8
		freq := 440.0 * 8.0 * math.Pow(2, semis/12.0)
		opmPhaseTable[i] = uint32(math.Round(freq * (1 << 20) * 64.0 / refClock))
	}
}

// opmDT2 is the DT2 coarse detune in key-fraction units (1/64 semitone):
// none, +600, +781 and +950 cents.
var opmDT2 = [4]int{0, 384, 500, 608}

// opmPMCents is the full-depth vibrato range per PMS in cents.
var opmPMCents = [8]int32{0, 5, 10, 20, 50, 100, 400, 700}

// opmSemitone maps a 4-bit note code to its semitone. Codes 3, 7, 11 and 15
// are undefined on the chip and alias the following note.
func opmSemitone(note uint8) int {
	s := int(note) - int(note)/4
	if s > 11 {
		s = 11
	}
	return s
}

// opmPhaseStep returns the base phase step for a key code, key fraction
// and fraction offset (DT2 plus PM). Offsets move across octaves and
// saturate at the ends of the range.
func opmPhaseStep(kc, kf uint8, offset int) uint32 {
	oct := int(kc>>4) & 0x07
	idx := opmSemitone(kc&0x0F)*64 + int(kf) + offset
	for idx >= 768 {
		idx -= 768
		oct++
	}
	for idx < 0 {
		idx += 768
		oct--
	}
	switch {
	case oct > 7:
		return opmPhaseTable[767]
	case oct < 0:
		return opmPhaseTable[0] >> 7
	}
	return opmPhaseTable[idx] >> uint(7-oct)
}

// opmChannel is an OPM channel: the shared four-operator channel plus its
// decoded key code and fraction.
type opmChannel struct {
	fmChannel
	kc      uint8 // 7-bit key code (octave, note)
	kf      uint8 // 6-bit key fraction
	keyCode uint8 // 5-bit key code for rate scaling and DT1
}

// ym2151 implements the Yamaha YM2151 (OPM): eight four-operator channels
// with a noise generator on channel 8, a four-waveform LFO and two timers.
//
// Register 0x19 holds two values selected by bit 7; the PMD write is kept
// in the otherwise unused register 0x1A.
type ym2151 struct {
	regs registerFile
	ch   [8]opmChannel

	// Decoded globals
	lfoHold     bool  // TEST bit 1: LFO held at phase 0
	noiseEnable bool  // Noise replaces channel 8 C2
	noiseFreq   uint8 // 5-bit noise frequency
	csm         bool
	lfoRate     uint8 // 8-bit LFRQ
	amd         uint8 // 7-bit AM depth
	pmd         uint8 // 7-bit PM depth
	lfoWave     uint8 // 0 saw, 1 square, 2 triangle, 3 noise

	timerA fmTimer
	timerB fmTimer

	csmKeyOn bool

	egCounter uint16
	egClock   uint8

	lfoCounter uint32 // 30-bit LFO phase accumulator
	lfoNoise   uint8  // Noise sample latched on each LFO step
	lfoAM      uint16 // Depth-scaled AM output for this sample
	lfoPM      int32  // Depth-scaled PM output for this sample

	noiseLFSR  uint32 // 17-bit noise shift register
	noiseCount uint8

	sampleCount uint64
	busyUntil   uint64
}

func newYM2151() *ym2151 {
	y := &ym2151{regs: newRegisterFile(0x100)}
	y.reset()
	return y
}

func (y *ym2151) reset() {
	regs := y.regs
	*y = ym2151{
		regs:      regs,
		timerA:    fmTimer{bits: 10, prescale: 1},
		timerB:    fmTimer{bits: 8, prescale: 16},
		noiseLFSR: 1,
	}
	y.regs.clear()
	for c := uint16(0); c < 8; c++ {
		y.regs[0x20+c] = 0xC0
	}
	for i := range y.ch {
		y.ch[i].silence()
	}
	y.refresh()
}

func (y *ym2151) refresh() {
	for addr := range y.regs {
		y.decode(uint16(addr))
	}
	for c := range y.ch {
		y.updateFrequency(c)
	}
}

func (y *ym2151) writeRegister(addr uint16, val uint8) {
	y.busyUntil = y.sampleCount + busyDuration
	// 0x1A only holds PMD, which is written through 0x19.
	if addr == 0x1A {
		return
	}
	if addr == 0x19 && val&0x80 != 0 {
		addr = 0x1A
	}
	y.regs[addr] = val
	y.decode(addr)

	switch addr {
	case 0x01:
		if y.lfoHold {
			y.lfoCounter = 0
		}
	case 0x08:
		// bits 0-2 channel, bits 3-6 OP1 (M1), OP2 (C1), OP3 (M2), OP4 (C2)
		ch := &y.ch[val&0x07]
		for i := range ch.op {
			ch.op[i].setKey(val&(0x08<<uint(i)) != 0)
		}
	case 0x14:
		y.timerA.setLoad(val&0x01 != 0)
		y.timerB.setLoad(val&0x02 != 0)
		if val&0x10 != 0 {
			y.timerA.overflow = false
		}
		if val&0x20 != 0 {
			y.timerB.overflow = false
		}
	}
}

func (y *ym2151) decode(addr uint16) {
	val := y.regs[addr]
	if addr >= 0x40 {
		y.decodeOperator(addr)
		return
	}
	if addr >= 0x20 {
		c := int(addr & 0x07)
		ch := &y.ch[c]
		switch addr & 0x38 {
		case 0x20:
			ch.panL = val&0x40 != 0
			ch.panR = val&0x80 != 0
			ch.decodeAlgorithm(val)
		case 0x28:
			ch.kc = val & 0x7F
			y.updateFrequency(c)
		case 0x30:
			ch.kf = val >> 2
			y.updateFrequency(c)
		case 0x38:
			ch.pms = (val >> 4) & 0x07
			ch.ams = val & 0x03
		}
		return
	}
	switch addr {
	case 0x01:
		y.lfoHold = val&0x02 != 0
	case 0x0F:
		y.noiseEnable = val&0x80 != 0
		y.noiseFreq = val & 0x1F
	case 0x10, 0x11:
		y.timerA.period = uint16(y.regs[0x10])<<2 | uint16(y.regs[0x11]&0x03)
	case 0x12:
		y.timerB.period = uint16(val)
	case 0x14:
		y.csm = val&0x80 != 0
		y.timerA.enable = val&0x04 != 0
		y.timerB.enable = val&0x08 != 0
	case 0x18:
		y.lfoRate = val
	case 0x19:
		y.amd = val & 0x7F
	case 0x1A:
		y.pmd = val & 0x7F
	case 0x1B:
		y.lfoWave = val & 0x03
	}
}

// decodeOperator handles $40-$FF: eight channels per slot, slots in the
// order M1, M2, C1, C2.
func (y *ym2151) decodeOperator(addr uint16) {
	c := int(addr & 0x07)
	opIdx := operatorOrder[(addr>>3)&0x03]
	op := &y.ch[c].op[opIdx]
	val := y.regs[addr]
	switch addr & 0xE0 {
	case 0x40:
		op.dt = (val >> 4) & 0x07
		op.mul = val & 0x0F
		y.updatePhaseIncrement(c, opIdx)
	case 0x60:
		op.tl = val & 0x7F
	case 0x80:
		op.rs = (val >> 6) & 0x03
		op.ar = val & 0x1F
	case 0xA0:
		op.am = val&0x80 != 0
		op.d1r = val & 0x1F
	case 0xC0:
		op.dt2 = (val >> 6) & 0x03
		op.d2r = val & 0x1F
		y.updatePhaseIncrement(c, opIdx)
	case 0xE0:
		op.d1l = (val >> 4) & 0x0F
		op.rr = val & 0x0F
	}
}

func (y *ym2151) updateFrequency(c int) {
	ch := &y.ch[c]
	ch.keyCode = (ch.kc >> 2) & 0x1F
	for i := range ch.op {
		ch.op[i].keyCode = ch.keyCode
		y.updatePhaseIncrement(c, i)
	}
}

func (y *ym2151) updatePhaseIncrement(c, opIdx int) {
	y.ch[c].op[opIdx].phaseInc = y.opIncrement(c, opIdx, 0)
}

// opIncrement computes an operator's phase increment with an extra
// key-fraction offset (PM).
func (y *ym2151) opIncrement(c, opIdx int, pm int) uint32 {
	ch := &y.ch[c]
	op := &ch.op[opIdx]
	base := opmPhaseStep(ch.kc, ch.kf, opmDT2[op.dt2]+pm)
	return detuneMultiply(base, ch.keyCode, op.dt, op.mul)
}

func (y *ym2151) readRegister(addr uint16) (uint8, error) {
	return y.regs[addr], nil
}

// readStatus returns bit0 Timer A overflow, bit1 Timer B overflow and
// bit7 busy.
func (y *ym2151) readStatus() (uint8, error) {
	var status uint8
	if y.timerA.overflow {
		status |= 0x01
	}
	if y.timerB.overflow {
		status |= 0x02
	}
	if y.sampleCount < y.busyUntil {
		status |= 0x80
	}
	return status, nil
}

func (y *ym2151) stepTimers() {
	if y.csmKeyOn {
		for c := range y.ch {
			for i := range y.ch[c].op {
				if !y.ch[c].op[i].keyOn {
					y.ch[c].op[i].startRelease()
				}
			}
		}
		y.csmKeyOn = false
	}
	if y.timerA.tick() && y.csm {
		// CSM keys on every operator of every channel
		for c := range y.ch {
			for i := range y.ch[c].op {
				y.ch[c].op[i].startAttack()
			}
		}
		y.csmKeyOn = true
	}
	y.timerB.tick()
}

// stepNoise clocks the 17-bit noise LFSR every 32-NFRQ samples.
func (y *ym2151) stepNoise() {
	period := 32 - int(y.noiseFreq)
	y.noiseCount++
	if int(y.noiseCount) < period {
		return
	}
	y.noiseCount = 0
	bit := (y.noiseLFSR ^ (y.noiseLFSR >> 3)) & 1
	y.noiseLFSR = (y.noiseLFSR >> 1) | (bit << 16)
}

// noiseOutput is the noise generator's output at the envelope level of
// channel 8 C2.
func (y *ym2151) noiseOutput(op *fmOperator, amAtten uint16) int16 {
	level := int16(attenuationToLinear(uint32(op.attenuation(amAtten)) << 2))
	if y.noiseLFSR&1 != 0 {
		return -level
	}
	return level
}

func (y *ym2151) generate(buf []int32) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = y.tick()
	}
}

func (y *ym2151) tick() (int32, int32) {
	y.sampleCount++
	y.stepTimers()
	y.stepLFO()
	y.stepNoise()

	y.egClock++
	if y.egClock >= 3 {
		y.egClock = 0
		y.egCounter++
		if y.egCounter >= 4096 {
			y.egCounter = 1
		}
		for c := range y.ch {
			for i := range y.ch[c].op {
				y.ch[c].op[i].stepEnvelope(y.egCounter)
			}
		}
	}

	var left, right int32
	for c := range y.ch {
		out := y.evaluateChannel(c)
		if y.ch[c].panL {
			left += out
		}
		if y.ch[c].panR {
			right += out
		}
	}
	return clamp16(left), clamp16(right)
}

// evaluateChannel steps the channel's phases and returns the sum of its
// carriers.
func (y *ym2151) evaluateChannel(c int) int32 {
	ch := &y.ch[c]

	pm := 0
	if ch.pms != 0 && y.lfoPM != 0 {
		pm = int(y.lfoPM * opmPMCents[ch.pms] * 64 / (100 * 128))
	}
	for i := range ch.op {
		inc := ch.op[i].phaseInc
		if pm != 0 {
			inc = y.opIncrement(c, i, pm)
		}
		ch.op[i].stepPhase(inc)
	}

	am := y.amAttenuation(ch.ams)
	cs := ch.evaluate(am)
	// C2 is the last carrier of every algorithm
	if c == 7 && y.noiseEnable {
		cs.out[cs.n-1] = y.noiseOutput(&ch.op[3], am)
	}

	var sum int32
	for i := 0; i < cs.n; i++ {
		sum += int32(cs.out[i])
	}
	return sum
}
