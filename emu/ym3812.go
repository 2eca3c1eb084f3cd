package emu

// oplVibPattern is the vibrato offset sequence, in units of the top three
// F-number bits.
var oplVibPattern = [8]int32{0, 1, 2, 1, 0, -1, -2, -1}

// Tremolo and vibrato LFO periods in samples (3.7 Hz and 6.1 Hz at the
// nominal 49,716 Hz output rate).
const (
	oplTremPeriod = 210 * 64
	oplVibPeriod  = 8 * 1024
)

// Rhythm key bits of register $BD
const (
	rhythmHH = 1 << iota
	rhythmTC
	rhythmTOM
	rhythmSD
	rhythmBD
)

// oplChannel is a two-operator OPL channel.
type oplChannel struct {
	op       [2]oplOperator
	fnum     uint16 // 10-bit F-number
	block    uint8  // 3-bit block
	feedback uint8  // 3-bit feedback on operator 1
	additive bool   // CNT: both operators are carriers
}

// ym3812 implements the Yamaha YM3812 (OPL2): nine two-operator channels,
// four waveforms, tremolo and vibrato LFOs, a rhythm mode on channels 7-9
// and two timers. The same core runs the YM3526 (OPL), which lacks the
// waveform select enable and always plays sines.
//
// Writing $04 with bit 7 set resets the timer flags without changing the
// stored register.
type ym3812 struct {
	regs registerFile
	ch   [9]oplChannel

	waveSelect bool // part has the $01 WSE bit (OPL2)

	// Decoded globals
	waveEnable bool // $01 bit 5
	csm        bool // $08 bit 7
	nts        bool // $08 bit 6: key scale from F-number bit 8 instead of 9
	amDeep     bool // $BD bit 7: 4.8 dB tremolo instead of 1 dB
	vibDeep    bool // $BD bit 6: 14 cent vibrato instead of 7
	rhythm     bool // $BD bit 5

	timer1 fmTimer
	timer2 fmTimer

	csmKeyOn bool

	egCounter uint16
	tremCount uint16
	vibCount  uint16
	noise     uint32 // 23-bit rhythm noise LFSR

	sampleCount uint64
}

func newYM3812() *ym3812 {
	y := &ym3812{regs: newRegisterFile(0x100), waveSelect: true}
	y.reset()
	return y
}

func newYM3526() *ym3812 {
	y := &ym3812{regs: newRegisterFile(0x100)}
	y.reset()
	return y
}

func (y *ym3812) reset() {
	regs, waveSelect := y.regs, y.waveSelect
	*y = ym3812{
		regs:       regs,
		waveSelect: waveSelect,
		timer1:     fmTimer{bits: 8, prescale: 4},
		timer2:     fmTimer{bits: 8, prescale: 16},
		noise:      1,
	}
	y.regs.clear()
	for c := range y.ch {
		for i := range y.ch[c].op {
			y.ch[c].op[i].silence()
		}
	}
	y.refresh()
}

func (y *ym3812) refresh() {
	for addr := range y.regs {
		y.decode(uint16(addr))
	}
	for c := range y.ch {
		y.updateFrequency(c)
	}
}

func (y *ym3812) writeRegister(addr uint16, val uint8) {
	if addr == 0x04 && val&0x80 != 0 {
		y.timer1.overflow = false
		y.timer2.overflow = false
		return
	}
	y.regs[addr] = val
	y.decode(addr)

	switch {
	case addr == 0x04:
		y.timer1.setLoad(val&0x01 != 0)
		y.timer2.setLoad(val&0x02 != 0)
	case addr >= 0xB0 && addr <= 0xB8:
		ch := &y.ch[addr-0xB0]
		on := val&0x20 != 0
		ch.op[0].setKey(oplKeyNormal, on)
		ch.op[1].setKey(oplKeyNormal, on)
	case addr == 0xBD:
		y.writeRhythmKeys(val)
	}
}

// writeRhythmKeys applies the $BD percussion key bits. Leaving rhythm mode
// releases every percussion key.
func (y *ym3812) writeRhythmKeys(val uint8) {
	if !y.rhythm {
		val = 0
	}
	y.ch[6].op[0].setKey(oplKeyRhythm, val&rhythmBD != 0)
	y.ch[6].op[1].setKey(oplKeyRhythm, val&rhythmBD != 0)
	y.ch[7].op[0].setKey(oplKeyRhythm, val&rhythmHH != 0)
	y.ch[7].op[1].setKey(oplKeyRhythm, val&rhythmSD != 0)
	y.ch[8].op[0].setKey(oplKeyRhythm, val&rhythmTOM != 0)
	y.ch[8].op[1].setKey(oplKeyRhythm, val&rhythmTC != 0)
}

func (y *ym3812) decode(addr uint16) {
	val := y.regs[addr]
	switch {
	case addr == 0x01:
		y.waveEnable = y.waveSelect && val&0x20 != 0
	case addr == 0x02:
		y.timer1.period = uint16(val)
	case addr == 0x03:
		y.timer2.period = uint16(val)
	case addr == 0x04:
		y.timer1.enable = val&0x40 == 0
		y.timer2.enable = val&0x20 == 0
	case addr == 0x08:
		y.csm = val&0x80 != 0
		y.nts = val&0x40 != 0
		for c := range y.ch {
			y.updateFrequency(c)
		}
	case addr >= 0x20 && addr < 0xA0, addr >= 0xE0:
		y.decodeOperator(addr)
	case addr >= 0xA0 && addr <= 0xA8, addr >= 0xB0 && addr <= 0xB8:
		y.updateFrequency(int(addr & 0x0F))
	case addr == 0xBD:
		y.amDeep = val&0x80 != 0
		y.vibDeep = val&0x40 != 0
		y.rhythm = val&0x20 != 0
	case addr >= 0xC0 && addr <= 0xC8:
		ch := &y.ch[addr-0xC0]
		ch.feedback = (val >> 1) & 0x07
		ch.additive = val&0x01 != 0
	}
}

// oplSlot maps an operator register offset (0x00-0x15) to its channel and
// operator. Offsets 6, 7, 0xE and 0xF of each group of eight are unused.
func oplSlot(offset uint16) (ch, op int, ok bool) {
	if offset > 0x15 || offset&7 >= 6 {
		return 0, 0, false
	}
	return int(offset>>3)*3 + int(offset&7)%3, int(offset&7) / 3, true
}

func (y *ym3812) decodeOperator(addr uint16) {
	c, o, ok := oplSlot(addr & 0x1F)
	if !ok {
		return
	}
	op := &y.ch[c].op[o]
	val := y.regs[addr]
	switch addr & 0xE0 {
	case 0x20:
		op.am = val&0x80 != 0
		op.vib = val&0x40 != 0
		op.egt = val&0x20 != 0
		op.ksr = val&0x10 != 0
		op.mul = val & 0x0F
		y.updateFrequency(c)
	case 0x40:
		op.ksl = val >> 6
		op.tl = val & 0x3F
		y.updateFrequency(c)
	case 0x60:
		op.ar = val >> 4
		op.dr = val & 0x0F
	case 0x80:
		op.sl = val >> 4
		op.rr = val & 0x0F
	case 0xE0:
		op.wave = val & 0x03
	}
}

// updateFrequency recomputes a channel's F-number, increments, key scale
// codes and KSL attenuation.
func (y *ym3812) updateFrequency(c int) {
	ch := &y.ch[c]
	hi := y.regs[0xB0+uint16(c)]
	ch.fnum = uint16(hi&0x03)<<8 | uint16(y.regs[0xA0+uint16(c)])
	ch.block = (hi >> 2) & 0x07

	bit := ch.fnum >> 9
	if y.nts {
		bit = ch.fnum >> 8
	}
	keyScale := ch.block<<1 | uint8(bit&1)
	for i := range ch.op {
		op := &ch.op[i]
		op.phaseInc = oplIncrement(ch.fnum, ch.block, op.mul)
		op.kslAtten = oplKSLAttenuation(ch.fnum, ch.block, op.ksl)
		op.keyScale = keyScale
	}
}

func (y *ym3812) readRegister(addr uint16) (uint8, error) {
	return y.regs[addr], nil
}

// readStatus returns bit7 IRQ, bit6 Timer 1 and bit5 Timer 2 overflow.
// The unused low bits read as 0x06.
func (y *ym3812) readStatus() (uint8, error) {
	status := uint8(0x06)
	if y.timer1.overflow {
		status |= 0x40
	}
	if y.timer2.overflow {
		status |= 0x20
	}
	if status&0x60 != 0 {
		status |= 0x80
	}
	return status, nil
}

func (y *ym3812) stepTimers() {
	if y.csmKeyOn {
		for c := range y.ch {
			y.ch[c].op[0].setKey(oplKeyCSM, false)
			y.ch[c].op[1].setKey(oplKeyCSM, false)
		}
		y.csmKeyOn = false
	}
	if y.timer1.tick() && y.csm {
		for c := range y.ch {
			y.ch[c].op[0].setKey(oplKeyCSM, true)
			y.ch[c].op[1].setKey(oplKeyCSM, true)
		}
		y.csmKeyOn = true
	}
	y.timer2.tick()
}

// stepLFOs advances the tremolo, vibrato and noise generators.
func (y *ym3812) stepLFOs() {
	y.tremCount++
	if y.tremCount >= oplTremPeriod {
		y.tremCount = 0
	}
	y.vibCount++
	if y.vibCount >= oplVibPeriod {
		y.vibCount = 0
	}
	bit := ((y.noise >> 14) ^ y.noise) & 1
	y.noise = (y.noise >> 1) | (bit << 22)
}

// tremolo returns the current AM attenuation: a 0-104 triangle scaled to
// 4.8 dB (deep) or 1.2 dB.
func (y *ym3812) tremolo() uint16 {
	pos := y.tremCount >> 6
	if pos >= 105 {
		pos = 209 - pos
	}
	if y.amDeep {
		return pos >> 1
	}
	return pos >> 3
}

// vibratoIncrement returns an operator's increment with the vibrato offset
// applied to the F-number.
func (y *ym3812) vibratoIncrement(ch *oplChannel, op *oplOperator) uint32 {
	delta := int32(ch.fnum>>7&0x07) * oplVibPattern[y.vibCount>>10&0x07]
	if !y.vibDeep {
		delta >>= 1
	}
	fnum := int32(ch.fnum) + delta
	if fnum < 0 {
		fnum = 0
	}
	return oplIncrement(uint16(fnum)&0x3FF, ch.block, op.mul)
}

func (y *ym3812) generate(buf []int32) {
	for i := range buf {
		buf[i] = y.tick()
	}
}

func (y *ym3812) tick() int32 {
	y.sampleCount++
	y.stepTimers()
	y.stepLFOs()

	y.egCounter++
	if y.egCounter >= 4096 {
		y.egCounter = 1
	}

	am := y.tremolo()
	for c := range y.ch {
		ch := &y.ch[c]
		for i := range ch.op {
			op := &ch.op[i]
			op.stepEnvelope(y.egCounter)
			inc := op.phaseInc
			if op.vib {
				inc = y.vibratoIncrement(ch, op)
			}
			op.phase = (op.phase + inc) & 0xFFFFF
		}
	}

	melodic := len(y.ch)
	if y.rhythm {
		melodic = 6
	}
	var out int32
	for c := 0; c < melodic; c++ {
		out += y.evaluateChannel(&y.ch[c], am)
	}
	if y.rhythm {
		out += y.evaluateRhythm(am)
	}
	return clamp16(out)
}

// opWave returns the waveform an operator plays; without WSE every
// operator plays a sine.
func (y *ym3812) opWave(op *oplOperator) uint8 {
	if !y.waveEnable {
		return 0
	}
	return op.wave
}

// feedbackMod computes operator 1's self-modulation in the 10-bit index domain.
func (ch *oplChannel) feedbackMod() int32 {
	if ch.feedback == 0 {
		return 0
	}
	op := &ch.op[0]
	return (int32(op.prevOut[0]) + int32(op.prevOut[1])) >> (10 - uint(ch.feedback))
}

func (y *ym3812) evaluateChannel(ch *oplChannel, am uint16) int32 {
	m := ch.op[0].output(ch.feedbackMod(), y.opWave(&ch.op[0]), am)
	if ch.additive {
		return int32(m) + int32(ch.op[1].output(0, y.opWave(&ch.op[1]), am))
	}
	return int32(ch.op[1].output(int32(m)>>1, y.opWave(&ch.op[1]), am))
}
