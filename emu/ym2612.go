package emu

// Channel 3 mode values (register $27 bits 7-6)
const (
	ch3ModeNormal  = 0 // All operators share frequency
	ch3ModeSpecial = 1 // Per-operator frequencies
	ch3ModeCSM     = 2 // Per-operator frequencies + Timer A overflow key-on
)

// busyDuration is how long the status busy flag stays set after a data
// write: ~32 internal cycles, about 2 native samples.
const busyDuration = 2

// opnChannel is an OPN2 channel: the shared four-operator channel plus its
// decoded frequency.
type opnChannel struct {
	fmChannel
	fNum  uint16 // 11-bit F-number
	block uint8  // 3-bit block (octave)
}

// ym2612 implements the Yamaha YM2612 (OPN2): six four-operator channels,
// an 8-bit DAC replacing channel 6, a global LFO and two timers.
//
// Register addresses 0x000-0x0FF are part I (globals, channels 1-3) and
// 0x100-0x1FF part II (channels 4-6). Frequency MSB writes ($A4-$A6,
// $AC-$AE) are held in freqLatch and reach the register file when the
// matching LSB register is written.
type ym2612 struct {
	regs      registerFile
	freqLatch [9]uint8 // part I A4-A6, part II A4-A6, AC-AE

	ch [6]opnChannel

	// Decoded globals
	dacEnable bool
	dacSample uint8 // 8-bit unsigned DAC sample
	lfoEnable bool
	lfoFreq   uint8 // 3-bit LFO frequency select
	ch3Mode   uint8
	ch3Freq   [3]uint16 // Per-operator F-number for ch3 slots
	ch3Block  [3]uint8  // Per-operator block for ch3 slots

	timerA fmTimer
	timerB fmTimer

	csmKeyOn bool // True while CSM-triggered key-on is active

	// Envelope generator global counter
	egCounter uint16 // 12-bit global envelope counter
	egClock   uint8  // Divider: counts 0,1,2 then wraps (step every 3 samples)

	// LFO
	lfoCnt   uint16 // LFO period counter
	lfoStep  uint8  // 0-127 position in LFO cycle
	lfoAMOut uint8  // Current LFO AM output value

	sampleCount uint64 // Native samples generated since reset
	busyUntil   uint64 // Sample count when the busy flag clears
}

func newYM2612() *ym2612 {
	y := &ym2612{regs: newRegisterFile(0x200)}
	y.reset()
	return y
}

func (y *ym2612) reset() {
	regs := y.regs
	*y = ym2612{
		regs:   regs,
		timerA: fmTimer{bits: 10, prescale: 1},
		timerB: fmTimer{bits: 8, prescale: 16},
	}
	y.regs.clear()
	// Power-on: all channels panned to both outputs, DAC at center.
	for c := uint16(0); c < 3; c++ {
		y.regs[0xB4+c] = 0xC0
		y.regs[0x1B4+c] = 0xC0
	}
	y.regs[0x2A] = 0x80
	for i := range y.ch {
		y.ch[i].silence()
	}
	y.refresh()
}

// refresh rebuilds every decoded field from the register file.
func (y *ym2612) refresh() {
	for addr := range y.regs {
		y.decode(uint16(addr))
	}
	for ch := range y.ch {
		y.updateChannelFrequency(ch)
	}
}

// writeRegister stores a register write, decodes it and applies any
// trigger side effects (key on/off, timer control, LFO reset).
func (y *ym2612) writeRegister(addr uint16, val uint8) {
	y.busyUntil = y.sampleCount + busyDuration

	part := addr >> 8
	reg := uint8(addr)
	switch {
	case reg >= 0xA4 && reg <= 0xA6:
		y.freqLatch[part*3+uint16(reg-0xA4)] = val
		return
	case part == 0 && reg >= 0xAC && reg <= 0xAE:
		y.freqLatch[6+reg-0xAC] = val
		return
	case reg >= 0xA0 && reg <= 0xA2:
		y.regs[addr+4] = y.freqLatch[part*3+uint16(reg-0xA0)]
	case part == 0 && reg >= 0xA8 && reg <= 0xAA:
		y.regs[addr+4] = y.freqLatch[6+reg-0xA8]
	}

	var ssgBefore uint8
	op := y.operatorAt(addr)
	if op != nil {
		ssgBefore = op.ssgEG
	}

	y.regs[addr] = val
	y.decode(addr)

	// SSG-EG: flipping the attack bit inverts the current output
	if op != nil && reg&0xF0 == 0x90 && (ssgBefore^op.ssgEG)&ssgAttack != 0 {
		op.ssgInverted = !op.ssgInverted
	}

	if part != 0 {
		return
	}
	switch reg {
	case 0x22:
		if !y.lfoEnable {
			y.lfoStep = 0
			y.lfoCnt = 0
		}
	case 0x27:
		y.timerA.setLoad(val&0x01 != 0)
		y.timerB.setLoad(val&0x02 != 0)
		if val&0x10 != 0 {
			y.timerA.overflow = false
		}
		if val&0x20 != 0 {
			y.timerB.overflow = false
		}
	case 0x28:
		y.writeKeyOnOff(val)
	}
}

// decode updates the cached parameters that depend on register addr.
// It has no side effects on generator state.
func (y *ym2612) decode(addr uint16) {
	reg := uint8(addr)
	switch {
	case reg < 0x20:
	case reg < 0x30:
		if addr < 0x100 {
			y.decodeGlobal(reg)
		}
	case reg < 0xA0:
		y.decodeOperator(addr)
	default:
		y.decodeChannel(addr)
	}
}

func (y *ym2612) decodeGlobal(reg uint8) {
	val := y.regs[reg]
	switch reg {
	case 0x22:
		y.lfoEnable = val&0x08 != 0
		y.lfoFreq = val & 0x07
	case 0x24, 0x25:
		y.timerA.period = uint16(y.regs[0x24])<<2 | uint16(y.regs[0x25]&0x03)
	case 0x26:
		y.timerB.period = uint16(val)
	case 0x27:
		mode := (val >> 6) & 0x03
		y.timerA.enable = val&0x04 != 0
		y.timerB.enable = val&0x08 != 0
		if mode != y.ch3Mode {
			y.ch3Mode = mode
			y.updateChannelFrequency(2)
		}
	case 0x2A:
		y.dacSample = val
	case 0x2B:
		y.dacEnable = val&0x80 != 0
	}
}

// operatorAt returns the operator addressed by an operator register, or
// nil for addresses outside $30-$9F or in the unused channel slot.
func (y *ym2612) operatorAt(addr uint16) *fmOperator {
	reg := uint8(addr)
	if reg < 0x30 || reg >= 0xA0 || reg&0x03 == 3 {
		return nil
	}
	chIdx := int(reg&0x03) + int(addr>>8)*3
	return &y.ch[chIdx].op[operatorOrder[(reg>>2)&0x03]]
}

func (y *ym2612) decodeOperator(addr uint16) {
	op := y.operatorAt(addr)
	if op == nil {
		return
	}
	val := y.regs[addr]
	reg := uint8(addr)
	switch reg & 0xF0 {
	case 0x30:
		op.dt = (val >> 4) & 0x07
		op.mul = val & 0x0F
		chIdx := int(reg&0x03) + int(addr>>8)*3
		y.updatePhaseIncrement(chIdx, operatorOrder[(reg>>2)&0x03])
	case 0x40:
		op.tl = val & 0x7F
	case 0x50:
		op.rs = (val >> 6) & 0x03
		op.ar = val & 0x1F
	case 0x60:
		op.am = val&0x80 != 0
		op.d1r = val & 0x1F
	case 0x70:
		op.d2r = val & 0x1F
	case 0x80:
		op.d1l = (val >> 4) & 0x0F
		op.rr = val & 0x0F
	case 0x90:
		op.ssgEG = 0
		if val&ssgEnable != 0 {
			op.ssgEG = val & 0x0F
		}
	}
}

func (y *ym2612) decodeChannel(addr uint16) {
	reg := uint8(addr)
	part := addr & 0x100
	if reg >= 0xA8 && reg <= 0xAE && part == 0 {
		// Channel 3 per-operator frequency
		slot := int(reg & 0x03)
		if slot == 3 {
			return
		}
		hi := y.regs[0xAC+uint16(slot)]
		y.ch3Freq[slot] = uint16(hi&0x07)<<8 | uint16(y.regs[0xA8+uint16(slot)])
		y.ch3Block[slot] = (hi >> 3) & 0x07
		if y.ch3Mode != ch3ModeNormal {
			if opIdx := ch3SlotToOp(slot); opIdx >= 0 {
				y.updatePhaseIncrement(2, opIdx)
			}
		}
		return
	}

	if reg&0x03 == 3 {
		return
	}
	chIdx := int(reg&0x03) + int(addr>>8)*3
	ch := &y.ch[chIdx]
	val := y.regs[addr]
	switch reg & 0xFC {
	case 0xA0, 0xA4:
		lo := y.regs[part|uint16(0xA0+reg&0x03)]
		hi := y.regs[part|uint16(0xA4+reg&0x03)]
		ch.fNum = uint16(hi&0x07)<<8 | uint16(lo)
		ch.block = (hi >> 3) & 0x07
		y.updateChannelFrequency(chIdx)
	case 0xB0:
		ch.decodeAlgorithm(val)
	case 0xB4:
		ch.panL = val&0x80 != 0
		ch.panR = val&0x40 != 0
		ch.ams = (val >> 4) & 0x03
		ch.pms = val & 0x07
	}
}

// writeKeyOnOff handles the Key On/Off register ($28).
// val bits 0-2: channel (0-2=Part I, 4-6=Part II)
// val bits 4-7: operator enable (bit4=S1, bit5=S2, bit6=S3, bit7=S4)
func (y *ym2612) writeKeyOnOff(val uint8) {
	chLow := int(val & 0x03)
	if chLow == 3 {
		return
	}
	chIdx := chLow
	if val&0x04 != 0 {
		chIdx += 3
	}
	ch := &y.ch[chIdx]
	for i := range ch.op {
		ch.op[i].setKey(val&(0x10<<uint(i)) != 0)
	}
}

// opFrequency returns the F-number and block driving an operator. In the
// channel 3 special modes, operators 1-3 use their own frequency registers.
func (y *ym2612) opFrequency(chIdx, opIdx int) (uint16, uint8, bool) {
	if chIdx == 2 && y.ch3Mode != ch3ModeNormal {
		if slot := ch3SlotMap(opIdx); slot >= 0 {
			return y.ch3Freq[slot], y.ch3Block[slot], true
		}
	}
	return y.ch[chIdx].fNum, y.ch[chIdx].block, false
}

// updatePhaseIncrement recomputes an operator's phase increment.
func (y *ym2612) updatePhaseIncrement(chIdx, opIdx int) {
	op := &y.ch[chIdx].op[opIdx]
	fNum, block, own := y.opFrequency(chIdx, opIdx)
	if own {
		op.keyCode = computeKeyCode(fNum, block)
	}
	op.phaseInc = computePhaseIncrement(fNum, block, op.keyCode, op.dt, op.mul)
}

// updateChannelFrequency recomputes key codes and increments for a channel.
func (y *ym2612) updateChannelFrequency(chIdx int) {
	ch := &y.ch[chIdx]
	kc := computeKeyCode(ch.fNum, ch.block)
	for i := range ch.op {
		ch.op[i].keyCode = kc
		y.updatePhaseIncrement(chIdx, i)
	}
}

// computeKeyCode computes the 5-bit key code from F-number and block.
// keyCode = [block(3), F11, (F11&(F10|F9|F8)) | (!F11&F10&F9&F8)]
func computeKeyCode(fNum uint16, block uint8) uint8 {
	f11 := (fNum >> 10) & 1
	f10 := (fNum >> 9) & 1
	f9 := (fNum >> 8) & 1
	f8 := (fNum >> 7) & 1

	bit0 := (f11 & (f10 | f9 | f8)) | ((1 ^ f11) & f10 & f9 & f8)
	return block<<2 | uint8(f11<<1) | uint8(bit0)
}

// computePhaseIncrement calculates the 20-bit phase increment for an operator.
func computePhaseIncrement(fNum uint16, block, keyCode, dt, mul uint8) uint32 {
	base := (uint32(fNum) << block) >> 1
	return detuneMultiply(base, keyCode, dt, mul)
}

// computePMPhaseIncrement computes the increment from a PM-modulated
// 12-bit F-number ((fNum << 1) + delta). Key code, detune and multiplier
// keep their unmodulated values.
func computePMPhaseIncrement(modFnum12 uint32, block, keyCode, dt, mul uint8) uint32 {
	base := (modFnum12 << block) >> 2
	return detuneMultiply(base, keyCode, dt, mul)
}

// ch3SlotMap maps operator index to ch3 special mode slot register index.
// OP1 uses $A9/$AD, OP2 $AA/$AE, OP3 $A8/$AC; OP4 follows the channel.
func ch3SlotMap(opIdx int) int {
	switch opIdx {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 0
	}
	return -1
}

// ch3SlotToOp is the inverse of ch3SlotMap.
func ch3SlotToOp(slot int) int {
	switch slot {
	case 0:
		return 2
	case 1:
		return 0
	case 2:
		return 1
	}
	return -1
}

func (y *ym2612) readRegister(addr uint16) (uint8, error) {
	return y.regs[addr], nil
}

// readStatus returns bit0 Timer A overflow, bit1 Timer B overflow and
// bit7 busy.
func (y *ym2612) readStatus() (uint8, error) {
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

// stepTimers advances Timer A and Timer B and drives CSM key-on.
func (y *ym2612) stepTimers() {
	// CSM key-off on the tick after key-on
	if y.csmKeyOn {
		y.csmKeyOff()
		y.csmKeyOn = false
	}
	if y.timerA.tick() && y.ch3Mode == ch3ModeCSM {
		y.csmKeyOnAll()
		y.csmKeyOn = true
	}
	y.timerB.tick()
}

// csmKeyOnAll triggers key-on for all 4 channel 3 operators.
// It does not set op.keyOn, which belongs to register $28.
func (y *ym2612) csmKeyOnAll() {
	ch := &y.ch[2]
	for i := range ch.op {
		ch.op[i].startAttack()
	}
}

// csmKeyOff releases channel 3 operators not held by register $28.
func (y *ym2612) csmKeyOff() {
	ch := &y.ch[2]
	for i := range ch.op {
		if !ch.op[i].keyOn {
			ch.op[i].startRelease()
		}
	}
}

func (y *ym2612) generate(buf []int32) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = y.tick()
	}
}

// tick advances the chip by one native sample and returns the stereo frame.
func (y *ym2612) tick() (int32, int32) {
	y.sampleCount++
	y.stepTimers()
	y.stepLFO()

	// The EG runs on a 3-sample sub-cycle; its 12-bit counter skips 0.
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
		_, l, r := y.evaluateChannel(c)
		left += int32(l)
		right += int32(r)
	}

	// With ladder offsets the 6-channel sum can reach +/-49,728; halving
	// keeps it inside int16.
	return clamp16(left >> 1), clamp16(right >> 1)
}

// evaluateChannel computes one sample for a channel. It returns the
// accumulated channel output and the left/right ladder outputs.
func (y *ym2612) evaluateChannel(chIdx int) (int16, int16, int16) {
	ch := &y.ch[chIdx]

	// Channel 6 is replaced by the DAC when enabled
	if chIdx == 5 && y.dacEnable {
		dacOut := (int16(y.dacSample) - 128) << 6
		return dacOut, applyLadder(dacOut, ch.panL), applyLadder(dacOut, ch.panR)
	}

	// PM modulates the F-number, then the increment is recomputed with the
	// unmodulated block, key code, detune and multiplier.
	if ch.pms != 0 && y.lfoEnable {
		for i := range ch.op {
			op := &ch.op[i]
			fNum, block, _ := y.opFrequency(chIdx, i)
			delta := opnPMDelta(y.lfoStep, ch.pms, fNum)
			modFnum12 := uint32(int32(fNum)<<1+delta) & 0xFFF
			op.stepPhase(computePMPhaseIncrement(modFnum12, block, op.keyCode, op.dt, op.mul))
		}
	} else {
		for i := range ch.op {
			ch.op[i].stepPhase(ch.op[i].phaseInc)
		}
	}

	c := ch.evaluate(y.amAttenuation(ch.ams))

	// Carriers are quantized to 9 bits and accumulated with saturation
	var acc int32
	for i := 0; i < c.n; i++ {
		acc = clampAccum(acc + int32(quantize9(c.out[i])))
	}
	out := int16(acc)
	return out, applyLadder(out, ch.panL), applyLadder(out, ch.panR)
}

// clampAccum clamps the 9-bit DAC accumulator to +8160/-8176 (+0x1FE0/-0x1FF0),
// the YM2612's internal signed 14-bit output range after 9-bit DAC quantization.
func clampAccum(v int32) int32 {
	return clampInt32(v, -0x1FF0, 0x1FE0)
}

// quantize9 applies the 9-bit DAC quantization by masking off the lower
// 5 bits of the operator output.
func quantize9(v int16) int16 {
	return v & ^int16(0x1F)
}

// applyLadder applies the YM2612 DAC ladder effect (crossover distortion).
// The resistor-ladder DAC has a gap at the zero crossing, and a channel
// whose pan is disabled still produces a residual offset of +/-128.
// Values are in 14-bit scale (9-bit reference values <<5).
func applyLadder(sample int16, panEnabled bool) int16 {
	if !panEnabled {
		if sample >= 0 {
			return 128
		}
		return -128
	}
	if sample >= 0 {
		return sample + 128
	}
	return sample - 96
}
