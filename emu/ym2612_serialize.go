package emu

const ym2612StateVersion = 1

// saveState writes the register file, the frequency latch and the
// generator state. Decoded parameters are rebuilt from the registers on
// load and are not stored.
func (y *ym2612) saveState(w *stateWriter) {
	w.u8(ym2612StateVersion)
	w.bytes(y.regs)
	w.bytes(y.freqLatch[:])

	for c := range y.ch {
		y.ch[c].saveState(w)
	}

	y.timerA.saveState(w)
	y.timerB.saveState(w)
	w.bool(y.csmKeyOn)

	w.u16(y.egCounter)
	w.u8(y.egClock)
	w.u16(y.lfoCnt)
	w.u8(y.lfoStep)
	w.u8(y.lfoAMOut)

	w.u64(y.sampleCount)
	w.u64(y.busyUntil)
}

func (y *ym2612) loadState(r *stateReader) error {
	r.version("YM2612", ym2612StateVersion)
	r.bytes(y.regs)
	r.bytes(y.freqLatch[:])

	for c := range y.ch {
		y.ch[c].loadState(r)
	}

	y.timerA.loadState(r)
	y.timerB.loadState(r)
	y.csmKeyOn = r.bool()

	y.egCounter = r.u16() & 0xFFF
	y.egClock = r.u8() % 3
	y.lfoCnt = r.u16()
	y.lfoStep = r.u8() & 0x7F
	y.lfoAMOut = r.u8() & 0x7F

	y.sampleCount = r.u64()
	y.busyUntil = r.u64()
	if r.err != nil {
		return r.err
	}

	y.refresh()
	return nil
}
