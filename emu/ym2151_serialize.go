package emu

const ym2151StateVersion = 1

func (y *ym2151) saveState(w *stateWriter) {
	w.u8(ym2151StateVersion)
	w.bytes(y.regs)

	for c := range y.ch {
		y.ch[c].saveState(w)
	}

	y.timerA.saveState(w)
	y.timerB.saveState(w)
	w.bool(y.csmKeyOn)

	w.u16(y.egCounter)
	w.u8(y.egClock)
	w.u32(y.lfoCounter)
	w.u8(y.lfoNoise)
	w.u32(y.noiseLFSR)
	w.u8(y.noiseCount)

	w.u64(y.sampleCount)
	w.u64(y.busyUntil)
}

func (y *ym2151) loadState(r *stateReader) error {
	r.version("YM2151", ym2151StateVersion)
	r.bytes(y.regs)

	for c := range y.ch {
		y.ch[c].loadState(r)
	}

	y.timerA.loadState(r)
	y.timerB.loadState(r)
	y.csmKeyOn = r.bool()

	y.egCounter = r.u16() & 0xFFF
	y.egClock = r.u8() % 3
	y.lfoCounter = r.u32() & 0x3FFFFFFF
	y.lfoNoise = r.u8()
	y.noiseLFSR = r.u32() & 0x1FFFF
	y.noiseCount = r.u8()

	y.sampleCount = r.u64()
	y.busyUntil = r.u64()
	if r.err != nil {
		return r.err
	}

	y.refresh()
	return nil
}
