package emu

const ym3812StateVersion = 1

func (y *ym3812) saveState(w *stateWriter) {
	w.u8(ym3812StateVersion)
	w.bytes(y.regs)
	for c := range y.ch {
		y.ch[c].op[0].saveState(w)
		y.ch[c].op[1].saveState(w)
	}
	y.timer1.saveState(w)
	y.timer2.saveState(w)
	w.bool(y.csmKeyOn)
	w.u16(y.egCounter)
	w.u16(y.tremCount)
	w.u16(y.vibCount)
	w.u32(y.noise)
	w.u64(y.sampleCount)
}

func (y *ym3812) loadState(r *stateReader) error {
	r.version("YM3812", ym3812StateVersion)
	r.bytes(y.regs)
	for c := range y.ch {
		y.ch[c].op[0].loadState(r)
		y.ch[c].op[1].loadState(r)
	}
	y.timer1.loadState(r)
	y.timer2.loadState(r)
	y.csmKeyOn = r.bool()
	y.egCounter = r.u16() & 0xFFF
	y.tremCount = r.u16() % oplTremPeriod
	y.vibCount = r.u16() % oplVibPeriod
	y.noise = r.u32() & 0x7FFFFF
	y.sampleCount = r.u64()
	if r.err != nil {
		return r.err
	}
	y.refresh()
	return nil
}
