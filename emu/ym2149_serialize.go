package emu

const ym2149StateVersion = 1

func (s *ym2149) saveState(w *stateWriter) {
	w.u8(ym2149StateVersion)
	w.bytes(s.regs)
	for ch := range s.toneCount {
		w.u16(s.toneCount[ch])
		w.bool(s.toneOut[ch])
	}
	w.u8(s.noiseCount)
	w.bool(s.noiseTick)
	w.u32(s.lfsr)
	w.u32(s.envCount)
	w.u8(s.envStep)
	w.u8(s.envRamp)
}

func (s *ym2149) loadState(r *stateReader) error {
	r.version("YM2149", ym2149StateVersion)
	r.bytes(s.regs)
	for ch := range s.toneCount {
		s.toneCount[ch] = r.u16()
		s.toneOut[ch] = r.bool()
	}
	s.noiseCount = r.u8()
	s.noiseTick = r.bool()
	s.lfsr = r.u32() & 0x1FFFF
	s.envCount = r.u32()
	s.envStep = r.u8() & 0x1F
	s.envRamp = r.u8() & 0x03
	if r.err != nil {
		return r.err
	}
	s.refresh()
	return nil
}
