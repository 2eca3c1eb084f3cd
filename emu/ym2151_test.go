package emu

import "testing"

func newTestYM2151(t *testing.T) (*Chip, *ym2151) {
	t.Helper()
	c := newTestChip(t, YM2151, 3579545)
	return c, c.core.(*ym2151)
}

func TestYM2151_InitialState(t *testing.T) {
	c, y := newTestYM2151(t)
	for ch := range y.ch {
		if !y.ch[ch].panL || !y.ch[ch].panR {
			t.Errorf("ch%d: expected L+R enabled", ch)
		}
		if v, _ := c.ReadRegister(0x20 + uint16(ch)); v != 0xC0 {
			t.Errorf("register 0x%02X: got 0x%02X, want 0xC0", 0x20+ch, v)
		}
	}
	if y.noiseLFSR != 1 {
		t.Errorf("noise LFSR: got 0x%05X, want 1", y.noiseLFSR)
	}
}

func TestYM2151_AMDAndPMDShareRegister(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x19, 0x40)
	c.Write(0x19, 0x85)

	if y.amd != 0x40 || y.pmd != 0x05 {
		t.Errorf("AMD/PMD: got 0x%02X/0x%02X, want 0x40/0x05", y.amd, y.pmd)
	}
	if v, _ := c.ReadRegister(0x19); v != 0x40 {
		t.Errorf("register 0x19: got 0x%02X, want 0x40", v)
	}
	if v, _ := c.ReadRegister(0x1A); v != 0x85 {
		t.Errorf("register 0x1A: got 0x%02X, want 0x85", v)
	}
}

func TestYM2151_DirectPMDWriteIgnored(t *testing.T) {
	plain := newTestChip(t, YM2151, 3579545)
	direct := newTestChip(t, YM2151, 3579545)
	for _, c := range []*Chip{plain, direct} {
		applyWrites(t, c, toneWrites[YM2151])
		applyWrites(t, c, []regWrite{{0x18, 0xC0}, {0x38, 0x70}})
	}
	direct.Write(0x1A, 0x7F)

	if pmd := direct.core.(*ym2151).pmd; pmd != 0 {
		t.Errorf("PMD: got 0x%02X, want 0", pmd)
	}
	if v, _ := direct.ReadRegister(0x1A); v != 0 {
		t.Errorf("register 0x1A: got 0x%02X, want 0", v)
	}
	a := generate(t, plain, 4000)
	b := generate(t, direct, 4000)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d: %d vs %d after a write to 0x1A", i, a[i], b[i])
		}
	}
}

func TestYM2151_OperatorSlotMapping(t *testing.T) {
	c, y := newTestYM2151(t)

	// Slots are M1, M2, C1, C2 in eight-register blocks
	tests := []struct {
		addr uint16
		op   int
	}{
		{0x43, 0},
		{0x4B, 2},
		{0x53, 1},
		{0x5B, 3},
	}
	for i, tt := range tests {
		c.Write(tt.addr, uint8(0x10*(i+1)|(i+2)))
		op := &y.ch[3].op[tt.op]
		if op.dt != uint8(i+1) || op.mul != uint8(i+2) {
			t.Errorf("0x%02X -> op%d: dt=%d mul=%d", tt.addr, tt.op, op.dt, op.mul)
		}
	}
}

func TestYM2151_OperatorRegisters(t *testing.T) {
	c, y := newTestYM2151(t)
	writes := []regWrite{
		{0x60, 0x7F}, // TL
		{0x80, 0xDF}, // KS=3, AR=31
		{0xA0, 0x8A}, // AMS-EN, D1R=10
		{0xC0, 0xDF}, // DT2=3, D2R=31
		{0xE0, 0xEF}, // D1L=14, RR=15
	}
	applyWrites(t, c, writes)
	op := &y.ch[0].op[0]
	if op.tl != 127 || op.rs != 3 || op.ar != 31 {
		t.Errorf("TL/KS/AR: %d/%d/%d", op.tl, op.rs, op.ar)
	}
	if !op.am || op.d1r != 10 {
		t.Errorf("AM/D1R: %v/%d", op.am, op.d1r)
	}
	if op.dt2 != 3 || op.d2r != 31 {
		t.Errorf("DT2/D2R: %d/%d", op.dt2, op.d2r)
	}
	if op.d1l != 14 || op.rr != 15 {
		t.Errorf("D1L/RR: %d/%d", op.d1l, op.rr)
	}
}

func TestYM2151_ChannelRegisters(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x22, 0x7D) // L only, FB=7, ALG=5
	c.Write(0x3A, 0x52) // PMS=5, AMS=2

	ch := &y.ch[2]
	if !ch.panL || ch.panR {
		t.Errorf("pan: L=%v R=%v", ch.panL, ch.panR)
	}
	if ch.feedback != 7 || ch.algorithm != 5 {
		t.Errorf("FB/ALG: %d/%d", ch.feedback, ch.algorithm)
	}
	if ch.pms != 5 || ch.ams != 2 {
		t.Errorf("PMS/AMS: %d/%d", ch.pms, ch.ams)
	}
}

func TestYM2151_KeyOnMapping(t *testing.T) {
	c, y := newTestYM2151(t)

	c.Write(0x08, 0x28|5) // M1 and M2
	want := [4]bool{true, false, true, false}
	for i := range want {
		if y.ch[5].op[i].keyOn != want[i] {
			t.Errorf("op%d: keyOn=%v, want %v", i, y.ch[5].op[i].keyOn, want[i])
		}
	}

	c.Write(0x08, 0x78|5)
	for i := range want {
		if !y.ch[5].op[i].keyOn {
			t.Errorf("op%d should be keyed", i)
		}
	}

	c.Write(0x08, 5)
	for i := range want {
		if y.ch[5].op[i].egState != egRelease {
			t.Errorf("op%d should release", i)
		}
	}
	if y.ch[4].op[0].keyOn || y.ch[6].op[0].keyOn {
		t.Error("key-on reached the wrong channel")
	}
}

func TestYM2151_KeyCode(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x2A, 0x4A)
	c.Write(0x32, 0x84)
	if y.ch[2].kc != 0x4A || y.ch[2].kf != 0x21 {
		t.Errorf("KC/KF: 0x%02X/0x%02X", y.ch[2].kc, y.ch[2].kf)
	}
	if y.ch[2].keyCode != 0x12 {
		t.Errorf("rate key code: got 0x%02X, want 0x12", y.ch[2].keyCode)
	}
	if y.ch[2].op[0].keyCode != 0x12 {
		t.Errorf("operator key code: got 0x%02X", y.ch[2].op[0].keyCode)
	}
}

func TestYM2151_Semitone(t *testing.T) {
	tests := []struct {
		note uint8
		want int
	}{
		{0, 0}, {2, 2}, {3, 3}, {4, 3}, {6, 5},
		{7, 6}, {8, 6}, {10, 8}, {14, 11}, {15, 11},
	}
	for _, tt := range tests {
		if got := opmSemitone(tt.note); got != tt.want {
			t.Errorf("opmSemitone(%d) = %d, want %d", tt.note, got, tt.want)
		}
	}
}

func TestYM2151_PhaseStepOctaves(t *testing.T) {
	a4 := opmPhaseStep(0x4A, 0, 0)
	a5 := opmPhaseStep(0x5A, 0, 0)
	if d := int(a5) - 2*int(a4); d < -1 || d > 1 {
		t.Errorf("octave up should double the step: %d vs %d", a4, a5)
	}
	if got := opmPhaseStep(0x4A, 0, 768); got != a5 {
		t.Errorf("offset of 768 should move one octave: got %d, want %d", got, a5)
	}
	if got := opmPhaseStep(0x5A, 0, -768); got != a4 {
		t.Errorf("offset of -768 should move down one octave: got %d, want %d", got, a4)
	}
	if got := opmPhaseStep(0x7E, 63, 10000); got != opmPhaseTable[767] {
		t.Errorf("high saturation: got %d", got)
	}
	if got := opmPhaseStep(0x00, 0, -10000); got != opmPhaseTable[0]>>7 {
		t.Errorf("low saturation: got %d", got)
	}
}

func TestYM2151_DT2RaisesPitch(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x28, 0x4A)
	c.Write(0x40, 0x01)
	base := y.ch[0].op[0].phaseInc
	c.Write(0xC0, 0x40)
	if y.ch[0].op[0].phaseInc <= base {
		t.Errorf("DT2=1 should raise the increment: %d vs %d", y.ch[0].op[0].phaseInc, base)
	}
}

// --- LFO ---

func TestYM2151_LFOWaves(t *testing.T) {
	tests := []struct {
		wave, phase uint8
		am          uint8
		pm          int8
	}{
		{opmWaveSaw, 0, 255, 0},
		{opmWaveSaw, 200, 55, -56},
		{opmWaveSquare, 0, 255, 127},
		{opmWaveSquare, 128, 0, -128},
		{opmWaveTriangle, 0, 255, 0},
		{opmWaveTriangle, 64, 127, 127},
		{opmWaveTriangle, 128, 0, -1},
		{opmWaveTriangle, 192, 128, -128},
		{opmWaveTriangle, 255, 254, -2},
		{opmWaveNoise, 17, 0x5A, 0x5A},
	}
	for _, tt := range tests {
		am, pm := opmLFOWave(tt.wave, tt.phase, 0x5A)
		if am != tt.am || pm != tt.pm {
			t.Errorf("wave %d phase %d: got %d/%d, want %d/%d", tt.wave, tt.phase, am, pm, tt.am, tt.pm)
		}
	}
}

func TestYM2151_LFORate(t *testing.T) {
	for _, rate := range []uint8{0x00, 0x0F, 0x80, 0xFF} {
		c, y := newTestYM2151(t)
		c.Write(0x18, rate)
		y.stepLFO()
		want := (16 | uint32(rate&0x0F)) << (rate >> 4)
		if y.lfoCounter != want {
			t.Errorf("LFRQ 0x%02X: counter %d, want %d", rate, y.lfoCounter, want)
		}
	}
}

func TestYM2151_LFOHold(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x18, 0xFF)
	for i := 0; i < 10; i++ {
		y.stepLFO()
	}
	c.Write(0x01, 0x02)
	if y.lfoCounter != 0 {
		t.Errorf("hold should reset the LFO, counter %d", y.lfoCounter)
	}
	y.stepLFO()
	if y.lfoCounter != 0 {
		t.Error("held LFO advanced")
	}
}

func TestYM2151_LFODepth(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x01, 0x02) // hold at phase 0
	c.Write(0x1B, opmWaveSquare)
	c.Write(0x19, 0x7F)
	c.Write(0x19, 0xFF)
	y.stepLFO()

	if y.lfoAM != 253 {
		t.Errorf("AM: got %d, want 253", y.lfoAM)
	}
	if y.lfoPM != 126 {
		t.Errorf("PM: got %d, want 126", y.lfoPM)
	}
	want := [4]uint16{0, 253, 506, 1012}
	for ams, w := range want {
		if got := y.amAttenuation(uint8(ams)); got != w {
			t.Errorf("AMS %d: got %d, want %d", ams, got, w)
		}
	}
}

func TestYM2151_PMChangesOutput(t *testing.T) {
	plain := newTestChip(t, YM2151, 3579545)
	applyWrites(t, plain, toneWrites[YM2151])
	vib := newTestChip(t, YM2151, 3579545)
	applyWrites(t, vib, toneWrites[YM2151])
	applyWrites(t, vib, []regWrite{{0x18, 0xC0}, {0x19, 0xFF}, {0x38, 0x70}})

	a := generate(t, plain, 4000)
	b := generate(t, vib, 4000)
	for i := range a {
		if a[i] != b[i] {
			return
		}
	}
	t.Error("PMS 7 at full depth should change the output")
}

// --- Noise ---

func TestYM2151_NoisePeriod(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x0F, 0x80) // NFRQ 0: 32 samples per step
	for i := 0; i < 31; i++ {
		y.stepNoise()
	}
	if y.noiseLFSR != 1 {
		t.Fatal("noise stepped early")
	}
	y.stepNoise()
	if y.noiseLFSR != 0x10000 {
		t.Errorf("LFSR after one step: got 0x%05X, want 0x10000", y.noiseLFSR)
	}
}

func TestYM2151_NoiseReplacesC2(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x0F, 0x9F)
	op := &y.ch[7].op[3]
	op.egState = egDecay
	op.egLevel = 0

	y.noiseLFSR = 1
	if out := y.evaluateChannel(7); out != -8168 {
		t.Errorf("LFSR bit 1: got %d, want -8168", out)
	}
	y.noiseLFSR = 2
	if out := y.evaluateChannel(7); out != 8168 {
		t.Errorf("LFSR bit 0: got %d, want 8168", out)
	}

	// Other channels keep their operator output
	if out := y.evaluateChannel(6); out != 0 {
		t.Errorf("silent channel 7: got %d", out)
	}
}

func TestYM2151_NoiseInGenerate(t *testing.T) {
	c, _ := newTestYM2151(t)
	applyWrites(t, c, []regWrite{
		{0x0F, 0x9F},
		{0x27, 0xC7},
		{0xFF, 0x0F}, // C2 RR
		{0x9F, 0x1F}, // C2 AR
		{0x08, 0x47},
	})
	out := generate(t, c, 2000)
	var pos, neg int
	for i := 0; i < len(out); i += 2 {
		switch {
		case out[i] > 1000:
			pos++
		case out[i] < -1000:
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		t.Errorf("noise should swing both ways: %d positive, %d negative", pos, neg)
	}
}

// --- Timers and status ---

func TestYM2151_TimerA(t *testing.T) {
	c, _ := newTestYM2151(t)
	c.Write(0x10, 0xFA) // period 1000
	c.Write(0x11, 0x00)
	c.Write(0x14, 0x05)

	generate(t, c, 23)
	if status, _ := c.ReadStatus(); status&0x01 != 0 {
		t.Error("Timer A overflowed early")
	}
	generate(t, c, 1)
	if status, _ := c.ReadStatus(); status&0x01 == 0 {
		t.Error("Timer A should overflow after 24 samples")
	}
	c.Write(0x14, 0x15)
	if status, _ := c.ReadStatus(); status&0x01 != 0 {
		t.Error("reset bit should clear the Timer A flag")
	}
}

func TestYM2151_TimerB(t *testing.T) {
	c, _ := newTestYM2151(t)
	c.Write(0x12, 0xFE) // two steps of 16 samples
	c.Write(0x14, 0x0A)

	generate(t, c, 31)
	if status, _ := c.ReadStatus(); status&0x02 != 0 {
		t.Error("Timer B overflowed early")
	}
	generate(t, c, 1)
	if status, _ := c.ReadStatus(); status&0x02 == 0 {
		t.Error("Timer B should overflow after 32 samples")
	}
}

func TestYM2151_StatusBusy(t *testing.T) {
	c, _ := newTestYM2151(t)
	c.Write(0x20, 0xC7)
	if status, _ := c.ReadStatus(); status&0x80 == 0 {
		t.Error("write should set busy")
	}
	generate(t, c, 2)
	if status, _ := c.ReadStatus(); status&0x80 != 0 {
		t.Error("busy should clear after two samples")
	}
}

func TestYM2151_CSMKeysAllChannels(t *testing.T) {
	c, y := newTestYM2151(t)
	c.Write(0x10, 0xFF)
	c.Write(0x11, 0x03)
	c.Write(0x14, 0x81)

	y.stepTimers()
	for ch := range y.ch {
		for i := range y.ch[ch].op {
			if y.ch[ch].op[i].egState != egAttack {
				t.Fatalf("ch%d op%d: expected CSM attack", ch, i)
			}
		}
	}
	c.Write(0x14, 0x80) // stop Timer A
	y.stepTimers()
	if y.ch[0].op[0].egState != egRelease {
		t.Error("CSM key-off expected on the following sample")
	}
}
