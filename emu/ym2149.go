package emu

import (
	"fmt"
	"math"
)

// ssgEnvSegments describes each of the 16 envelope shapes as four ramps
// (start, end), 1 = maximum. Ramps after the fourth repeat the last two.
var ssgEnvSegments = [16][8]uint8{
	{1, 0, 0, 0, 0, 0, 0, 0}, // 00xx: decay, hold low
	{1, 0, 0, 0, 0, 0, 0, 0},
	{1, 0, 0, 0, 0, 0, 0, 0},
	{1, 0, 0, 0, 0, 0, 0, 0},
	{0, 1, 0, 0, 0, 0, 0, 0}, // 01xx: attack, hold low
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 0, 0, 0, 0, 0, 0},
	{1, 0, 1, 0, 1, 0, 1, 0}, // 1000: repeated decay
	{1, 0, 0, 0, 0, 0, 0, 0}, // 1001: decay, hold low
	{1, 0, 0, 1, 1, 0, 0, 1}, // 1010: decay/attack triangle
	{1, 0, 1, 1, 1, 1, 1, 1}, // 1011: decay, hold high
	{0, 1, 0, 1, 0, 1, 0, 1}, // 1100: repeated attack
	{0, 1, 1, 1, 1, 1, 1, 1}, // 1101: attack, hold high
	{0, 1, 1, 0, 0, 1, 1, 0}, // 1110: attack/decay triangle
	{0, 1, 0, 0, 0, 0, 0, 0}, // 1111: attack, hold low
}

// ssgEnvLevels holds the 5-bit envelope level for each shape, ramp and step.
var ssgEnvLevels [16][4][32]uint8

// ssgAmplitude maps a 5-bit level to output amplitude: 1.5 dB per step,
// level 0 silent.
var ssgAmplitude [32]int32

func init() {
	for shape := range ssgEnvSegments {
		seg := ssgEnvSegments[shape]
		for ramp := 0; ramp < 4; ramp++ {
			a := int(seg[ramp*2]) * 31
			d := int(seg[ramp*2+1]) - int(seg[ramp*2])
			for step := 0; step < 32; step++ {
				ssgEnvLevels[shape][ramp][step] = uint8(a + d*step)
			}
		}
	}
	for v := 1; v < 32; v++ {
		ssgAmplitude[v] = int32(math.Round(32767 * math.Pow(10, float64(v-31)*1.5/20)))
	}
}

// ym2149 implements the Yamaha YM2149 (SSG): three square-wave tone
// channels, a shared noise generator and a 32-step envelope. Each channel
// is a separate output.
type ym2149 struct {
	regs registerFile

	// Decoded registers
	tonePeriod  [3]uint16
	noisePeriod uint8
	mixer       uint8
	volume      [3]uint8 // 5-bit level (0 silent), ignored with useEnv
	useEnv      [3]bool
	envPeriod   uint32
	envShape    uint8

	// Generator state
	toneCount  [3]uint16
	toneOut    [3]bool
	noiseCount uint8
	noiseTick  bool   // Noise prescaler toggle; the LFSR steps on its rising edge
	lfsr       uint32 // 17-bit noise shift register
	envCount   uint32
	envStep    uint8 // 0-31 within the current ramp
	envRamp    uint8 // 0-3, ramps 2 and 3 repeat
}

func newYM2149() *ym2149 {
	s := &ym2149{regs: newRegisterFile(0x10)}
	s.reset()
	return s
}

func (s *ym2149) reset() {
	regs := s.regs
	*s = ym2149{regs: regs, lfsr: 1}
	s.regs.clear()
	s.refresh()
}

func (s *ym2149) refresh() {
	for addr := range s.regs {
		s.decode(uint16(addr))
	}
}

func (s *ym2149) writeRegister(addr uint16, val uint8) {
	s.regs[addr] = val
	s.decode(addr)
	if addr == 13 {
		// Writing the shape restarts the envelope
		s.envCount = 0
		s.envStep = 0
		s.envRamp = 0
	}
}

func (s *ym2149) decode(addr uint16) {
	val := s.regs[addr]
	switch addr {
	case 0, 1, 2, 3, 4, 5:
		ch := addr / 2
		s.tonePeriod[ch] = uint16(s.regs[ch*2+1]&0x0F)<<8 | uint16(s.regs[ch*2])
	case 6:
		s.noisePeriod = val & 0x1F
	case 7:
		s.mixer = val
	case 8, 9, 10:
		ch := addr - 8
		s.useEnv[ch] = val&0x10 != 0
		s.volume[ch] = 0
		if v := val & 0x0F; v != 0 {
			s.volume[ch] = v*2 + 1
		}
	case 11, 12:
		s.envPeriod = uint32(s.regs[12])<<8 | uint32(s.regs[11])
	case 13:
		s.envShape = val & 0x0F
	}
}

func (s *ym2149) readRegister(addr uint16) (uint8, error) {
	return s.regs[addr], nil
}

func (s *ym2149) readStatus() (uint8, error) {
	return 0, fmt.Errorf("emu: YM2149 has no status register: %w", ErrUnsupported)
}

func (s *ym2149) generate(buf []int32) {
	for i := 0; i+2 < len(buf); i += 3 {
		s.tick()
		for ch := 0; ch < 3; ch++ {
			buf[i+ch] = s.channelOutput(ch)
		}
	}
}

// tick advances the tone, noise and envelope counters by one sample.
// A period of 0 behaves as 1.
func (s *ym2149) tick() {
	for ch := range s.toneCount {
		period := max(s.tonePeriod[ch], 1)
		s.toneCount[ch]++
		if s.toneCount[ch] >= period {
			s.toneCount[ch] = 0
			s.toneOut[ch] = !s.toneOut[ch]
		}
	}

	s.noiseCount++
	if s.noiseCount >= max(s.noisePeriod, 1) {
		s.noiseCount = 0
		s.noiseTick = !s.noiseTick
		if s.noiseTick {
			bit := (s.lfsr ^ (s.lfsr >> 3)) & 1
			s.lfsr = (s.lfsr >> 1) | (bit << 16)
		}
	}

	s.envCount++
	if s.envCount >= max(s.envPeriod, 1) {
		s.envCount = 0
		s.envStep++
		if s.envStep == 32 {
			s.envStep = 0
			s.envRamp++
			if s.envRamp == 4 {
				s.envRamp = 2
			}
		}
	}
}

func (s *ym2149) envLevel() uint8 {
	return ssgEnvLevels[s.envShape][s.envRamp][s.envStep]
}

// channelOutput mixes tone and noise for a channel: a disabled source
// counts as high, and the channel sounds while both are high.
func (s *ym2149) channelOutput(ch int) int32 {
	tone := s.toneOut[ch] || s.mixer&(1<<ch) != 0
	noise := s.lfsr&1 != 0 || s.mixer&(8<<ch) != 0
	if !tone || !noise {
		return 0
	}
	level := s.volume[ch]
	if s.useEnv[ch] {
		level = s.envLevel()
	}
	return ssgAmplitude[level]
}
