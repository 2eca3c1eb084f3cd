package emu

// LFO waveforms (register $1B bits 1-0)
const (
	opmWaveSaw = iota
	opmWaveSquare
	opmWaveTriangle
	opmWaveNoise
)

// stepLFO advances the LFO phase and computes this sample's depth-scaled
// AM and PM outputs. The accumulator gains (16|LFRQ&15) << (LFRQ>>4) per
// sample; its top 8 of 30 bits are the waveform phase.
func (y *ym2151) stepLFO() {
	if y.lfoHold {
		y.lfoCounter = 0
	} else {
		prev := y.lfoCounter >> 22
		y.lfoCounter = (y.lfoCounter + (16|uint32(y.lfoRate&0x0F))<<(y.lfoRate>>4)) & 0x3FFFFFFF
		if y.lfoCounter>>22 != prev {
			y.lfoNoise = uint8(y.noiseLFSR)
		}
	}

	phase := uint8(y.lfoCounter >> 22)
	am, pm := opmLFOWave(y.lfoWave, phase, y.lfoNoise)
	y.lfoAM = uint16(am) * uint16(y.amd) >> 7
	y.lfoPM = int32(pm) * int32(y.pmd) >> 7
}

// opmLFOWave returns the unsigned AM value (0-255) and signed PM value
// (-128..127) of a waveform at an 8-bit phase.
func opmLFOWave(wave, phase, noise uint8) (uint8, int8) {
	switch wave {
	case opmWaveSaw:
		return 255 - phase, int8(phase)
	case opmWaveSquare:
		if phase < 128 {
			return 255, 127
		}
		return 0, -128
	case opmWaveTriangle:
		var am uint8
		if phase < 128 {
			am = 255 - 2*phase
		} else {
			am = 2 * (phase - 128)
		}
		var pm int32
		switch {
		case phase < 64:
			pm = 2 * int32(phase)
		case phase < 192:
			pm = 255 - 2*int32(phase)
		default:
			pm = 2*int32(phase) - 512
		}
		return am, int8(pm)
	}
	return noise, int8(noise)
}

// amAttenuation returns the AM attenuation for a channel's AMS setting.
// AMS 1-3 scale the LFO output to 23.9, 47.8 and 95.6 dB at full depth.
func (y *ym2151) amAttenuation(ams uint8) uint16 {
	if ams == 0 {
		return 0
	}
	return y.lfoAM << (ams - 1)
}
