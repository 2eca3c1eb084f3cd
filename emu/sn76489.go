package emu

import (
	"fmt"
	"math"

	"github.com/user-none/go-chip-sn76489"
)

const (
	// psgClocksPerSample is the SN76489 input divider: one tone/noise
	// counter step, and one output sample, per 16 input clocks.
	psgClocksPerSample = 16

	// psgBatch is the number of samples rendered per library call.
	psgBatch = 1024

	// psgGain scales the library's 0-1 channel amplitudes so four channels
	// at full volume peak at 32764.
	psgGain = 8191

	psgStateVersion = 1
)

// psg wraps the Sega-variant SN76489 from go-chip-sn76489. The library is
// run with a nominal 16 Hz clock and 1 Hz rate so that exactly one sample
// is produced per 16 input clocks, independent of the real chip clock.
type psg struct {
	chip *sn76489.SN76489
}

func newPSG() *psg {
	p := &psg{}
	p.reset()
	return p
}

func newPSGChip() *sn76489.SN76489 {
	chip := sn76489.New(psgClocksPerSample, 1, psgBatch, sn76489.Sega)
	chip.SetGain(psgGain)
	return chip
}

func (p *psg) reset() {
	p.chip = newPSGChip()
}

// writeRegister sends a byte to the data port. Latch/data decoding of the
// byte stream happens inside the chip.
func (p *psg) writeRegister(_ uint16, val uint8) {
	p.chip.Write(val)
}

func (p *psg) readRegister(uint16) (uint8, error) {
	return 0, fmt.Errorf("emu: SN76489 registers are write-only: %w", ErrUnsupported)
}

func (p *psg) readStatus() (uint8, error) {
	return 0, fmt.Errorf("emu: SN76489 has no status register: %w", ErrUnsupported)
}

func (p *psg) generate(buf []int32) {
	for off := 0; off < len(buf); {
		k := min(len(buf)-off, psgBatch)
		p.chip.ResetBuffer()
		p.chip.Run(k * psgClocksPerSample)
		out, n := p.chip.GetBuffer()
		for i := 0; i < n; i++ {
			buf[off+i] = int32(math.Round(float64(out[i])))
		}
		off += k
	}
}

func (p *psg) saveState(w *stateWriter) {
	w.u8(psgStateVersion)
	data := make([]byte, sn76489.SerializeSize)
	// The buffer is sized by the library, so Serialize cannot fail.
	_ = p.chip.Serialize(data)
	w.bytes(data)
}

func (p *psg) loadState(r *stateReader) error {
	r.version("SN76489", psgStateVersion)
	data := make([]byte, sn76489.SerializeSize)
	r.bytes(data)
	if r.err != nil {
		return r.err
	}
	chip := newPSGChip()
	if err := chip.Deserialize(data); err != nil {
		return err
	}
	p.chip = chip
	return nil
}
