package emu

// registerFile is the raw register space of a chip: one byte per address,
// last write wins. Decoded parameters are derived from it, so a register
// file plus the generator counters is the complete chip state.
type registerFile []uint8

func newRegisterFile(size int) registerFile {
	return make(registerFile, size)
}

func (r registerFile) clear() {
	for i := range r {
		r[i] = 0
	}
}
