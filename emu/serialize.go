package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "eMFMChipSt\x00\x00"
	stateHeaderSize = 27 // magic(12) + version(2) + family(1) + clock(4) + payloadLen(4) + dataCRC(4)
)

var errStateShort = errors.New("state data truncated")

// stateWriter appends little-endian fields to a growing buffer.
type stateWriter struct {
	buf []byte
}

func (w *stateWriter) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *stateWriter) bool(v bool) { w.buf = append(w.buf, boolByte(v)) }

func (w *stateWriter) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *stateWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *stateWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *stateWriter) i16(v int16) { w.u16(uint16(v)) }

func (w *stateWriter) bytes(b []byte) { w.buf = append(w.buf, b...) }

// stateReader consumes fields written by stateWriter. Reads past the end
// record errStateShort and return zero values; callers check err once.
type stateReader struct {
	buf []byte
	off int
	err error
}

func (r *stateReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.off < n {
		r.err = errStateShort
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *stateReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *stateReader) bool() bool { return r.u8() != 0 }

func (r *stateReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *stateReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *stateReader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *stateReader) i16() int16 { return int16(r.u16()) }

// bytes copies len(dst) bytes into dst.
func (r *stateReader) bytes(dst []byte) {
	if b := r.take(len(dst)); b != nil {
		copy(dst, b)
	}
}

// version reads a component version byte and checks it against want.
func (r *stateReader) version(component string, want uint8) {
	v := r.u8()
	if r.err == nil && v != want {
		r.err = fmt.Errorf("unsupported %s state version %d", component, v)
	}
}

// payload serializes the latch and family core.
func (c *Chip) payload() []byte {
	w := &stateWriter{}
	w.u16(c.addrLatch)
	c.core.saveState(w)
	return w.buf
}

// StateSize returns the size in bytes of a save state for this chip's
// family. The size is fixed per family.
func (c *Chip) StateSize() int {
	return stateHeaderSize + len(c.payload())
}

// SaveState captures the complete mutable state of the chip at the current
// sample boundary.
func (c *Chip) SaveState() []byte {
	payload := c.payload()
	data := make([]byte, stateHeaderSize, stateHeaderSize+len(payload))

	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	data[14] = uint8(c.family)
	binary.LittleEndian.PutUint32(data[15:19], uint32(c.clock))
	binary.LittleEndian.PutUint32(data[19:23], uint32(len(payload)))
	binary.LittleEndian.PutUint32(data[23:27], crc32.ChecksumIEEE(payload))

	return append(data, payload...)
}

// LoadState replaces the chip's entire mutable state with one produced by
// SaveState. On error the chip is left unchanged.
func (c *Chip) LoadState(data []byte) error {
	clock, rate, err := c.verifyHeader(data)
	if err != nil {
		return err
	}

	fresh := c.info.newCore()
	r := &stateReader{buf: data[stateHeaderSize:]}
	latch := r.u16()
	if err := fresh.loadState(r); err != nil {
		return fmt.Errorf("emu: %s state: %v: %w", c.info.name, err, ErrInvalidState)
	}
	if r.err != nil {
		return fmt.Errorf("emu: %s state: %v: %w", c.info.name, r.err, ErrInvalidState)
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("emu: %s state has %d trailing bytes: %w", c.info.name, len(r.buf)-r.off, ErrInvalidState)
	}
	if int(latch) >= c.info.regCount {
		return fmt.Errorf("emu: %s state latch 0x%03X out of range: %w", c.info.name, latch, ErrInvalidState)
	}

	c.core = fresh
	c.addrLatch = latch
	c.clock = clock
	c.sampleRate = rate
	return nil
}

// VerifyState checks if a save state is valid for this chip without loading it.
func (c *Chip) VerifyState(data []byte) error {
	_, _, err := c.verifyHeader(data)
	return err
}

func (c *Chip) verifyHeader(data []byte) (clock, rate int, err error) {
	if len(data) < stateHeaderSize {
		return 0, 0, fmt.Errorf("emu: save state too short: %w", ErrInvalidState)
	}
	if string(data[0:12]) != stateMagic {
		return 0, 0, fmt.Errorf("emu: invalid save state magic: %w", ErrInvalidState)
	}
	if version := binary.LittleEndian.Uint16(data[12:14]); version != stateVersion {
		return 0, 0, fmt.Errorf("emu: unsupported save state version %d: %w", version, ErrInvalidState)
	}
	if f := Family(data[14]); f != c.family {
		return 0, 0, fmt.Errorf("emu: save state is for %s, not %s: %w", f, c.family, ErrInvalidState)
	}

	clock = int(int32(binary.LittleEndian.Uint32(data[15:19])))
	rate, err = sampleRateFor(c.info, clock)
	if err != nil {
		return 0, 0, fmt.Errorf("emu: save state clock %d: %w", clock, ErrInvalidState)
	}

	payloadLen := int(binary.LittleEndian.Uint32(data[19:23]))
	if want := c.StateSize() - stateHeaderSize; payloadLen != want {
		return 0, 0, fmt.Errorf("emu: save state payload is %d bytes, want %d: %w", payloadLen, want, ErrInvalidState)
	}
	if len(data) != stateHeaderSize+payloadLen {
		return 0, 0, fmt.Errorf("emu: save state is %d bytes, want %d: %w", len(data), stateHeaderSize+payloadLen, ErrInvalidState)
	}

	expectedCRC := binary.LittleEndian.Uint32(data[23:27])
	if crc32.ChecksumIEEE(data[stateHeaderSize:]) != expectedCRC {
		return 0, 0, fmt.Errorf("emu: save state data is corrupted: %w", ErrInvalidState)
	}
	return clock, rate, nil
}
