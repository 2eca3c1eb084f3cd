package emu

import (
	"fmt"
	"math"
)

// core is the per-family engine behind a Chip. Register writes arrive
// already range-checked; generate is called with a buffer whose length is a
// multiple of the family's output count and must fill it frame by frame.
type core interface {
	reset()
	writeRegister(addr uint16, data uint8)
	readRegister(addr uint16) (uint8, error)
	readStatus() (uint8, error)
	generate(buf []int32)
	saveState(w *stateWriter)
	loadState(r *stateReader) error
}

// Chip is one emulated sound chip. It is not safe for concurrent use; the
// caller serializes writes, generation and state operations. Separate Chips
// share no mutable state.
type Chip struct {
	family     Family
	info       familyInfo
	clock      int
	sampleRate int
	addrLatch  uint16
	core       core
}

// New creates a chip of the given family fed by clock Hz. The native sample
// rate is clock divided by the family's fixed divider; a clock that yields
// a zero sample rate is rejected.
func New(family Family, clock int) (*Chip, error) {
	info, ok := families[family]
	if !ok {
		return nil, fmt.Errorf("emu: unknown chip family %d: %w", uint8(family), ErrInvalidArgument)
	}
	rate, err := sampleRateFor(info, clock)
	if err != nil {
		return nil, err
	}
	return &Chip{
		family:     family,
		info:       info,
		clock:      clock,
		sampleRate: rate,
		core:       info.newCore(),
	}, nil
}

func sampleRateFor(info familyInfo, clock int) (int, error) {
	if clock <= 0 {
		return 0, fmt.Errorf("emu: clock %d Hz must be positive: %w", clock, ErrInvalidArgument)
	}
	// Save states carry the clock as a signed 32-bit field.
	if clock > math.MaxInt32 {
		return 0, fmt.Errorf("emu: clock %d Hz too large: %w", clock, ErrInvalidArgument)
	}
	rate := clock / info.divider
	if rate <= 0 {
		return 0, fmt.Errorf("emu: clock %d Hz below %s divider %d: %w", clock, info.name, info.divider, ErrInvalidArgument)
	}
	return rate, nil
}

// Family returns the emulated chip family.
func (c *Chip) Family() Family { return c.family }

// Clock returns the configured input clock in Hz.
func (c *Chip) Clock() int { return c.clock }

// SampleRate returns the native output rate in Hz.
func (c *Chip) SampleRate() int { return c.sampleRate }

// Outputs returns the number of int32 values in each sample frame.
func (c *Chip) Outputs() int { return c.info.outputs }

func (c *Chip) checkAddress(addr uint16) error {
	if int(addr) >= c.info.regCount {
		return fmt.Errorf("emu: %s register 0x%03X out of range: %w", c.info.name, addr, ErrInvalidArgument)
	}
	return nil
}

// Write stores data into register addr. The write is visible to the next
// generated sample. Addresses outside the family's register space are
// rejected; unmapped addresses inside it are stored and otherwise ignored.
func (c *Chip) Write(addr uint16, data uint8) error {
	if err := c.checkAddress(addr); err != nil {
		return err
	}
	c.core.writeRegister(addr, data)
	return nil
}

// WriteAddress latches addr for a following WriteData. Families without an
// address latch (SN76489) return ErrUnsupported.
func (c *Chip) WriteAddress(addr uint16) error {
	if !c.info.latch {
		return fmt.Errorf("emu: %s has no address latch: %w", c.info.name, ErrUnsupported)
	}
	if err := c.checkAddress(addr); err != nil {
		return err
	}
	c.addrLatch = addr
	return nil
}

// WriteData writes data to the latched address. For SN76489 it writes the
// single data port.
func (c *Chip) WriteData(data uint8) error {
	c.core.writeRegister(c.addrLatch, data)
	return nil
}

// WritePort performs a bus write to one of the chip's ports. Even ports latch
// an address, odd ports write data. On YM2612 ports 0/1 address part I and
// ports 2/3 part II; a data write on the port of the other part is dropped.
// SN76489 exposes only port 0, its data port.
func (c *Chip) WritePort(port uint8, data uint8) error {
	switch c.family {
	case SN76489:
		if port != 0 {
			break
		}
		c.core.writeRegister(0, data)
		return nil
	case YM2612:
		switch port {
		case 0:
			c.addrLatch = uint16(data)
		case 2:
			c.addrLatch = 0x100 | uint16(data)
		case 1:
			if c.addrLatch&0x100 == 0 {
				c.core.writeRegister(c.addrLatch, data)
			}
		case 3:
			if c.addrLatch&0x100 != 0 {
				c.core.writeRegister(c.addrLatch, data)
			}
		default:
			return fmt.Errorf("emu: YM2612 port %d out of range: %w", port, ErrInvalidArgument)
		}
		return nil
	default:
		switch port {
		case 0:
			c.addrLatch = uint16(data) & uint16(c.info.regCount-1)
			return nil
		case 1:
			c.core.writeRegister(c.addrLatch, data)
			return nil
		}
	}
	return fmt.Errorf("emu: %s port %d out of range: %w", c.info.name, port, ErrInvalidArgument)
}

// ReadStatus returns the chip status byte (timer overflow flags, busy).
func (c *Chip) ReadStatus() (uint8, error) {
	return c.core.readStatus()
}

// ReadRegister returns the register file entry at addr.
func (c *Chip) ReadRegister(addr uint16) (uint8, error) {
	if err := c.checkAddress(addr); err != nil {
		return 0, err
	}
	return c.core.readRegister(addr)
}

// Generate runs the chip for n native samples and returns n frames in a
// flat slice: frame i occupies [i*Outputs() : (i+1)*Outputs()].
func (c *Chip) Generate(n int) ([]int32, error) {
	if n < 0 {
		return nil, fmt.Errorf("emu: negative sample count %d: %w", n, ErrInvalidArgument)
	}
	if n > math.MaxInt/c.info.outputs {
		return nil, fmt.Errorf("emu: sample count %d too large: %w", n, ErrInvalidArgument)
	}
	buf := make([]int32, n*c.info.outputs)
	if n > 0 {
		c.core.generate(buf)
	}
	return buf, nil
}

// GenerateInto fills buf with len(buf)/Outputs() frames and returns the
// number of frames written.
func (c *Chip) GenerateInto(buf []int32) (int, error) {
	if len(buf)%c.info.outputs != 0 {
		return 0, fmt.Errorf("emu: buffer length %d not a multiple of %d outputs: %w",
			len(buf), c.info.outputs, ErrInvalidArgument)
	}
	if len(buf) > 0 {
		c.core.generate(buf)
	}
	return len(buf) / c.info.outputs, nil
}

// Reset returns the chip to its power-on state. The clock is kept.
func (c *Chip) Reset() {
	c.addrLatch = 0
	c.core.reset()
}
