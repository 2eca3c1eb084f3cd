package emu

import (
	"fmt"
	"strings"
)

// Family selects the emulated chip. The set is closed: every family is
// implemented in this package and chosen once at construction.
type Family uint8

const (
	YM2612  Family = iota + 1 // OPN2: 6 FM channels, DAC, stereo
	YM2151                    // OPM: 8 FM channels, noise, stereo
	YM3812                    // OPL2: 9 two-operator channels, rhythm, mono
	YM2149                    // SSG: 3 square channels, noise, envelope
	SN76489                   // Sega PSG: 3 square channels, noise, mono
	YM3526                    // OPL: YM3812 without waveform select, mono
)

// familyInfo holds the constants derived from a family.
type familyInfo struct {
	name         string
	divider      int  // input clocks per native sample
	outputs      int  // output channels per frame
	regCount     int  // size of the addressable register space
	latch        bool // has an address latch (two-phase addressing)
	defaultClock int
	newCore      func() core
}

var families = map[Family]familyInfo{
	YM2612: {
		name:         "YM2612",
		divider:      144,
		outputs:      2,
		regCount:     0x200,
		latch:        true,
		defaultClock: 7670454,
		newCore:      func() core { return newYM2612() },
	},
	YM2151: {
		name:         "YM2151",
		divider:      64,
		outputs:      2,
		regCount:     0x100,
		latch:        true,
		defaultClock: 3579545,
		newCore:      func() core { return newYM2151() },
	},
	YM3812: {
		name:         "YM3812",
		divider:      72,
		outputs:      1,
		regCount:     0x100,
		latch:        true,
		defaultClock: 3579545,
		newCore:      func() core { return newYM3812() },
	},
	YM3526: {
		name:         "YM3526",
		divider:      72,
		outputs:      1,
		regCount:     0x100,
		latch:        true,
		defaultClock: 3579545,
		newCore:      func() core { return newYM3526() },
	},
	YM2149: {
		name:         "YM2149",
		divider:      8,
		outputs:      3,
		regCount:     0x10,
		latch:        true,
		defaultClock: 2000000,
		newCore:      func() core { return newYM2149() },
	},
	SN76489: {
		name:         "SN76489",
		divider:      16,
		outputs:      1,
		regCount:     1,
		latch:        false,
		defaultClock: 3579545,
		newCore:      func() core { return newPSG() },
	},
}

// String returns the chip part number.
func (f Family) String() string {
	if info, ok := families[f]; ok {
		return info.name
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

// familyAliases maps the common Yamaha engine names to their family.
var familyAliases = map[string]Family{
	"opn2": YM2612,
	"opm":  YM2151,
	"opl":  YM3526,
	"opl2": YM3812,
	"ssg":  YM2149,
	"psg":  SN76489,
}

// ParseFamily looks up a family by part number ("ym2612") or engine name
// ("opn2"), case-insensitively.
func ParseFamily(name string) (Family, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if f, ok := familyAliases[key]; ok {
		return f, nil
	}
	for f, info := range families {
		if strings.ToLower(info.name) == key {
			return f, nil
		}
	}
	return 0, fmt.Errorf("emu: unknown chip family %q: %w", name, ErrInvalidArgument)
}

// DefaultClock returns the input clock the family is most commonly fed
// (Genesis NTSC for YM2612, NTSC colorburst for the OPM, OPL and PSG parts,
// Atari ST for YM2149). Returns 0 for an unknown family.
func DefaultClock(f Family) int {
	return families[f].defaultClock
}
