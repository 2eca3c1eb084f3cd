package emu

import (
	"fmt"

	emucore "github.com/user-none/eblitui/api"
)

// Region is an alias for emucore.Region: the console video standard that
// fixes the master clock the sound chips are fed from.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionTiming holds the Genesis/Mega Drive sound chip clocks for a region.
// The YM2612 runs from the 68000 clock and the SN76489 from the Z80 clock.
type RegionTiming struct {
	FMClockHz  int // YM2612 input clock
	PSGClockHz int // SN76489 input clock
}

// NTSC timing: 7.670454 MHz FM, 3.579545 MHz PSG
var NTSCTiming = RegionTiming{
	FMClockHz:  7670454,
	PSGClockHz: 3579545,
}

// PAL timing: 7.600489 MHz FM, 3.546893 MHz PSG
var PALTiming = RegionTiming{
	FMClockHz:  7600489,
	PSGClockHz: 3546893,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// RegionClock returns the clock a family is fed on a Genesis/Mega Drive of
// the given region. Families that console does not carry have no preset
// and return ErrUnsupported.
func RegionClock(f Family, r Region) (int, error) {
	timing := GetTimingForRegion(r)
	switch f {
	case YM2612:
		return timing.FMClockHz, nil
	case SN76489:
		return timing.PSGClockHz, nil
	}
	if _, ok := families[f]; !ok {
		return 0, fmt.Errorf("emu: unknown chip family %d: %w", uint8(f), ErrInvalidArgument)
	}
	return 0, fmt.Errorf("emu: no region clock preset for %s: %w", f, ErrUnsupported)
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}
