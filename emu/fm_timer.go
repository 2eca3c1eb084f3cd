package emu

// fmTimer is one of the interval timers of the FM chips. The counter runs
// from 0 up to 2^bits - period in units of prescale samples.
type fmTimer struct {
	bits     uint  // counter width (10 for OPN/OPM Timer A, 8 otherwise)
	prescale uint8 // samples per counter step

	period   uint16 // Loaded period value
	counter  uint16 // Current counter value
	sub      uint8  // Prescaler position
	load     bool   // Counting enabled
	enable   bool   // Overflow flag enabled
	overflow bool   // Overflow flag (readable in status)
}

// tick advances the timer by one sample and reports whether it expired.
// Expiry happens whenever a loaded timer wraps, even with the flag masked;
// CSM key-on depends on that.
func (t *fmTimer) tick() bool {
	t.sub++
	if t.sub < t.prescale {
		return false
	}
	t.sub = 0
	if !t.load {
		return false
	}
	t.counter++
	if t.counter >= uint16(1<<t.bits)-t.period {
		t.counter = 0
		if t.enable {
			t.overflow = true
		}
		return true
	}
	return false
}

// setLoad starts or stops the timer. Starting a stopped timer reloads it.
func (t *fmTimer) setLoad(on bool) {
	if on && !t.load {
		t.counter = 0
	}
	t.load = on
}

func (t *fmTimer) saveState(w *stateWriter) {
	w.u16(t.counter)
	w.u8(t.sub)
	w.bool(t.load)
	w.bool(t.overflow)
}

func (t *fmTimer) loadState(r *stateReader) {
	t.counter = r.u16()
	t.sub = r.u8()
	t.load = r.bool()
	t.overflow = r.bool()
}
