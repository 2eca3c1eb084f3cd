package emu

import "testing"

func TestAlgo_CarrierCountPerAlgorithm(t *testing.T) {
	want := [8]int{1, 1, 1, 1, 2, 3, 3, 4}
	for alg, n := range want {
		ch := &fmChannel{algorithm: uint8(alg)}
		ch.silence()
		if got := ch.evaluate(0); got.n != n {
			t.Errorf("ALG %d: %d carriers, want %d", alg, got.n, n)
		}
	}
}

func TestAlgo_DecodeAlgorithm(t *testing.T) {
	var ch fmChannel
	ch.decodeAlgorithm(0xFD)
	if ch.algorithm != 5 || ch.feedback != 7 {
		t.Errorf("0xFD: ALG=%d FB=%d, want 5/7", ch.algorithm, ch.feedback)
	}
}

// loudChannel returns a channel with every operator at full volume and the
// given phases.
func loudChannel(alg uint8, phases [4]uint32) *fmChannel {
	ch := &fmChannel{algorithm: alg}
	for i := range ch.op {
		ch.op[i].egState = egDecay
		ch.op[i].phaseCounter = phases[i]
	}
	return ch
}

func TestAlgo7_NoInterOpModulation(t *testing.T) {
	phases := [4]uint32{0x40000, 0x20000, 0xC0000, 0x10000}
	c := loudChannel(7, phases).evaluate(0)
	// S1, S2, S3, S4 in accumulation order
	for i, p := range phases {
		if want := computeOperatorOutput(p, 0); c.out[i] != want {
			t.Errorf("carrier %d: got %d, want %d", i, c.out[i], want)
		}
	}
}

func TestAlgo4_ModulatorsAffectOwnCarrier(t *testing.T) {
	phases := [4]uint32{0x20000, 0, 0, 0}
	base := loudChannel(4, [4]uint32{}).evaluate(0)
	mod := loudChannel(4, phases).evaluate(0)
	if mod.out[0] == base.out[0] {
		t.Error("S1 should modulate S2")
	}
	if mod.out[1] != base.out[1] {
		t.Error("S1 should not reach S4")
	}
}

func TestAlgo0_SerialChain(t *testing.T) {
	ch := loudChannel(0, [4]uint32{0x20000, 0, 0, 0})
	quiet := &fmChannel{algorithm: 0}
	quiet.silence()
	quiet.op[3].egState = egDecay
	quiet.op[3].egLevel = 0

	if ch.evaluate(0).out[0] == quiet.evaluate(0).out[0] {
		t.Error("modulators should change the S4 output")
	}
}

func TestAlgo_FeedbackOnlyS1(t *testing.T) {
	ch := loudChannel(7, [4]uint32{})
	ch.feedback = 7
	for i := range ch.op {
		ch.op[i].prevOut = [2]int16{4000, 4000}
	}
	c := ch.evaluate(0)
	if c.out[0] == computeOperatorOutput(0, 0) {
		t.Error("feedback should modulate S1")
	}
	for i := 1; i < 4; i++ {
		if c.out[i] != computeOperatorOutput(0, 0) {
			t.Errorf("carrier %d should ignore feedback", i)
		}
	}
}

// --- Timers ---

func TestTimer_Prescale(t *testing.T) {
	tm := fmTimer{bits: 8, prescale: 16, period: 255}
	tm.setLoad(true)
	for i := 0; i < 15; i++ {
		if tm.tick() {
			t.Fatalf("expired after %d samples", i+1)
		}
	}
	if !tm.tick() {
		t.Error("expected expiry after 16 samples")
	}
	if tm.overflow {
		t.Error("masked timer should not set the flag")
	}
}

func TestTimer_StoppedDoesNotCount(t *testing.T) {
	tm := fmTimer{bits: 10, prescale: 1, period: 1023, enable: true}
	for i := 0; i < 10; i++ {
		if tm.tick() {
			t.Fatal("stopped timer expired")
		}
	}
	if tm.counter != 0 {
		t.Errorf("counter: got %d, want 0", tm.counter)
	}
}

func TestTimer_LoadRestarts(t *testing.T) {
	tm := fmTimer{bits: 10, prescale: 1, period: 0}
	tm.setLoad(true)
	for i := 0; i < 100; i++ {
		tm.tick()
	}
	tm.setLoad(true)
	if tm.counter != 100 {
		t.Errorf("reloading a running timer should not restart it: counter %d", tm.counter)
	}
	tm.setLoad(false)
	tm.setLoad(true)
	if tm.counter != 0 {
		t.Errorf("starting a stopped timer should restart it: counter %d", tm.counter)
	}
}
