package emu

// operatorOrder maps register slot bits to operator index.
// Register order is S1(0), S3(1), S2(2), S4(3) but we store as 0,1,2,3 = S1,S2,S3,S4.
// OPN2 and OPM share this layout (OPM names the slots M1, M2, C1, C2).
var operatorOrder = [4]int{0, 2, 1, 3}

// fmChannel holds the algorithm-level state of a four-operator channel.
type fmChannel struct {
	op [4]fmOperator

	algorithm uint8 // 3-bit algorithm (0-7)
	feedback  uint8 // 3-bit feedback level (0=disabled, 1-7)
	panL      bool
	panR      bool
	ams       uint8 // 2-bit AM sensitivity
	pms       uint8 // 3-bit PM sensitivity (FMS on OPN)
}

// carriers holds the carrier outputs of one channel evaluation, in the
// order the chip accumulates them.
type carriers struct {
	out [4]int16
	n   int
}

func (c *carriers) add(v int16) {
	c.out[c.n] = v
	c.n++
}

// evaluate runs the operator graph selected by the channel's algorithm.
// Phases must already be stepped for this sample.
func (ch *fmChannel) evaluate(amAtten uint16) carriers {
	var c carriers
	op := &ch.op
	fb := op[0].feedback(ch.feedback)
	s1 := op[0].output(fb, amAtten)

	switch ch.algorithm {
	case 0:
		// S1->S2->S3->S4
		s2 := op[1].output(int32(s1)>>1, amAtten)
		s3 := op[2].output(int32(s2)>>1, amAtten)
		c.add(op[3].output(int32(s3)>>1, amAtten))
	case 1:
		// (S1+S2)->S3->S4
		s2 := op[1].output(0, amAtten)
		s3 := op[2].output((int32(s1)+int32(s2))>>1, amAtten)
		c.add(op[3].output(int32(s3)>>1, amAtten))
	case 2:
		// S1+(S2->S3)->S4
		s2 := op[1].output(0, amAtten)
		s3 := op[2].output(int32(s2)>>1, amAtten)
		c.add(op[3].output((int32(s1)+int32(s3))>>1, amAtten))
	case 3:
		// (S1->S2)+S3->S4
		s2 := op[1].output(int32(s1)>>1, amAtten)
		s3 := op[2].output(0, amAtten)
		c.add(op[3].output((int32(s2)+int32(s3))>>1, amAtten))
	case 4:
		// (S1->S2) + (S3->S4)
		s3 := op[2].output(0, amAtten)
		c.add(op[1].output(int32(s1)>>1, amAtten))
		c.add(op[3].output(int32(s3)>>1, amAtten))
	case 5:
		// S1->(S2, S3, S4)
		mod := int32(s1) >> 1
		s3 := op[2].output(mod, amAtten)
		c.add(op[1].output(mod, amAtten))
		c.add(s3)
		c.add(op[3].output(mod, amAtten))
	case 6:
		// (S1->S2) + S3 + S4
		s3 := op[2].output(0, amAtten)
		c.add(op[1].output(int32(s1)>>1, amAtten))
		c.add(s3)
		c.add(op[3].output(0, amAtten))
	default:
		// S1 + S2 + S3 + S4
		s3 := op[2].output(0, amAtten)
		c.add(s1)
		c.add(op[1].output(0, amAtten))
		c.add(s3)
		c.add(op[3].output(0, amAtten))
	}
	return c
}

// decodeAlgorithm applies the shared FB/ALG byte (OPN $B0, OPM $20).
func (ch *fmChannel) decodeAlgorithm(val uint8) {
	ch.algorithm = val & 0x07
	ch.feedback = (val >> 3) & 0x07
}

func (ch *fmChannel) silence() {
	for i := range ch.op {
		ch.op[i] = fmOperator{}
		ch.op[i].silence()
	}
}

func (ch *fmChannel) saveState(w *stateWriter) {
	for i := range ch.op {
		ch.op[i].saveState(w)
	}
}

func (ch *fmChannel) loadState(r *stateReader) {
	for i := range ch.op {
		ch.op[i].loadState(r)
	}
}
