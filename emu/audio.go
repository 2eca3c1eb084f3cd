package emu

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clamp16 saturates a mixed sample to the signed 16-bit output range.
func clamp16(v int32) int32 {
	return clampInt32(v, -32768, 32767)
}

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
