package utils

// rawRange is the integer range representable by a signal of bitLen bits.
func rawRange(bitLen int, signed bool) (int64, int64) {
	if bitLen >= 64 {
		if signed {
			return -1 << 63, 1<<63 - 1
		}
		return 0, 1<<63 - 1
	}
	if signed {
		return -(int64(1) << (bitLen - 1)), int64(1)<<(bitLen-1) - 1
	}
	return 0, int64(1)<<bitLen - 1
}

func clampRaw(raw int64, bitLen int, signed bool) int64 {
	lo, hi := rawRange(bitLen, signed)
	if raw < lo {
		return lo
	}
	if raw > hi {
		return hi
	}
	return raw
}

// fitsFrame reports whether a little-endian signal lies inside a frame of dlc bytes.
func fitsFrame(s SignalDef, dlc int) bool {
	return s.StartBit >= 0 && s.BitLength > 0 && s.StartBit+s.BitLength <= 8*dlc
}
