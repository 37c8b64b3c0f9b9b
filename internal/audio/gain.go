// ABOUTME: In-place Q15 fixed-point volume scaling for signed 16-bit PCM
// ABOUTME: Allocation-free inner loop with saturation
package audio

import "math"

// Q15One is full scale in Q15. Scaling by it is the identity.
const Q15One = 32767

// VolumeToQ15 converts a [0,1] volume to Q15, clamping out-of-range input
func VolumeToQ15(volume float64) int32 {
	if math.IsNaN(volume) || volume <= 0 {
		return 0
	}
	if volume >= 1 {
		return Q15One
	}
	return int32(volume * Q15One)
}

// ScaleInPlace multiplies every little-endian int16 sample in buf by
// volQ15/32768, rounding half up and saturating to the int16 range.
// A trailing odd byte is left untouched. volQ15 >= Q15One is a no-op.
func ScaleInPlace(buf []byte, volQ15 int32) {
	if volQ15 >= Q15One {
		return
	}
	if volQ15 < 0 {
		volQ15 = 0
	}

	n := len(buf) &^ 1
	for i := 0; i < n; i += 2 {
		s := int32(int16(uint16(buf[i]) | uint16(buf[i+1])<<8))
		// Adding half an LSB before the shift makes this round(s*q/32768)
		// with ties toward +inf. A bare >>15 would floor instead.
		s = (s*volQ15 + 1<<14) >> 15
		if s > math.MaxInt16 {
			s = math.MaxInt16
		} else if s < math.MinInt16 {
			s = math.MinInt16
		}
		buf[i] = byte(s)
		buf[i+1] = byte(s >> 8)
	}
}
