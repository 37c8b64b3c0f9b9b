// ABOUTME: Tests for Q15 volume scaling
// ABOUTME: Identity at full scale, silence at zero, rounding and saturation at the extremes
package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func encode(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func decode(buf []byte) []int16 {
	out := make([]int16, len(buf)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return out
}

// reference is clamp(round(s*q/32768)) computed in float64
func reference(s int16, q int32) int16 {
	v := math.Floor(float64(s)*float64(q)/32768.0 + 0.5)
	if v > math.MaxInt16 {
		v = math.MaxInt16
	}
	if v < math.MinInt16 {
		v = math.MinInt16
	}
	return int16(v)
}

var extremes = []int16{0, 1, -1, 2, -2, 100, -100, 12345, -12345, 32766, 32767, -32767, -32768}

func TestScaleFullScaleIsIdentity(t *testing.T) {
	buf := encode(extremes...)
	ScaleInPlace(buf, Q15One)

	for i, got := range decode(buf) {
		if got != extremes[i] {
			t.Errorf("sample %d: expected %d, got %d", i, extremes[i], got)
		}
	}
}

func TestScaleZeroIsSilence(t *testing.T) {
	buf := encode(extremes...)
	ScaleInPlace(buf, 0)

	for i, got := range decode(buf) {
		if got != 0 {
			t.Errorf("sample %d: expected 0, got %d", i, got)
		}
	}
}

func TestScaleMatchesReference(t *testing.T) {
	volumes := []int32{1, 2, 100, 8192, 16384, 16383, 24576, 32766}

	for _, q := range volumes {
		buf := encode(extremes...)
		ScaleInPlace(buf, q)
		for i, got := range decode(buf) {
			want := reference(extremes[i], q)
			if got != want {
				t.Errorf("q=%d s=%d: expected %d, got %d", q, extremes[i], want, got)
			}
		}
	}
}

func TestScaleRoundsTiesUp(t *testing.T) {
	// q=16384 halves exactly, so odd samples land on a tie
	buf := encode(1, -1, 3, -3)
	ScaleInPlace(buf, 16384)

	want := []int16{1, 0, 2, -1}
	for i, got := range decode(buf) {
		if got != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got)
		}
	}
}

func TestScaleNoWraparoundAtExtremes(t *testing.T) {
	buf := encode(-32768, 32767)
	ScaleInPlace(buf, 32766)

	got := decode(buf)
	if got[0] > 0 {
		t.Errorf("negative full scale wrapped to %d", got[0])
	}
	if got[1] < 0 {
		t.Errorf("positive full scale wrapped to %d", got[1])
	}
	if got[0] != reference(-32768, 32766) || got[1] != reference(32767, 32766) {
		t.Errorf("unexpected extremes %v", got)
	}
}

func TestScaleHalfVolume(t *testing.T) {
	buf := encode(1000, -1000, 500, -500)
	ScaleInPlace(buf, VolumeToQ15(0.5))

	want := []int16{500, -500, 250, -250}
	for i, got := range decode(buf) {
		if got != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got)
		}
	}
}

func TestScaleLeavesOddTrailingByte(t *testing.T) {
	buf := append(encode(2000), 0x7f)
	ScaleInPlace(buf, 16384)

	if buf[2] != 0x7f {
		t.Errorf("expected trailing byte untouched, got %#x", buf[2])
	}
	if got := decode(buf[:2])[0]; got != 1000 {
		t.Errorf("expected 1000, got %d", got)
	}
}

func TestVolumeToQ15(t *testing.T) {
	tests := []struct {
		volume   float64
		expected int32
	}{
		{1.0, Q15One},
		{1.5, Q15One},
		{0.5, 16383},
		{0.0, 0},
		{-0.2, 0},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := VolumeToQ15(tt.volume); got != tt.expected {
			t.Errorf("volume=%v: expected %d, got %d", tt.volume, tt.expected, got)
		}
	}
}

func BenchmarkScaleInPlace(b *testing.B) {
	buf := make([]byte, 4096)
	for i := range buf {
		buf[i] = byte(i)
	}
	b.SetBytes(int64(len(buf)))
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ScaleInPlace(buf, 16384)
	}
}
