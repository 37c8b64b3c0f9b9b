// ABOUTME: Tests for GPIO pins, the FIFO pacing clock and the capture/null buses
// ABOUTME: Uses a fake clock so pacing is deterministic
package hardware

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmbox/internal/audio"
	"github.com/go-audio/wav"
)

var stereo16 = audio.FrameGeometry{SampleRate: 8000, BitsPerSample: 16, Channels: 2}

type fakeTime struct {
	t     time.Time
	slept []time.Duration
}

func (f *fakeTime) now() time.Time { return f.t }

func (f *fakeTime) sleep(d time.Duration) {
	f.slept = append(f.slept, d)
	f.t = f.t.Add(d)
}

func TestMemoryPin(t *testing.T) {
	p := NewMemoryPin(13, "mute")
	var changes []bool
	p.OnChange = func(name string, high bool) {
		if name != "mute" {
			t.Errorf("expected name mute, got %s", name)
		}
		changes = append(changes, high)
	}

	p.Set(true)
	p.Set(true)
	p.Set(false)

	if p.Get() {
		t.Error("expected pin low")
	}
	if p.Transitions() != 2 {
		t.Errorf("expected 2 transitions, got %d", p.Transitions())
	}
	if len(changes) != 2 {
		t.Errorf("expected 2 change callbacks, got %d", len(changes))
	}
	if p.Number() != 13 {
		t.Errorf("expected GPIO 13, got %d", p.Number())
	}
}

func TestFIFOClockBlocksWhenFull(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	// 1000 bytes/s, 100-byte FIFO
	f := newFIFOClock(1000, 100)
	f.now, f.sleep = ft.now, ft.sleep

	f.Admit(100) // fills exactly
	if len(ft.slept) != 0 {
		t.Fatalf("expected no sleep filling an empty FIFO, got %v", ft.slept)
	}

	f.Admit(50) // 50 bytes over => 50ms
	if len(ft.slept) != 1 || ft.slept[0] != 50*time.Millisecond {
		t.Fatalf("expected a 50ms sleep, got %v", ft.slept)
	}
	if f.Level() != 100 {
		t.Errorf("expected level 100, got %d", f.Level())
	}
	if f.Underruns() != 0 {
		t.Errorf("expected no underruns, got %d", f.Underruns())
	}
}

func TestFIFOClockCountsUnderruns(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	f := newFIFOClock(1000, 100)
	f.now, f.sleep = ft.now, ft.sleep

	f.Admit(50)
	ft.t = ft.t.Add(200 * time.Millisecond) // drains 200 bytes worth
	f.Admit(50)

	if f.Underruns() != 1 {
		t.Errorf("expected 1 underrun, got %d", f.Underruns())
	}

	f.Reset()
	ft.t = ft.t.Add(time.Second)
	f.Admit(10)
	if f.Underruns() != 1 {
		t.Errorf("expected reset to forget idle time, got %d underruns", f.Underruns())
	}
}

func TestFIFOClockOversizedWrite(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	f := newFIFOClock(1000, 100)
	f.now, f.sleep = ft.now, ft.sleep

	f.Admit(300)
	if len(ft.slept) != 1 || ft.slept[0] != 200*time.Millisecond {
		t.Fatalf("expected a 200ms sleep, got %v", ft.slept)
	}
	if f.Underruns() != 0 {
		t.Errorf("oversized write must not count as underrun, got %d", f.Underruns())
	}
}

func TestWavBusCapturesStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	bus := NewWavBus(path)

	if _, err := bus.Write([]byte{0, 0, 0, 0}); !errors.Is(err, ErrBusNotOpen) {
		t.Errorf("expected ErrBusNotOpen, got %v", err)
	}

	cfg := BusConfig{Geometry: stereo16, DMAFrames: 8000}
	if err := bus.Open(cfg); err != nil {
		t.Fatalf("Open() err=%v", err)
	}

	samples := []int16{0, 1, -1, 1000, -1000, 32767, -32768, 42}
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	// trailing partial frame is refused
	n, err := bus.Write(append(raw, 0xAA, 0xBB))
	if err != nil {
		t.Fatalf("Write() err=%v", err)
	}
	if n != len(raw) {
		t.Errorf("expected %d bytes accepted, got %d", len(raw), n)
	}
	if bus.Captured() != int64(len(raw)) {
		t.Errorf("expected %d captured, got %d", len(raw), bus.Captured())
	}

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() err=%v", err)
	}
	if _, err := bus.Write(raw); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode capture: %v", err)
	}
	if int(dec.SampleRate) != stereo16.SampleRate {
		t.Errorf("expected sample rate %d, got %d", stereo16.SampleRate, dec.SampleRate)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Data))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Errorf("sample %d: expected %d, got %d", i, s, buf.Data[i])
		}
	}
}

func TestDecodeSample(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		bps      int
		expected int
	}{
		{"8-bit", []byte{200}, 1, 200},
		{"16-bit negative", []byte{0x18, 0xFC}, 2, -1000},
		{"24-bit negative", []byte{0x00, 0xFF, 0xFF}, 3, -256},
		{"24-bit positive", []byte{0x56, 0x34, 0x12}, 3, 0x123456},
		{"32-bit negative", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 4, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeSample(tt.in, tt.bps); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestNullBus(t *testing.T) {
	bus := NewNullBus()
	// Reset before Open is a no-op
	bus.Reset()
	if _, err := bus.Write(make([]byte, 4)); !errors.Is(err, ErrBusNotOpen) {
		t.Errorf("expected ErrBusNotOpen, got %v", err)
	}

	if err := bus.Open(BusConfig{Geometry: stereo16, DMAFrames: 8000}); err != nil {
		t.Fatal(err)
	}
	n, err := bus.Write(make([]byte, 400))
	if err != nil || n != 400 {
		t.Fatalf("expected 400 bytes accepted, got %d (%v)", n, err)
	}
	if bus.Written() != 400 {
		t.Errorf("expected 400 written, got %d", bus.Written())
	}
	bus.Reset()
	if bus.Underruns() != 0 {
		t.Errorf("expected no underruns, got %d", bus.Underruns())
	}

	bus.Close()
	if _, err := bus.Write(make([]byte, 4)); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
}

func TestNewBus(t *testing.T) {
	for _, name := range []string{"oto", "wav", "null"} {
		if _, err := NewBus(name, "x.wav"); err != nil {
			t.Errorf("NewBus(%q) err=%v", name, err)
		}
	}
	if _, err := NewBus("alsa", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOtoFormat(t *testing.T) {
	if _, err := otoFormat(16); err != nil {
		t.Errorf("16-bit should be supported: %v", err)
	}
	if _, err := otoFormat(24); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
