// ABOUTME: Tests for the triple-buffered streamer and the wrapping PCM source
// ABOUTME: Verifies serving order, refill offsets, cyclic round-trip and error propagation
package audio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

var stereo16 = FrameGeometry{SampleRate: 48000, BitsPerSample: 16, Channels: 2}

// pattern returns n bytes that do not repeat on short periods
func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}

// cyclic returns length bytes of data starting at off, wrapping
func cyclic(data []byte, off, length int) []byte {
	out := make([]byte, length)
	for i := range out {
		out[i] = data[(off+i)%len(data)]
	}
	return out
}

// recordingReader logs every offset it is asked for
type recordingReader struct {
	src     *Source
	mu      sync.Mutex
	offsets []int64
	failAt  int // fail the Nth read (1-based), 0 = never
}

func (r *recordingReader) Len() int64 { return r.src.Len() }

func (r *recordingReader) ReadRange(dst []byte, offset int64) error {
	r.mu.Lock()
	r.offsets = append(r.offsets, offset)
	n := len(r.offsets)
	r.mu.Unlock()
	if r.failAt > 0 && n >= r.failAt {
		return errors.New("disk gone")
	}
	return r.src.ReadRange(dst, offset)
}

func (r *recordingReader) seen() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.offsets...)
}

func newTestSource(t *testing.T, data []byte) *Source {
	t.Helper()
	src, err := NewSource(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewSource() err=%v", err)
	}
	return src
}

func TestSourceReadRangeWraps(t *testing.T) {
	data := pattern(100)
	src := newTestSource(t, data)

	tests := []struct {
		name   string
		offset int64
		length int
	}{
		{"inside", 10, 20},
		{"to end", 80, 20},
		{"across end", 90, 25},
		{"offset beyond length", 250, 10},
		{"longer than asset", 5, 333},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, tt.length)
			if err := src.ReadRange(dst, tt.offset); err != nil {
				t.Fatalf("ReadRange() err=%v", err)
			}
			want := cyclic(data, int(tt.offset%100), tt.length)
			if !bytes.Equal(dst, want) {
				t.Errorf("unexpected bytes at offset %d", tt.offset)
			}
		})
	}
}

func TestSourceEmpty(t *testing.T) {
	if _, err := NewSource(bytes.NewReader(nil), 0); !errors.Is(err, ErrEmptySource) {
		t.Errorf("expected ErrEmptySource, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "empty.raw")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSource(path); !errors.Is(err, ErrEmptySource) {
		t.Errorf("expected ErrEmptySource from OpenSource, got %v", err)
	}
}

func TestSourceShortRead(t *testing.T) {
	// Claims more bytes than the reader has
	src, err := NewSource(bytes.NewReader(pattern(10)), 20)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.ReadRange(make([]byte, 15), 0); !errors.Is(err, ErrShortRead) {
		t.Errorf("expected ErrShortRead, got %v", err)
	}
}

func TestOpenSourceFile(t *testing.T) {
	data := pattern(64)
	path := filepath.Join(t.TempDir(), "tone.raw")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := OpenSource(path)
	if err != nil {
		t.Fatalf("OpenSource() err=%v", err)
	}
	defer src.Close()

	if src.Len() != 64 {
		t.Errorf("expected length 64, got %d", src.Len())
	}
}

func TestStreamerServingOrderAndRefillOffsets(t *testing.T) {
	// 48000-byte asset, 4800-byte buffers (1200 frames of 4 bytes)
	data := pattern(48000)
	rec := &recordingReader{src: newTestSource(t, data)}

	s, err := NewStreamer(rec, stereo16)
	if err != nil {
		t.Fatalf("NewStreamer() err=%v", err)
	}
	defer s.Close()

	const frames = 1200
	const size = 4800

	wantStarts := []int{0, 4800, 9600, 14400}
	for i, start := range wantStarts {
		if i == 3 && s.Cursor() != 14400 {
			t.Errorf("expected cursor 14400 before fourth call, got %d", s.Cursor())
		}

		view, err := s.Next(frames)
		if err != nil {
			t.Fatalf("Next() #%d err=%v", i+1, err)
		}
		if len(view) != size {
			t.Fatalf("expected %d bytes, got %d", size, len(view))
		}
		if !bytes.Equal(view, data[start:start+size]) {
			t.Errorf("call %d: expected buffer starting at %d", i+1, start)
		}
	}

	if s.Cursor() != 19200 {
		t.Errorf("expected cursor 19200 after four calls, got %d", s.Cursor())
	}

	// Drain the worker so every scheduled read has been recorded
	if err := s.Close(); err != nil {
		t.Fatalf("Close() err=%v", err)
	}

	// three synchronous fills, then one refill per call at cursor+2*size
	want := []int64{0, 4800, 9600, 9600, 14400, 19200, 24000}
	got := rec.seen()
	if len(got) != len(want) {
		t.Fatalf("expected reads %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("read %d: expected offset %d, got %d", i, want[i], got[i])
		}
	}
}

func TestStreamerCyclicRoundTrip(t *testing.T) {
	// Asset length not a multiple of the buffer size so wraps land mid-buffer
	data := pattern(1000)
	s, err := NewStreamer(newTestSource(t, data), stereo16)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	const frames = 30 // 120 bytes
	var stream []byte
	for i := 0; i < 50; i++ {
		view, err := s.Next(frames)
		if err != nil {
			t.Fatalf("Next() #%d err=%v", i, err)
		}
		stream = append(stream, view...)
	}

	if !bytes.Equal(stream, cyclic(data, 0, len(stream))) {
		t.Error("concatenated buffers do not reproduce the asset cyclically")
	}
	if want := int64(50*120) % 1000; s.Cursor() != want {
		t.Errorf("expected cursor %d, got %d", want, s.Cursor())
	}
}

func TestStreamerResizeRefillsFromCursor(t *testing.T) {
	data := pattern(4096)
	s, err := NewStreamer(newTestSource(t, data), stereo16)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		if _, err := s.Next(16); err != nil {
			t.Fatal(err)
		}
	}
	cursor := int(s.Cursor())

	view, err := s.Next(40)
	if err != nil {
		t.Fatalf("Next() after resize err=%v", err)
	}
	if s.BufferBytes() != 160 {
		t.Errorf("expected buffer bytes 160, got %d", s.BufferBytes())
	}
	if !bytes.Equal(view, cyclic(data, cursor, 160)) {
		t.Error("resized buffer does not continue from the cursor")
	}

	next, err := s.Next(40)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(next, cyclic(data, cursor+160, 160)) {
		t.Error("second resized buffer is not contiguous")
	}
}

func TestStreamerPropagatesReadErrors(t *testing.T) {
	rec := &recordingReader{src: newTestSource(t, pattern(2000)), failAt: 4}
	s, err := NewStreamer(rec, stereo16)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// First call: three sync reads succeed, the queued refill (4th read) fails
	if _, err := s.Next(10); err != nil {
		t.Fatalf("first Next() err=%v", err)
	}

	var sawErr bool
	for i := 0; i < 3; i++ {
		if _, err := s.Next(10); err != nil {
			sawErr = true
			break
		}
	}
	if !sawErr {
		t.Error("expected background read failure to surface from Next")
	}
}

func TestStreamerInvalidUse(t *testing.T) {
	s, err := NewStreamer(newTestSource(t, pattern(100)), stereo16)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Next(0); !errors.Is(err, ErrInvalidFrameCount) {
		t.Errorf("expected ErrInvalidFrameCount, got %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(4); !errors.Is(err, ErrStreamerClosed) {
		t.Errorf("expected ErrStreamerClosed, got %v", err)
	}
	// Close is idempotent
	if err := s.Close(); err != nil {
		t.Errorf("second Close() err=%v", err)
	}
}

func TestStreamerRejectsBadGeometry(t *testing.T) {
	bad := FrameGeometry{SampleRate: 48000, BitsPerSample: 12, Channels: 2}
	if _, err := NewStreamer(newTestSource(t, pattern(10)), bad); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}
