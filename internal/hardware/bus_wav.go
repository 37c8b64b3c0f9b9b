// ABOUTME: Capture backend recording exactly what the bus would clock out
// ABOUTME: Writes a WAV file with go-audio/wav, paced at the sample clock
package hardware

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavBus records the transmitted stream to a WAV file
type WavBus struct {
	path string

	mu       sync.Mutex
	file     *os.File
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	clock    *fifoClock
	bps      int // bytes per sample
	frame    int // bytes per frame
	captured int64
	closed   bool
}

// NewWavBus creates a capture bus writing to path on Open
func NewWavBus(path string) *WavBus {
	return &WavBus{path: path}
}

// Open creates the capture file and the pacing FIFO
func (b *WavBus) Open(cfg BusConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.enc != nil {
		return nil
	}

	f, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}

	g := cfg.Geometry
	b.file = f
	b.enc = wav.NewEncoder(f, g.SampleRate, g.BitsPerSample, g.Channels, 1)
	b.buf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: g.Channels, SampleRate: g.SampleRate},
		SourceBitDepth: g.BitsPerSample,
	}
	b.bps = g.BytesPerSample()
	b.frame = g.BytesPerFrame()
	b.clock = newFIFOClock(g.BytesPerSecond(), cfg.DMABytes())

	slog.Info("serial audio bus initialized",
		"backend", "wav",
		"path", b.path,
		"geometry", g.String(),
		"ibuf_bytes", cfg.DMABytes(),
	)
	return nil
}

// decodeSample sign-extends one little-endian sample of width bps
func decodeSample(p []byte, bps int) int {
	switch bps {
	case 1:
		return int(p[0])
	case 2:
		return int(int16(uint16(p[0]) | uint16(p[1])<<8))
	case 3:
		v := int32(p[0]) | int32(p[1])<<8 | int32(p[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return int(v)
	default:
		return int(int32(uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24))
	}
}

// Write accepts whole frames only; a trailing partial frame is not taken
func (b *WavBus) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBusClosed
	}
	if b.enc == nil {
		return 0, ErrBusNotOpen
	}

	n := len(p) - len(p)%b.frame
	if n == 0 {
		return 0, nil
	}

	data := b.buf.Data[:0]
	for i := 0; i < n; i += b.bps {
		data = append(data, decodeSample(p[i:], b.bps))
	}
	b.buf.Data = data

	if err := b.enc.Write(b.buf); err != nil {
		return 0, fmt.Errorf("wav encode: %w", err)
	}
	b.captured += int64(n)

	clock := b.clock
	b.mu.Unlock()
	clock.Admit(n)
	b.mu.Lock()

	return n, nil
}

// Captured returns the number of PCM bytes recorded so far
func (b *WavBus) Captured() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captured
}

// Reset empties the pacing FIFO so the idle gap before a playback is
// not counted as an underrun
func (b *WavBus) Reset() {
	b.mu.Lock()
	clock := b.clock
	b.mu.Unlock()
	if clock != nil {
		clock.Reset()
	}
}

// Underruns reports FIFO starvation events
func (b *WavBus) Underruns() int {
	b.mu.Lock()
	clock := b.clock
	b.mu.Unlock()
	if clock == nil {
		return 0
	}
	return clock.Underruns()
}

// Close finalizes the WAV header and closes the file
func (b *WavBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.enc == nil {
		return nil
	}

	if err := b.enc.Close(); err != nil {
		b.file.Close()
		return fmt.Errorf("finalize capture: %w", err)
	}
	return b.file.Close()
}
