// ABOUTME: Audio type definitions
// ABOUTME: Defines the fixed PCM frame geometry shared by the streamer and the bus
package audio

import (
	"fmt"
	"time"
)

// FrameGeometry describes the raw PCM layout. It is fixed for the
// process lifetime.
type FrameGeometry struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// BytesPerSample returns the width of one sample in bytes
func (g FrameGeometry) BytesPerSample() int {
	return g.BitsPerSample / 8
}

// BytesPerFrame returns (bits/8) * channels
func (g FrameGeometry) BytesPerFrame() int {
	return g.BytesPerSample() * g.Channels
}

// BytesPerSecond returns the byte rate the bus consumes
func (g FrameGeometry) BytesPerSecond() int {
	return g.BytesPerFrame() * g.SampleRate
}

// Duration returns how long n bytes last when clocked out
func (g FrameGeometry) Duration(n int) time.Duration {
	bps := g.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

// Validate checks the geometry invariants
func (g FrameGeometry) Validate() error {
	switch g.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: bits per sample %d", ErrInvalidGeometry, g.BitsPerSample)
	}
	if g.Channels != 1 && g.Channels != 2 {
		return fmt.Errorf("%w: channels %d", ErrInvalidGeometry, g.Channels)
	}
	if g.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidGeometry, g.SampleRate)
	}
	return nil
}

func (g FrameGeometry) String() string {
	ch := "stereo"
	if g.Channels == 1 {
		ch = "mono"
	}
	return fmt.Sprintf("%dHz %d-bit %s", g.SampleRate, g.BitsPerSample, ch)
}
