// ABOUTME: Synchronous serial audio bus abstraction (bit clock, word select, data)
// ABOUTME: Backends accept raw interleaved PCM and report how many bytes were taken
package hardware

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmbox/internal/audio"
)

// BusPins are the three serial audio lines
type BusPins struct {
	BitClock   int
	WordSelect int
	Data       int
}

// BusConfig is everything needed to bring the bus up
type BusConfig struct {
	Geometry audio.FrameGeometry
	Pins     BusPins

	// DMAFrames sizes the transmit FIFO in frames
	DMAFrames int
}

// DMABytes returns the FIFO size in bytes
func (c BusConfig) DMABytes() int {
	return c.DMAFrames * c.Geometry.BytesPerFrame()
}

// Bus is a transmit-only serial audio peripheral
type Bus interface {
	// Open configures the peripheral. It is called once.
	Open(cfg BusConfig) error

	// Write queues PCM for transmission and returns the bytes accepted.
	// It may block while the FIFO is full.
	Write(p []byte) (int, error)

	// Close stops the clocks and releases the peripheral
	Close() error
}

// NewBus builds the named backend. capturePath is used by "wav" only.
func NewBus(backend, capturePath string) (Bus, error) {
	switch backend {
	case "oto":
		return NewOtoBus(), nil
	case "wav":
		return NewWavBus(capturePath), nil
	case "null":
		return NewNullBus(), nil
	default:
		return nil, fmt.Errorf("unknown bus backend %q", backend)
	}
}
