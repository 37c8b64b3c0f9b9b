// ABOUTME: Host audio device standing in for the serial audio bus
// ABOUTME: Streams PCM through a persistent oto player fed by a pipe
package hardware

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoBus clocks PCM out of the host sound card. The DMA FIFO size maps
// onto oto's buffer size so backpressure behaves like the real peripheral.
type OtoBus struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	ready      bool
	closed     bool
}

// NewOtoBus creates an unopened oto bus
func NewOtoBus() *OtoBus {
	return &OtoBus{}
}

func otoFormat(bits int) (oto.Format, error) {
	switch bits {
	case 16:
		return oto.FormatSignedInt16LE, nil
	case 8:
		return oto.FormatUnsignedInt8, nil
	default:
		return 0, fmt.Errorf("%w: oto cannot clock %d-bit PCM", ErrUnsupportedFormat, bits)
	}
}

// Open creates the oto context. oto allows one context per process, so a
// second Open is a no-op.
func (b *OtoBus) Open(cfg BusConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.otoCtx != nil {
		return nil
	}

	format, err := otoFormat(cfg.Geometry.BitsPerSample)
	if err != nil {
		return err
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.Geometry.SampleRate,
		ChannelCount: cfg.Geometry.Channels,
		Format:       format,
		BufferSize:   cfg.Geometry.Duration(cfg.DMABytes()),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	b.otoCtx = ctx
	b.pipeReader, b.pipeWriter = io.Pipe()
	b.player = b.otoCtx.NewPlayer(b.pipeReader)
	b.player.Play()
	b.ready = true

	slog.Info("serial audio bus initialized",
		"backend", "oto",
		"geometry", cfg.Geometry.String(),
		"dma_frames", cfg.DMAFrames,
		"ibuf_bytes", cfg.DMABytes(),
		"bck", cfg.Pins.BitClock,
		"lrck", cfg.Pins.WordSelect,
		"data", cfg.Pins.Data,
	)

	return nil
}

// Write blocks until the player has taken the whole buffer
func (b *OtoBus) Write(p []byte) (int, error) {
	b.mu.Lock()
	w, ready, closed := b.pipeWriter, b.ready, b.closed
	b.mu.Unlock()

	if closed {
		return 0, ErrBusClosed
	}
	if !ready {
		return 0, ErrBusNotOpen
	}

	n, err := w.Write(p)
	if err != nil {
		return n, fmt.Errorf("pipe write failed: %w", err)
	}
	return n, nil
}

// Close releases output resources
func (b *OtoBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.ready = false

	if b.pipeWriter != nil {
		b.pipeWriter.Close()
	}
	if b.player != nil {
		if err := b.player.Close(); err != nil {
			slog.Warn("oto player close failed", "error", err)
		}
	}
	if b.pipeReader != nil {
		b.pipeReader.Close()
	}
	if b.otoCtx != nil {
		if err := b.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}
