// ABOUTME: Discarding bus backend paced at the sample clock
// ABOUTME: Used on hosts without a sound card and for soak runs
package hardware

import (
	"log/slog"
	"sync"
)

// NullBus drops PCM after the FIFO clock admits it
type NullBus struct {
	mu      sync.Mutex
	clock   *fifoClock
	written int64
	closed  bool
}

// NewNullBus creates an unopened null bus
func NewNullBus() *NullBus {
	return &NullBus{}
}

// Open sizes the pacing FIFO
func (b *NullBus) Open(cfg BusConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.clock == nil {
		b.clock = newFIFOClock(cfg.Geometry.BytesPerSecond(), cfg.DMABytes())
		slog.Info("serial audio bus initialized", "backend", "null", "ibuf_bytes", cfg.DMABytes())
	}
	return nil
}

// Write admits p into the FIFO and discards it
func (b *NullBus) Write(p []byte) (int, error) {
	b.mu.Lock()
	clock, closed := b.clock, b.closed
	b.mu.Unlock()

	if closed {
		return 0, ErrBusClosed
	}
	if clock == nil {
		return 0, ErrBusNotOpen
	}

	clock.Admit(len(p))

	b.mu.Lock()
	b.written += int64(len(p))
	b.mu.Unlock()
	return len(p), nil
}

// Written returns the total bytes accepted
func (b *NullBus) Written() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

// Reset empties the pacing FIFO so the idle gap before a playback is
// not counted as an underrun
func (b *NullBus) Reset() {
	b.mu.Lock()
	clock := b.clock
	b.mu.Unlock()
	if clock != nil {
		clock.Reset()
	}
}

// Underruns reports FIFO starvation events
func (b *NullBus) Underruns() int {
	b.mu.Lock()
	clock := b.clock
	b.mu.Unlock()
	if clock == nil {
		return 0
	}
	return clock.Underruns()
}

// Close marks the bus closed
func (b *NullBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
