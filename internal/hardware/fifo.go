// ABOUTME: Real-time FIFO model for paced bus backends
// ABOUTME: Drains at the sample clock rate, blocks writers when full, counts underruns
package hardware

import (
	"sync"
	"time"
)

// fifoClock models a DMA transmit FIFO drained at a constant byte rate.
// Backends that do not have a real clock behind them call Admit before
// accepting bytes so playback runs at wall-clock speed.
type fifoClock struct {
	rate     float64 // bytes per second
	capacity int

	mu        sync.Mutex
	level     float64
	last      time.Time
	underruns int

	now   func() time.Time
	sleep func(time.Duration)
}

func newFIFOClock(bytesPerSecond, capacity int) *fifoClock {
	return &fifoClock{
		rate:     float64(bytesPerSecond),
		capacity: capacity,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// drain updates the fill level for elapsed time. Caller holds mu.
func (f *fifoClock) drain() {
	now := f.now()
	if f.last.IsZero() {
		f.last = now
		return
	}
	f.level -= float64(now.Sub(f.last)) * f.rate / float64(time.Second)
	f.last = now
	if f.level < 0 {
		// ignore sub-millisecond scheduling noise
		if -f.level > f.rate/1000 {
			f.underruns++
		}
		f.level = 0
	}
}

// Admit queues n bytes and blocks until the FIFO is back within capacity
func (f *fifoClock) Admit(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.drain()
	f.level += float64(n)
	if over := f.level - float64(f.capacity); over > 0 {
		wait := time.Duration(over * float64(time.Second) / f.rate)
		f.mu.Unlock()
		f.sleep(wait)
		f.mu.Lock()
		f.drain()
	}
}

// Level returns the current fill in bytes
func (f *fifoClock) Level() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drain()
	return int(f.level)
}

// Reset forgets the fill state, e.g. between playbacks
func (f *fifoClock) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = 0
	f.last = time.Time{}
}

// Underruns returns how many times the FIFO ran dry while clocked
func (f *fifoClock) Underruns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.underruns
}
