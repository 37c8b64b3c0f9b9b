// ABOUTME: GPIO output line abstraction
// ABOUTME: MemoryPin is the host rendition used by the simulator and tests
package hardware

import (
	"fmt"
	"log/slog"
	"sync"
)

// Pin is a single GPIO output line
type Pin interface {
	// Set drives the line high (true) or low (false)
	Set(high bool) error
	// Get returns the last driven level
	Get() bool
	// Number returns the GPIO number
	Number() int
}

// MemoryPin latches its level in memory. It is safe for concurrent use,
// although each pin is only ever driven by one execution context.
type MemoryPin struct {
	num  int
	name string

	mu          sync.Mutex
	level       bool
	transitions int

	// OnChange, if set, is called after every level change
	OnChange func(name string, high bool)
}

// NewMemoryPin creates a low pin
func NewMemoryPin(num int, name string) *MemoryPin {
	return &MemoryPin{num: num, name: name}
}

// Set drives the pin
func (p *MemoryPin) Set(high bool) error {
	p.mu.Lock()
	changed := p.level != high
	p.level = high
	if changed {
		p.transitions++
	}
	cb := p.OnChange
	p.mu.Unlock()

	if changed {
		slog.Debug("gpio", "pin", p.name, "gpio", p.num, "high", high)
		if cb != nil {
			cb(p.name, high)
		}
	}
	return nil
}

// Get returns the latched level
func (p *MemoryPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Number returns the GPIO number
func (p *MemoryPin) Number() int {
	return p.num
}

// Transitions returns how many times the level changed
func (p *MemoryPin) Transitions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transitions
}

func (p *MemoryPin) String() string {
	return fmt.Sprintf("%s(GPIO%d)", p.name, p.num)
}
