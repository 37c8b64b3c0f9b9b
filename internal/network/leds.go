// ABOUTME: The four status LEDs owned by the network context
// ABOUTME: Individual and group control plus the heartbeat and failure patterns
package network

import (
	"context"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/pcmbox/internal/hardware"
)

// LEDBank holds LEDs 1-4
type LEDBank [4]hardware.Pin

// Set drives LED num (1-4)
func (b LEDBank) Set(num int, on bool) error {
	if num < 1 || num > len(b) {
		return fmt.Errorf("invalid LED number: %d", num)
	}
	if b[num-1] == nil {
		return nil
	}
	return b[num-1].Set(on)
}

// SetAll drives every LED
func (b LEDBank) SetAll(on bool) error {
	for i := range b {
		if b[i] == nil {
			continue
		}
		if err := b[i].Set(on); err != nil {
			return err
		}
	}
	return nil
}

// BlinkAll flashes every LED count times with the given on/off interval
func (b LEDBank) BlinkAll(ctx context.Context, count int, interval time.Duration, sleep func(context.Context, time.Duration) error) error {
	for i := 0; i < count; i++ {
		b.SetAll(true)
		if err := sleep(ctx, interval); err != nil {
			b.SetAll(false)
			return err
		}
		b.SetAll(false)
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

// Pulse lights LED num for d
func (b LEDBank) Pulse(ctx context.Context, num int, d time.Duration, sleep func(context.Context, time.Duration) error) error {
	if num == 0 {
		return nil
	}
	if err := b.Set(num, true); err != nil {
		return err
	}
	err := sleep(ctx, d)
	b.Set(num, false)
	return err
}
