// ABOUTME: Connection state machine types for the control plane
// ABOUTME: Disconnected, Connecting(attempt, delay) and Connected(ip)
package network

import (
	"fmt"
	"math"
	"time"
)

// Phase is the coarse link state
type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Connected
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ConnectionState is one step of the association state machine.
// Attempt and Delay are set while Connecting, IP while Connected.
type ConnectionState struct {
	Phase   Phase
	Attempt int
	Delay   time.Duration
	IP      string
}

func (s ConnectionState) String() string {
	switch s.Phase {
	case Connecting:
		return fmt.Sprintf("connecting (attempt %d, delay %v)", s.Attempt, s.Delay)
	case Connected:
		return fmt.Sprintf("connected (%s)", s.IP)
	default:
		return "disconnected"
	}
}

// Status is what /status reports and what the status screen shows
type Status struct {
	State         ConnectionState
	ServerRunning bool
	Addr          string
}

// secondsToDuration saturates instead of overflowing
func secondsToDuration(s float64) time.Duration {
	if s >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(s * float64(time.Second))
}
