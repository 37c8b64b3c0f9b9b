// ABOUTME: Single-slot control mailbox shared by the network and audio contexts
// ABOUTME: One lock guards the play slot, the gain slot and the playing flag
package mailbox

import (
	"errors"
	"sync"
	"time"
)

// ErrPlaybackBusy is returned by PostPlay while a playback is in flight
var ErrPlaybackBusy = errors.New("audio already playing, request rejected")

// PlayRequest asks the audio context to stream for Duration at Volume [0,1]
type PlayRequest struct {
	Duration time.Duration
	Volume   float64
}

// GainRequest asks for amplifier gain Level (0-3)
type GainRequest struct {
	Level int
}

// PlaybackState is Idle or Playing
type PlaybackState int

const (
	Idle PlaybackState = iota
	Playing
)

func (s PlaybackState) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

// Mailbox is the only mutable state shared between the two contexts.
// The lock is held for field reads and writes only.
type Mailbox struct {
	mu      sync.Mutex
	play    *PlayRequest
	gain    *GainRequest
	playing bool
}

// New creates an idle, empty mailbox
func New() *Mailbox {
	return &Mailbox{}
}

// PostPlay stores req and marks the system Playing, unless a playback is
// already in flight.
func (m *Mailbox) PostPlay(req PlayRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playing {
		return ErrPlaybackBusy
	}
	m.play = &req
	m.playing = true
	return nil
}

// TakePlay returns and clears the pending play request
func (m *Mailbox) TakePlay() (PlayRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.play == nil {
		return PlayRequest{}, false
	}
	req := *m.play
	m.play = nil
	return req, true
}

// MarkIdle re-opens the mailbox for plays. The audio context calls it
// exactly once per taken play request, whatever the outcome.
func (m *Mailbox) MarkIdle() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
}

// State reports Idle or Playing
func (m *Mailbox) State() PlaybackState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playing {
		return Playing
	}
	return Idle
}

// PostGain overwrites any unconsumed gain request
func (m *Mailbox) PostGain(req GainRequest) {
	m.mu.Lock()
	m.gain = &req
	m.mu.Unlock()
}

// TakeGain returns and clears the pending gain request
func (m *Mailbox) TakeGain() (GainRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gain == nil {
		return GainRequest{}, false
	}
	req := *m.gain
	m.gain = nil
	return req, true
}
