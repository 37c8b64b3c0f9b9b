// ABOUTME: Triple-buffered PCM streamer over a looping RangeReader
// ABOUTME: Keeps one buffer ready while the one two slots ahead refills in the background
package audio

import (
	"fmt"
	"sync"
)

const numBuffers = 3

type refillJob struct {
	slot   int
	offset int64
}

// Streamer hands out fixed-size views of the asset in order, hiding file
// reads behind two buffer-durations of playback.
//
// A view returned by Next is valid until the following call to Next.
// Streamer is not safe for concurrent use; it belongs to the audio context.
type Streamer struct {
	src RangeReader

	frameSize int
	buffers   [numBuffers][]byte
	current   int
	cursor    int64
	bufBytes  int

	// One in-flight refill per slot at most. done[i] is buffered so the
	// worker never blocks on a slot nobody is waiting for yet.
	jobs     chan refillJob
	done     [numBuffers]chan error
	inflight [numBuffers]bool

	closeOnce sync.Once
	closed    bool
}

// NewStreamer starts the refill worker
func NewStreamer(src RangeReader, geometry FrameGeometry) (*Streamer, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	if src.Len() < 1 {
		return nil, ErrEmptySource
	}

	s := &Streamer{
		src:       src,
		frameSize: geometry.BytesPerFrame(),
		jobs:      make(chan refillJob, numBuffers),
	}
	for i := range s.done {
		s.done[i] = make(chan error, 1)
	}

	go s.refillLoop()

	return s, nil
}

// refillLoop serializes background reads on the single asset handle
func (s *Streamer) refillLoop() {
	for job := range s.jobs {
		s.done[job.slot] <- s.src.ReadRange(s.buffers[job.slot], job.offset)
	}
}

// Next returns the next frames*bytesPerFrame bytes of the asset.
func (s *Streamer) Next(frames int) ([]byte, error) {
	if s.closed {
		return nil, ErrStreamerClosed
	}
	if frames <= 0 {
		return nil, ErrInvalidFrameCount
	}

	size := frames * s.frameSize
	total := s.src.Len()

	if size != s.bufBytes {
		// First call or frame-count change: the only synchronous fill.
		if err := s.waitAll(); err != nil {
			return nil, err
		}
		for i := range s.buffers {
			s.buffers[i] = make([]byte, size)
			off := (s.cursor + int64(i*size)) % total
			if err := s.src.ReadRange(s.buffers[i], off); err != nil {
				s.bufBytes = 0
				return nil, fmt.Errorf("prefill buffer %d: %w", i, err)
			}
		}
		s.bufBytes = size
		s.current = 0
	}

	// The slot about to be served was queued two calls ago.
	if err := s.wait(s.current); err != nil {
		s.bufBytes = 0
		return nil, fmt.Errorf("refill buffer %d: %w", s.current, err)
	}
	view := s.buffers[s.current]

	refill := (s.current + 2) % numBuffers
	if err := s.wait(refill); err != nil {
		s.bufBytes = 0
		return nil, fmt.Errorf("refill buffer %d: %w", refill, err)
	}
	s.inflight[refill] = true
	s.jobs <- refillJob{slot: refill, offset: (s.cursor + 2*int64(size)) % total}

	s.cursor = (s.cursor + int64(size)) % total
	s.current = (s.current + 1) % numBuffers

	return view, nil
}

// Cursor returns the byte position of the next buffer to be served
func (s *Streamer) Cursor() int64 {
	return s.cursor
}

// BufferBytes returns the active buffer size, 0 before the first Next
func (s *Streamer) BufferBytes() int {
	return s.bufBytes
}

func (s *Streamer) wait(slot int) error {
	if !s.inflight[slot] {
		return nil
	}
	s.inflight[slot] = false
	return <-s.done[slot]
}

func (s *Streamer) waitAll() error {
	var first error
	for i := range s.buffers {
		if err := s.wait(i); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close drains pending refills and stops the worker
func (s *Streamer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.waitAll()
		s.closed = true
		close(s.jobs)
	})
	return err
}
