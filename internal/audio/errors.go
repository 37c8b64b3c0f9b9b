// ABOUTME: Sentinel errors for the audio pipeline
// ABOUTME: Wrapped with context by the source and streamer
package audio

import "errors"

var (
	// ErrEmptySource is returned when the PCM asset has no bytes
	ErrEmptySource = errors.New("audio: pcm source is empty")

	// ErrShortRead is returned when the asset shrank underneath us
	ErrShortRead = errors.New("audio: short read from pcm source")

	// ErrInvalidGeometry is returned for unsupported frame layouts
	ErrInvalidGeometry = errors.New("audio: invalid frame geometry")

	// ErrInvalidFrameCount is returned when a buffer of zero frames is requested
	ErrInvalidFrameCount = errors.New("audio: frame count must be > 0")

	// ErrStreamerClosed is returned by Next after Close
	ErrStreamerClosed = errors.New("audio: streamer closed")
)
