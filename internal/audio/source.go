// ABOUTME: File-backed raw PCM source with wrap-around range reads
// ABOUTME: Every offset is taken modulo the asset length
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// RangeReader delivers an arbitrary byte range of a looping asset
type RangeReader interface {
	// ReadRange fills dst completely starting at offset, wrapping at end of asset
	ReadRange(dst []byte, offset int64) error
	// Len returns the asset length in bytes
	Len() int64
}

// Source owns the raw PCM asset. It is never mutated after construction.
type Source struct {
	r      io.ReaderAt
	closer io.Closer
	size   int64
}

// OpenSource opens a raw PCM file and records its length
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcm asset: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat pcm asset: %w", err)
	}

	src, err := NewSource(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = f
	return src, nil
}

// NewSource wraps any ReaderAt of known size
func NewSource(r io.ReaderAt, size int64) (*Source, error) {
	if size < 1 {
		return nil, ErrEmptySource
	}
	return &Source{r: r, size: size}, nil
}

// Len returns the asset length in bytes
func (s *Source) Len() int64 {
	return s.size
}

// ReadRange fills dst starting at offset (mod length). If the range runs
// past end of file it continues from byte 0, as many times as needed.
func (s *Source) ReadRange(dst []byte, offset int64) error {
	pos := offset % s.size
	if pos < 0 {
		pos += s.size
	}

	for n := 0; n < len(dst); {
		chunk := len(dst) - n
		if rest := s.size - pos; int64(chunk) > rest {
			chunk = int(rest)
		}

		m, err := s.r.ReadAt(dst[n:n+chunk], pos)
		if m < chunk {
			if err == nil || errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: got %d of %d bytes at offset %d", ErrShortRead, m, chunk, pos)
			}
			return fmt.Errorf("pcm read at offset %d: %w", pos, err)
		}

		n += m
		pos = (pos + int64(m)) % s.size
	}

	return nil
}

// Close releases the underlying file, if any
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
