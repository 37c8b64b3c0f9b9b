// ABOUTME: Sentinel errors for GPIO and serial audio bus backends
// ABOUTME: Wrapped with pin/backend context by callers
package hardware

import "errors"

var (
	// ErrUnsupportedFormat is returned when a backend cannot clock the geometry
	ErrUnsupportedFormat = errors.New("hardware: unsupported bus format")

	// ErrBusClosed is returned by Write after Close
	ErrBusClosed = errors.New("hardware: bus closed")

	// ErrBusNotOpen is returned by Write before Open
	ErrBusNotOpen = errors.New("hardware: bus not open")
)
