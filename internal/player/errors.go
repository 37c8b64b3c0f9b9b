// ABOUTME: Sentinel errors for the audio output driver
// ABOUTME: Callers match them with errors.Is
package player

import "errors"

var (
	// ErrGainOutOfRange is returned by SetGain for levels outside 0-3
	ErrGainOutOfRange = errors.New("gain level must be between 0 and 3")

	// ErrBusNotReady wraps a failure to bring up the serial audio bus
	ErrBusNotReady = errors.New("serial audio bus not ready")
)
