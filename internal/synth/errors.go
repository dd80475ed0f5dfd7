package synth

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes.
var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrInvalidGenre      = errors.New("invalid genre")
	ErrInvalidVolume     = errors.New("volume out of range")
	ErrClosed            = errors.New("output context closed")
)

// DeviceError reports a failed output device construction.
type DeviceError struct {
	Backend string // "oto", "portaudio", "headless"
	Cause   error
}

func (e *DeviceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s backend: %v", ErrDeviceUnavailable, e.Backend, e.Cause)
	}
	return fmt.Sprintf("%s: %s backend", ErrDeviceUnavailable, e.Backend)
}

// Unwrap lets errors.Is match both ErrDeviceUnavailable and the backend cause.
func (e *DeviceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrDeviceUnavailable}
	}
	return []error{ErrDeviceUnavailable, e.Cause}
}

// IsInvalidArgument reports whether err was caused by a bad caller input.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidGenre) || errors.Is(err, ErrInvalidVolume)
}
