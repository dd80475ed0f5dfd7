//go:build headless

package synth

import "context"

// DefaultBackend names the device compiled into this build.
const DefaultBackend = "headless"

// DefaultDevice is the null device under another name.
func DefaultDevice(ctx context.Context, sampleRate, channels int) (Device, error) {
	return openNullDevice(ctx, DefaultBackend, sampleRate, channels, 1)
}
