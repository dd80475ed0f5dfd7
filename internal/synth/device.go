package synth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Source produces interleaved float32 frames on demand. OutputContext is the
// only implementation; devices call Render from their own audio thread.
type Source interface {
	Render(dst []float32)
}

// Device is a physical (or null) audio output.
type Device interface {
	// Start begins pulling samples from src. It must not block.
	Start(src Source) error
	Close() error
}

// DeviceFactory opens a device. Implementations return a *DeviceError on failure.
type DeviceFactory func(ctx context.Context, sampleRate, channels int) (Device, error)

// quantumFrames is the number of frames in one OutputQuantum at sampleRate.
func quantumFrames(sampleRate int) int {
	return max(int(int64(sampleRate)*int64(OutputQuantum)/int64(time.Second)), 1)
}

// NullBackend names the device that never produces sound.
const NullBackend = "null"

// NullDevice opens a silent sink. It pulls the source at real-time rate and
// discards the samples, so the clock advances and finished voices are
// released exactly as with a sound card.
func NullDevice(ctx context.Context, sampleRate, channels int) (Device, error) {
	return openNullDevice(ctx, NullBackend, sampleRate, channels, 1)
}

func openNullDevice(ctx context.Context, backend string, sampleRate, channels int, speed float64) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DeviceError{Backend: backend, Cause: err}
	}
	return &nullDevice{sampleRate: sampleRate, channels: channels, speed: speed}, nil
}

type nullDevice struct {
	sampleRate int
	channels   int
	speed      float64 // clock rate relative to wall time; tests run faster

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (d *nullDevice) Start(src Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.pull(src, d.stop, d.done)
	return nil
}

// pull renders whatever the wall clock says is due, one quantum at a time.
func (d *nullDevice) pull(src Source, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	quantum := quantumFrames(d.sampleRate)
	buf := make([]float32, quantum*d.channels)
	tick := time.NewTicker(OutputQuantum)
	defer tick.Stop()

	began := time.Now()
	var rendered int64
	for {
		select {
		case <-stop:
			return
		case now := <-tick.C:
			due := int64(now.Sub(began).Seconds() * d.speed * float64(d.sampleRate))
			for rendered < due {
				n := int(min(due-rendered, int64(quantum)))
				src.Render(buf[:n*d.channels])
				rendered += int64(n)
			}
		}
	}
}

func (d *nullDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	<-d.done
	d.stop = nil
	return nil
}

// LookupBackend resolves a backend name as given on the command line.
// The empty string and "default" select the device compiled into the build.
func LookupBackend(name string) (string, DeviceFactory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default", DefaultBackend:
		return DefaultBackend, DefaultDevice, nil
	case NullBackend, "none":
		return NullBackend, NullDevice, nil
	}
	return "", nil, fmt.Errorf("unknown audio backend %q (want %q or %q)", name, DefaultBackend, NullBackend)
}

// sharedOpener holds a process-wide output connection that may be opened
// only once, such as an oto context. A caller that gives up waiting for
// readiness leaves the connection in place for the next attempt.
type sharedOpener[T any] struct {
	open func(sampleRate, channels int) (T, chan struct{}, error)

	mu         sync.Mutex
	opened     bool
	val        T
	ready      chan struct{}
	sampleRate int
	channels   int
}

func (s *sharedOpener[T]) get(ctx context.Context, sampleRate, channels int) (T, error) {
	var zero T
	s.mu.Lock()
	if !s.opened {
		v, ready, err := s.open(sampleRate, channels)
		if err != nil {
			s.mu.Unlock()
			return zero, err
		}
		s.opened, s.val, s.ready = true, v, ready
		s.sampleRate, s.channels = sampleRate, channels
	} else if s.sampleRate != sampleRate || s.channels != channels {
		s.mu.Unlock()
		return zero, fmt.Errorf("already open at %d Hz x %d, cannot reopen at %d Hz x %d",
			s.sampleRate, s.channels, sampleRate, channels)
	}
	v, ready := s.val, s.ready
	s.mu.Unlock()

	select {
	case <-ready:
		return v, nil
	case <-ctx.Done():
		return zero, fmt.Errorf("waiting for device: %w", ctx.Err())
	}
}
