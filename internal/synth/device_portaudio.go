//go:build portaudio && !headless

package synth

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// DefaultBackend names the device compiled into this build.
const DefaultBackend = "portaudio"

// DefaultDevice initializes PortAudio. The stream itself is opened by Start
// because its callback needs the source.
func DefaultDevice(ctx context.Context, sampleRate, channels int) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DeviceError{Backend: DefaultBackend, Cause: err}
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, &DeviceError{Backend: DefaultBackend, Cause: err}
	}
	return &portaudioDevice{sampleRate: sampleRate, channels: channels}, nil
}

type portaudioDevice struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	stream     *portaudio.Stream
	closed     bool
}

func (d *portaudioDevice) Start(src Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream != nil {
		return nil
	}
	if d.closed {
		return ErrClosed
	}
	stream, err := portaudio.OpenDefaultStream(0, d.channels, float64(d.sampleRate), PortAudioFramesPerBuffer,
		func(_, out []float32) {
			src.Render(out)
		})
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start stream: %w", err)
	}
	d.stream = stream
	return nil
}

func (d *portaudioDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	var err error
	if d.stream != nil {
		if serr := d.stream.Stop(); serr != nil {
			err = fmt.Errorf("stop stream: %w", serr)
		}
		d.stream.Close()
		d.stream = nil
	}
	if terr := portaudio.Terminate(); terr != nil && err == nil {
		err = terr
	}
	return err
}
