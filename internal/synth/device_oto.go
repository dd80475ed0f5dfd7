//go:build !headless && !portaudio

package synth

import (
	"context"
	"math"
	"sync"

	"github.com/hajimehoshi/oto/v2"
)

// DefaultBackend names the device compiled into this build.
const DefaultBackend = "oto"

// otoContext is created at most once per process, as oto requires. A
// DefaultDevice call that times out before the context is ready leaves it
// here for the next Initialize.
var otoContext = sharedOpener[*oto.Context]{
	open: func(sampleRate, channels int) (*oto.Context, chan struct{}, error) {
		return oto.NewContext(sampleRate, channels, oto.FormatFloat32LE)
	},
}

// DefaultDevice opens the oto output.
func DefaultDevice(ctx context.Context, sampleRate, channels int) (Device, error) {
	c, err := otoContext.get(ctx, sampleRate, channels)
	if err != nil {
		return nil, &DeviceError{Backend: DefaultBackend, Cause: err}
	}
	return &otoDevice{ctx: c, bufferBytes: playerBufferBytes(sampleRate)}, nil
}

// playerBufferBytes is one OutputQuantum of float32 frames. oto's default
// read-ahead is half a second, which would delay StopAll by as much.
func playerBufferBytes(sampleRate int) int {
	return quantumFrames(sampleRate) * FrameBytes
}

type otoDevice struct {
	mu          sync.Mutex
	ctx         *oto.Context
	player      oto.Player
	bufferBytes int
}

func (d *otoDevice) Start(src Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player != nil {
		return nil
	}
	d.player = d.ctx.NewPlayer(&pcmReader{src: src})
	if bs, ok := d.player.(oto.BufferSizeSetter); ok {
		bs.SetBufferSize(d.bufferBytes)
	}
	d.player.Play()
	return d.player.Err()
}

func (d *otoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}

// pcmReader adapts a Source to the io.Reader oto pulls float32 LE bytes from.
// It never returns io.EOF; the stream runs until the player is closed.
type pcmReader struct {
	src Source
	buf []float32
}

func (r *pcmReader) Read(p []byte) (int, error) {
	frames := len(p) / FrameBytes
	if frames == 0 {
		return 0, nil
	}
	n := frames * ChannelCount
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	samples := r.buf[:n]
	r.src.Render(samples)
	for i, s := range samples {
		putF32(p, i, s)
	}
	return frames * FrameBytes, nil
}

// putF32 writes sample i as float32 LE.
func putF32(buf []byte, i int, sample float32) {
	v := math.Float32bits(sample)
	buf[i*4] = byte(v)
	buf[i*4+1] = byte(v >> 8)
	buf[i*4+2] = byte(v >> 16)
	buf[i*4+3] = byte(v >> 24)
}
