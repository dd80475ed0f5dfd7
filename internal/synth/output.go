package synth

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// OutputContext owns the output device, the master gain stage and every
// scheduled voice. Render is called from the device's audio thread; all
// other methods may be called from any goroutine.
type OutputContext struct {
	backend    string
	factory    DeviceFactory
	logger     *slog.Logger
	sampleRate int

	initMu      sync.Mutex
	device      Device
	attempted   atomic.Bool
	initialized atomic.Bool
	closed      bool

	gain   atomic.Uint64 // float64 bits
	volume atomic.Int32

	mu     sync.Mutex // guards voices, frame and mix
	voices *registry
	frame  int64
	mix    []float64
	clock  atomic.Int64 // mirrors frame for lock-free Now
}

// NewOutputContext creates an uninitialized context. No device is opened
// until Initialize.
func NewOutputContext(opts ...Option) *OutputContext {
	o := buildOptions(opts)
	return newOutputContext(o)
}

func newOutputContext(o options) *OutputContext {
	c := &OutputContext{
		backend:    o.backend,
		factory:    o.device,
		logger:     o.logger,
		sampleRate: o.sampleRate,
		voices:     newRegistry(64),
	}
	c.storeVolume(o.volume)
	return c
}

// Initialize opens the device and starts it pulling from this context.
// It is a no-op once it has succeeded. A failure leaves the context
// uninitialized and is returned as a *DeviceError.
func (c *OutputContext) Initialize(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.initialized.Load() {
		return nil
	}
	return c.initLocked(ctx)
}

// initializeOnce is the implicit path used by Play: it opens the device only
// if no attempt has been made yet, so a failure is reported exactly once even
// when several first calls race.
func (c *OutputContext) initializeOnce(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.closed || c.initialized.Load() || c.attempted.Load() {
		return nil
	}
	return c.initLocked(ctx)
}

// initLocked opens and starts the device. initMu must be held.
func (c *OutputContext) initLocked(ctx context.Context) error {
	c.attempted.Store(true)

	dev, err := c.factory(ctx, c.sampleRate, ChannelCount)
	if err != nil {
		var derr *DeviceError
		if !errors.As(err, &derr) {
			err = &DeviceError{Backend: c.backend, Cause: err}
		}
		c.logger.Warn("audio init failed (continuing without sound)",
			slog.String("backend", c.backend), slog.Any("error", err))
		return err
	}
	if err := dev.Start(c); err != nil {
		_ = dev.Close()
		err = &DeviceError{Backend: c.backend, Cause: err}
		c.logger.Warn("audio start failed (continuing without sound)",
			slog.String("backend", c.backend), slog.Any("error", err))
		return err
	}

	c.device = dev
	c.initialized.Store(true)
	c.logger.Info("audio output ready",
		slog.String("backend", c.backend),
		slog.Int("sample_rate", c.sampleRate),
		slog.Float64("master_gain", c.MasterGain()))
	return nil
}

// IsInitialized reports whether a device is open.
func (c *OutputContext) IsInitialized() bool {
	return c.initialized.Load()
}

// Attempted reports whether Initialize has run at least once.
func (c *OutputContext) Attempted() bool {
	return c.attempted.Load()
}

// SetVolume sets the master gain to percent/100 * MasterCeiling.
// It is safe to call while voices are rendering.
func (c *OutputContext) SetVolume(percent int) error {
	if percent < MinVolume || percent > MaxVolume {
		return ErrInvalidVolume
	}
	c.storeVolume(percent)
	return nil
}

func (c *OutputContext) storeVolume(percent int) {
	c.volume.Store(int32(percent))
	c.gain.Store(math.Float64bits(float64(percent) / MaxVolume * MasterCeiling))
}

// Volume returns the current volume percent.
func (c *OutputContext) Volume() int {
	return int(c.volume.Load())
}

// MasterGain returns the linear gain applied to the voice mix.
func (c *OutputContext) MasterGain() float64 {
	return math.Float64frombits(c.gain.Load())
}

// Now returns the output clock in seconds: frames rendered so far.
func (c *OutputContext) Now() float64 {
	return float64(c.clock.Load()) / float64(c.sampleRate)
}

// SampleRate returns the frame rate of the output clock.
func (c *OutputContext) SampleRate() int {
	return c.sampleRate
}

// Schedule turns every note of the track into a voice. Voices anchored
// before the current frame are moved up to it so no note loses its attack.
func (c *OutputContext) Schedule(t Track) ([]Handle, error) {
	if !c.initialized.Load() {
		return nil, ErrDeviceUnavailable
	}
	anchor := int64(math.Round(t.Start * float64(c.sampleRate)))

	c.mu.Lock()
	defer c.mu.Unlock()
	if anchor < c.frame {
		anchor = c.frame
	}
	handles := make([]Handle, 0, len(t.Notes))
	for _, n := range t.Notes {
		handles = append(handles, c.voices.Acquire(NewVoice(n, anchor, c.sampleRate)))
	}
	return handles, nil
}

// Stop cuts a single voice. Stopping a voice that already ended is a no-op.
func (c *OutputContext) Stop(h Handle) {
	c.mu.Lock()
	c.voices.Release(h)
	c.mu.Unlock()
}

// Voice returns the voice behind h while it is still registered.
func (c *OutputContext) Voice(h Handle) (Voice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voices.Get(h)
}

// StopAll releases every scheduled or sounding voice. The next Render
// quantum is already silent.
func (c *OutputContext) StopAll() {
	c.mu.Lock()
	n := c.voices.Clear()
	c.mu.Unlock()
	if n > 0 {
		c.logger.Debug("stopped voices", slog.Int("count", n))
	}
}

// ActiveVoices returns how many voices are scheduled or sounding.
func (c *OutputContext) ActiveVoices() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voices.Len()
}

// Render mixes all voices into dst as interleaved frames and advances the
// clock by len(dst)/ChannelCount frames. Voices past their stop frame are
// released afterwards.
func (c *OutputContext) Render(dst []float32) {
	frames := len(dst) / ChannelCount
	if frames == 0 {
		return
	}
	gain := c.MasterGain()

	c.mu.Lock()
	defer c.mu.Unlock()

	if cap(c.mix) < frames {
		c.mix = make([]float64, frames)
	}
	mix := c.mix[:frames]
	clear(mix)

	start := c.frame
	end := start + int64(frames)
	c.voices.Each(func(h Handle, v *Voice) {
		if v.Start < end && v.Stop > start {
			from := max(v.Start, start)
			to := min(v.Stop, end)
			for f := from; f < to; f++ {
				mix[f-start] += v.sample(f, c.sampleRate)
			}
		}
		if v.Done(end) {
			c.voices.Release(h)
		}
	})

	for i, s := range mix {
		out := float32(clampSample(s * gain))
		for ch := 0; ch < ChannelCount; ch++ {
			dst[i*ChannelCount+ch] = out
		}
	}
	// Trailing samples of a partial frame stay silent.
	for i := frames * ChannelCount; i < len(dst); i++ {
		dst[i] = 0
	}

	c.frame = end
	c.clock.Store(end)
}

// Drain blocks until every scheduled voice has finished or ctx is done.
// Voices only finish while a device pulls Render.
func (c *OutputContext) Drain(ctx context.Context) error {
	if c.ActiveVoices() == 0 {
		return nil
	}
	tick := time.NewTicker(drainPollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if c.ActiveVoices() == 0 {
				return nil
			}
		}
	}
}

// Close stops every voice and releases the device. The context cannot be
// initialized again afterwards.
func (c *OutputContext) Close() error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.StopAll()
	c.initialized.Store(false)
	if c.device == nil {
		return nil
	}
	err := c.device.Close()
	c.device = nil
	return err
}

func clampSample(s float64) float64 {
	return math.Max(math.Min(s, 1.0), -1.0)
}
