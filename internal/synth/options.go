package synth

import (
	"io"
	"log/slog"
)

type options struct {
	backend    string
	device     DeviceFactory
	logger     *slog.Logger
	random     RandomSource
	sampleRate int
	volume     int
}

// Option configures an OutputContext or Synthesizer.
type Option func(*options)

func defaultOptions() options {
	return options{
		backend:    DefaultBackend,
		device:     DefaultDevice,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		sampleRate: SampleRate,
		volume:     DefaultVolume,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDevice replaces the compiled-in output device.
func WithDevice(backend string, f DeviceFactory) Option {
	return func(o *options) {
		if f != nil {
			o.backend = backend
			o.device = f
		}
	}
}

// WithLogger sets the structured logger. Output is discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRandom sets the pitch source. Tests pass a scripted source here.
func WithRandom(r RandomSource) Option {
	return func(o *options) { o.random = r }
}

// WithSampleRate overrides SampleRate.
func WithSampleRate(rate int) Option {
	return func(o *options) {
		if rate > 0 {
			o.sampleRate = rate
		}
	}
}

// WithVolume sets the initial volume percent. Out-of-range values are clamped.
func WithVolume(percent int) Option {
	return func(o *options) { o.volume = clampVolume(percent) }
}

func clampVolume(percent int) int {
	if percent < MinVolume {
		return MinVolume
	}
	if percent > MaxVolume {
		return MaxVolume
	}
	return percent
}
