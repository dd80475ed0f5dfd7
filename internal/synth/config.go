package synth

import "time"

// Output format.
const (
	SampleRate   = 44100
	ChannelCount = 2 // float32 LE stereo frames, mono signal duplicated
	FrameBytes   = 4 * ChannelCount
)

// Master gain stage.
// MasterCeiling is the gain at 100% volume; it leaves headroom for overlapping voices.
const (
	MasterCeiling  = 0.3
	DefaultVolume  = 75
	MaxVolume      = 100
	MinVolume      = 0
	VolumeFraction = 1.0 / MaxVolume
)

// Envelope shape.
const (
	EnvelopeFloor  = 0.001
	AttackFast     = 0.01 // Square, Sawtooth
	AttackSoft     = 0.05 // Triangle
	PeakSquare     = 0.10
	PeakSawtooth   = 0.08
	PeakTriangle   = 0.12
	minEnvelopeLen = 1e-6
)

// Device.
// OutputQuantum bounds how far the output clock runs ahead of the speakers,
// and so how late StopAll and SetVolume are heard.
const (
	DeviceReadyTimeoutSeconds = 2
	PortAudioFramesPerBuffer  = 512
	OutputQuantum             = 10 * time.Millisecond
	drainPollInterval         = 5 * time.Millisecond
)

// SeedEnv overrides the default random seed when set to an unsigned integer.
const SeedEnv = "RETROSYNTH_SEED"
