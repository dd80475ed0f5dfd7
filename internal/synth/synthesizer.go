package synth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Synthesizer is the entry point callers use: it picks the preset for a
// genre, generates the notes and schedules them on the output context.
// Playback is fire-and-forget; only the nominal duration comes back.
type Synthesizer struct {
	out    *OutputContext
	sched  *Scheduler
	logger *slog.Logger

	mu          sync.Mutex // serializes Generate so scripted sources stay in order
	initTimeout time.Duration
}

// NewSynthesizer creates a synthesizer. The device is opened lazily by the
// first Play or an explicit Initialize.
func NewSynthesizer(opts ...Option) *Synthesizer {
	o := buildOptions(opts)
	return &Synthesizer{
		out:         newOutputContext(o),
		sched:       NewScheduler(o.random),
		logger:      o.logger,
		initTimeout: DeviceReadyTimeoutSeconds * time.Second,
	}
}

// Output exposes the underlying output context.
func (s *Synthesizer) Output() *OutputContext {
	return s.out
}

// Initialize opens the output device. Unlike Play it retries after a
// previous failure, so callers can offer an explicit "enable sound" action.
func (s *Synthesizer) Initialize(ctx context.Context) error {
	return s.out.Initialize(ctx)
}

// IsInitialized reports whether the output device is open.
func (s *Synthesizer) IsInitialized() bool {
	return s.out.IsInitialized()
}

// Play schedules one generated track for genre g starting now and returns its
// nominal duration. An invalid genre fails before anything is scheduled.
// The first device failure is returned once; after that Play is a silent
// no-op returning zero until Initialize succeeds.
func (s *Synthesizer) Play(g Genre) (time.Duration, error) {
	preset, err := PresetFor(g)
	if err != nil {
		return 0, err
	}
	if err := s.ensureInitialized(); err != nil {
		return 0, err
	}
	if !s.out.IsInitialized() {
		return 0, nil
	}

	s.mu.Lock()
	track := s.sched.Generate(preset, s.out.Now())
	s.mu.Unlock()

	handles, err := s.out.Schedule(track)
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", g, err)
	}
	s.logger.Debug("track scheduled",
		slog.String("genre", g.String()),
		slog.Int("voices", len(handles)),
		slog.Float64("duration_s", track.Duration))
	return secondsToDuration(track.Duration), nil
}

func (s *Synthesizer) ensureInitialized() error {
	if s.out.IsInitialized() || s.out.Attempted() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.initTimeout)
	defer cancel()
	return s.out.initializeOnce(ctx)
}

// Stop cuts every voice of every track.
func (s *Synthesizer) Stop() {
	s.out.StopAll()
}

// SetVolume sets the master volume percent (0-100).
func (s *Synthesizer) SetVolume(percent int) error {
	if err := s.out.SetVolume(percent); err != nil {
		return fmt.Errorf("set volume %d: %w", percent, err)
	}
	return nil
}

// Volume returns the master volume percent.
func (s *Synthesizer) Volume() int {
	return s.out.Volume()
}

// Drain waits until every note played so far has sounded to its end,
// including the tails that run past the nominal duration, plus one output
// quantum for the device's read-ahead.
func (s *Synthesizer) Drain(ctx context.Context) error {
	if err := s.out.Drain(ctx); err != nil {
		return err
	}
	if !s.out.IsInitialized() {
		return nil
	}
	t := time.NewTimer(OutputQuantum)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close releases the output device.
func (s *Synthesizer) Close() error {
	return s.out.Close()
}

// NominalDuration returns the reported length of a track of genre g.
func NominalDuration(g Genre) (time.Duration, error) {
	p, err := PresetFor(g)
	if err != nil {
		return 0, err
	}
	return secondsToDuration(p.TotalDuration()), nil
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1e6)) * time.Microsecond
}
