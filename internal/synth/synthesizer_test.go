package synth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSynth(stub *deviceStub, opts ...Option) *Synthesizer {
	opts = append([]Option{WithDevice("fake", stub.factory), WithRandom(NewSeededRNG(77))}, opts...)
	return NewSynthesizer(opts...)
}

func TestSynthesizer_PlayReturnsNominalDuration(t *testing.T) {
	tests := []struct {
		genre  Genre
		want   time.Duration
		voices int
	}{
		{Chiptune, 2400 * time.Millisecond, 8},
		{Arcade, 4500 * time.Millisecond, 24},
		{Rpg, 2400 * time.Millisecond, 6},
	}
	for _, tt := range tests {
		t.Run(tt.genre.String(), func(t *testing.T) {
			s := newTestSynth(&deviceStub{})
			got, err := s.Play(tt.genre)
			if err != nil {
				t.Fatalf("Play: %v", err)
			}
			if got != tt.want {
				t.Errorf("duration = %v, want %v", got, tt.want)
			}
			if n := s.Output().ActiveVoices(); n != tt.voices {
				t.Errorf("voices = %d, want %d", n, tt.voices)
			}
			if d, _ := NominalDuration(tt.genre); d != tt.want {
				t.Errorf("NominalDuration = %v, want %v", d, tt.want)
			}
		})
	}
}

func TestSynthesizer_PlayTwiceSchedulesBoth(t *testing.T) {
	s := newTestSynth(&deviceStub{})
	for _i := 0; _i < 2; _i++ {
		if _, err := s.Play(Chiptune); err != nil {
			t.Fatal(err)
		}
	}
	if n := s.Output().ActiveVoices(); n != 16 {
		t.Errorf("voices = %d, want 16", n)
	}
	s.Stop()
	if n := s.Output().ActiveVoices(); n != 0 {
		t.Errorf("voices after Stop = %d", n)
	}
}

func TestSynthesizer_InvalidGenre(t *testing.T) {
	stub := &deviceStub{}
	s := newTestSynth(stub)

	if _, err := ParseGenre("unknown-genre"); !errors.Is(err, ErrInvalidGenre) {
		t.Errorf("ParseGenre err = %v", err)
	}
	d, err := s.Play(Genre(-1))
	if !IsInvalidArgument(err) || d != 0 {
		t.Fatalf("Play(-1) = %v, %v", d, err)
	}
	if s.Output().ActiveVoices() != 0 {
		t.Error("invalid genre scheduled voices")
	}
	if stub.Calls() != 0 {
		t.Error("invalid genre touched the device")
	}
}

func TestSynthesizer_DeviceUnavailableSurfacedOnce(t *testing.T) {
	stub := &deviceStub{err: errNoSoundCard}
	s := newTestSynth(stub)

	if _, err := s.Play(Chiptune); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("first Play err = %v", err)
	}
	for _i := 0; _i < 3; _i++ {
		d, err := s.Play(Arcade)
		if err != nil || d != 0 {
			t.Fatalf("later Play = %v, %v, want silent no-op", d, err)
		}
	}
	if stub.Calls() != 1 {
		t.Errorf("factory calls = %d, want 1", stub.Calls())
	}
	if s.IsInitialized() {
		t.Error("IsInitialized = true")
	}
	s.Stop()

	// Explicit Initialize retries; Play works afterwards.
	stub.err = nil
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d, err := s.Play(Rpg); err != nil || d == 0 {
		t.Errorf("Play after Initialize = %v, %v", d, err)
	}
}

func TestSynthesizer_ExplicitInitializeFailureKeepsPlaySilent(t *testing.T) {
	stub := &deviceStub{err: errNoSoundCard}
	s := newTestSynth(stub)
	if err := s.Initialize(context.Background()); err == nil {
		t.Fatal("Initialize succeeded")
	}
	if d, err := s.Play(Chiptune); err != nil || d != 0 {
		t.Errorf("Play = %v, %v", d, err)
	}
	if stub.Calls() != 1 {
		t.Errorf("factory calls = %d, want 1", stub.Calls())
	}
}

func TestSynthesizer_ConcurrentFirstPlayReportsFailureOnce(t *testing.T) {
	var calls atomic.Int32
	slowFailure := func(context.Context, int, int) (Device, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return nil, errNoSoundCard
	}
	s := NewSynthesizer(WithDevice("fake", slowFailure))

	var failures atomic.Int32
	var wg sync.WaitGroup
	for _i := 0; _i < 8; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Play(Chiptune); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("factory calls = %d, want 1", n)
	}
	if n := failures.Load(); n != 1 {
		t.Errorf("Play reported the failure %d times, want 1", n)
	}
}

// renderUntil pulls c in 10ms quanta on its own goroutine until stop closes.
func renderUntil(c *OutputContext, stop <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]float32, quantumFrames(c.SampleRate())*ChannelCount)
		for {
			select {
			case <-stop:
				return
			default:
			}
			c.Render(buf)
		}
	}()
	return done
}

func TestSynthesizer_DrainWaitsForLastNote(t *testing.T) {
	tests := []struct {
		genre   Genre
		lastEnd float64 // end of the final note, seconds after the anchor
	}{
		{Chiptune, 2.4},
		{Arcade, 11*0.375 + 0.25 + 0.25},
		{Rpg, 5*0.4 + 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.genre.String(), func(t *testing.T) {
			s := newTestSynth(&deviceStub{})
			nominal, err := s.Play(tt.genre)
			if err != nil {
				t.Fatal(err)
			}

			stop := make(chan struct{})
			done := renderUntil(s.Output(), stop)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.Drain(ctx)
			close(stop)
			<-done
			if err != nil {
				t.Fatalf("Drain: %v", err)
			}

			if n := s.Output().ActiveVoices(); n != 0 {
				t.Fatalf("voices after Drain = %d", n)
			}
			if now := s.Output().Now(); now < tt.lastEnd {
				t.Errorf("Drain returned at %.3fs, last note ends at %.3fs (nominal %v)", now, tt.lastEnd, nominal)
			}
		})
	}
}

func TestOutputContext_DrainHonoursContext(t *testing.T) {
	c := newTestOutput(t, &deviceStub{})
	if err := c.Drain(context.Background()); err != nil {
		t.Fatalf("Drain with no voices: %v", err)
	}

	if _, err := c.Schedule(NewScheduler(NewSeededRNG(3)).Generate(mustPreset(t, Rpg), 0)); err != nil {
		t.Fatal(err)
	}
	// Nothing renders, so the voices never finish.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Drain err = %v, want deadline exceeded", err)
	}
}

func TestSynthesizer_SetVolume(t *testing.T) {
	s := newTestSynth(&deviceStub{}, WithVolume(40))
	if s.Volume() != 40 {
		t.Errorf("Volume = %d, want 40", s.Volume())
	}
	if err := s.SetVolume(101); !IsInvalidArgument(err) {
		t.Errorf("SetVolume(101) err = %v", err)
	}
	if err := s.SetVolume(10); err != nil {
		t.Fatal(err)
	}
	if got := s.Output().MasterGain(); !approxEqual(got, 0.03, 1e-12) {
		t.Errorf("gain = %v, want 0.03", got)
	}
}

func TestSynthesizer_ScriptedTrackLandsOnClock(t *testing.T) {
	stub := &deviceStub{}
	s := NewSynthesizer(WithDevice("fake", stub.factory), WithRandom(&scriptedRandom{seq: []int{6}}))
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Output().Render(make([]float32, 100*ChannelCount))
	if _, err := s.Play(Chiptune); err != nil {
		t.Fatal(err)
	}

	var starts []int64
	s.Output().mu.Lock()
	s.Output().voices.Each(func(_ Handle, v *Voice) {
		if v.Frequency != 493.88 {
			t.Errorf("frequency %v, want 493.88", v.Frequency)
		}
		starts = append(starts, v.Start)
	})
	s.Output().mu.Unlock()

	seen := map[int64]bool{}
	for _, st := range starts {
		seen[st] = true
	}
	for i := 0; i < 8; i++ {
		want := 100 + int64(i)*13230
		if !seen[want] {
			t.Errorf("no voice starting at frame %d (have %v)", want, starts)
		}
	}
}
