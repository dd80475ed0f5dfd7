package host

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"retrosynth/internal/session"
	"retrosynth/internal/synth"
)

type nopDevice struct{}

func (nopDevice) Start(synth.Source) error { return nil }
func (nopDevice) Close() error             { return nil }

type nopTimer struct{}

func (nopTimer) Stop() bool { return true }

func newController(t *testing.T, withDevice bool) (*Controller, *synth.Synthesizer) {
	t.Helper()
	factory := func(context.Context, int, int) (synth.Device, error) {
		if !withDevice {
			return nil, errors.New("no sound card")
		}
		return nopDevice{}, nil
	}
	s := synth.NewSynthesizer(synth.WithDevice("test", factory), synth.WithRandom(synth.NewSeededRNG(1)))
	t.Cleanup(func() { s.Close() })
	sess := session.New(s,
		session.WithRandom(synth.NewSeededRNG(1)),
		session.WithAfterFunc(func(time.Duration, func()) session.Timer { return nopTimer{} }),
	)
	return &Controller{Session: sess}, s
}

func TestKeyAction(t *testing.T) {
	tests := []struct {
		key  byte
		want Action
	}{
		{'1', ActionChiptune},
		{'2', ActionArcade},
		{'3', ActionRpg},
		{' ', ActionToggle},
		{'p', ActionToggle},
		{'s', ActionStop},
		{'n', ActionSkip},
		{'g', ActionGenerate},
		{'+', ActionVolumeUp},
		{'-', ActionVolumeDown},
		{'c', ActionCopy},
		{'q', ActionQuit},
		{0x03, ActionQuit},
		{'x', ActionNone},
	}
	for _, tt := range tests {
		if got := KeyAction(tt.key); got != tt.want {
			t.Errorf("KeyAction(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestDispatchPlayCycle(t *testing.T) {
	ctrl, s := newController(t, true)

	if msg, _ := ctrl.Dispatch(ActionRpg); msg != "genre: RPG" {
		t.Fatalf("select msg = %q", msg)
	}
	if msg, _ := ctrl.Dispatch(ActionToggle); msg != "playing RPG" {
		t.Fatalf("toggle msg = %q", msg)
	}
	if n := s.Output().ActiveVoices(); n != 6 {
		t.Fatalf("active voices = %d, want 6", n)
	}
	if msg, _ := ctrl.Dispatch(ActionToggle); msg != "stopped" {
		t.Fatalf("second toggle msg = %q", msg)
	}
	if n := s.Output().ActiveVoices(); n != 0 {
		t.Fatalf("voices after stop = %d", n)
	}
	if msg, _ := ctrl.Dispatch(ActionVolumeDown); msg != "volume 70%" {
		t.Fatalf("volume msg = %q", msg)
	}
	if s.Volume() != 70 {
		t.Fatalf("engine volume = %d", s.Volume())
	}
	if _, quit := ctrl.Dispatch(ActionQuit); !quit {
		t.Fatal("quit not reported")
	}
}

func TestDispatchWithoutDevice(t *testing.T) {
	ctrl, _ := newController(t, false)

	if msg, _ := ctrl.Dispatch(ActionToggle); !strings.HasPrefix(msg, "no audio device") {
		t.Fatalf("first toggle msg = %q", msg)
	}
	if msg, _ := ctrl.Dispatch(ActionToggle); msg != "no audio device" {
		t.Fatalf("second toggle msg = %q", msg)
	}
}

func TestDispatchCopy(t *testing.T) {
	ctrl, _ := newController(t, true)
	if msg, _ := ctrl.Dispatch(ActionCopy); msg != "clipboard unavailable" {
		t.Fatalf("copy without clipboard = %q", msg)
	}
	var copied string
	ctrl.Copy = func(s string) error { copied = s; return nil }
	ctrl.Dispatch(ActionCopy)
	if copied != "Pixel Adventure - Chiptune (2:45)" {
		t.Fatalf("copied %q", copied)
	}
}

const (
	testFBWidth  = 640
	testFBHeight = 360
)

func TestLayout(t *testing.T) {
	st := session.Status{Genre: synth.Arcade, Playing: true, Volume: 50}
	rects := Layout(st, 0.5, testFBWidth, testFBHeight)
	if len(rects) != 7 {
		t.Fatalf("got %d rects, want 7", len(rects))
	}
	// Selected tile is brighter than the others.
	if rects[1].G <= rects[0].G {
		t.Errorf("arcade tile not highlighted: %+v vs %+v", rects[1], rects[0])
	}
	inner := testFBWidth - 2*pad
	if got := rects[4].W; got != inner/2 {
		t.Errorf("progress width = %d, want %d", got, inner/2)
	}
	if got := rects[6].W; got != inner/2 {
		t.Errorf("volume width = %d, want %d", got, inner/2)
	}

	st.Playing = false
	if n := len(Layout(st, 0.5, testFBWidth, testFBHeight)); n != 6 {
		t.Errorf("stopped layout has %d rects, want 6", n)
	}
	if Layout(st, 0, 10, 10) != nil {
		t.Error("tiny framebuffer should draw nothing")
	}
}

func TestTerminalHost(t *testing.T) {
	ctrl, s := newController(t, true)
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var out bytes.Buffer
	h := NewTerminalHost(ctrl, r, &out, nil)
	if _, err := w.WriteString("2 xq"); err != nil {
		t.Fatal(err)
	}
	w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if ctx.Err() != nil {
		t.Fatal("host did not quit on 'q'")
	}
	text := out.String()
	for _, want := range []string{"genre: Arcade", "playing Arcade", "bye"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if n := s.Output().ActiveVoices(); n != 0 {
		t.Errorf("voices after quit = %d", n)
	}
}
