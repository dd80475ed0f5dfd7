package synth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeDevice records the source it was started with and never pulls it;
// tests drive Render by hand.
type fakeDevice struct {
	mu      sync.Mutex
	src     Source
	started int
	closed  int
}

func (d *fakeDevice) Start(src Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.src = src
	d.started++
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// deviceStub counts factory calls and fails while err is set.
type deviceStub struct {
	mu     sync.Mutex
	calls  int
	err    error
	device *fakeDevice
}

func (s *deviceStub) factory(ctx context.Context, sampleRate, channels int) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.device == nil {
		s.device = &fakeDevice{}
	}
	return s.device, nil
}

func (s *deviceStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errNoSoundCard = errors.New("no sound card")

// scriptedRandom returns the given indices in order, then repeats the last one.
type scriptedRandom struct {
	seq []int
	pos int
}

func (r *scriptedRandom) Intn(n int) int {
	if len(r.seq) == 0 {
		return 0
	}
	i := r.seq[min(r.pos, len(r.seq)-1)]
	r.pos++
	return i % n
}

func newTestOutput(t *testing.T, stub *deviceStub) *OutputContext {
	t.Helper()
	c := NewOutputContext(WithDevice("fake", stub.factory))
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return c
}

func mustPreset(t *testing.T, g Genre) Preset {
	t.Helper()
	p, err := PresetFor(g)
	if err != nil {
		t.Fatalf("PresetFor(%s): %v", g, err)
	}
	return p
}

func approxEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}
