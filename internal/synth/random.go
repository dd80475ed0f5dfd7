package synth

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// RandomSource picks pitches. Intn returns a value in [0, n).
type RandomSource interface {
	Intn(n int) int
}

// SeededRNG implements a Mulberry32 seeded pseudo-random number generator.
// The same seed always yields the same melody.
type SeededRNG struct {
	mu          sync.Mutex
	state       uint32
	initialSeed uint32
}

// NewSeededRNG creates a new seeded random number generator.
func NewSeededRNG(seed uint32) *SeededRNG {
	return &SeededRNG{
		state:       seed,
		initialSeed: seed,
	}
}

// DefaultSeed returns the seed from RETROSYNTH_SEED, or one derived from the clock.
func DefaultSeed() uint32 {
	if s := os.Getenv(SeedEnv); s != "" {
		if v, err := strconv.ParseUint(s, 10, 32); err == nil {
			return uint32(v)
		}
	}
	return uint32(time.Now().UnixNano())
}

// Reset rewinds the generator to its initial seed.
func (r *SeededRNG) Reset() {
	r.mu.Lock()
	r.state = r.initialSeed
	r.mu.Unlock()
}

// Float64 returns a number in [0, 1).
func (r *SeededRNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Intn returns a number in [0, n). It returns 0 when n <= 0.
func (r *SeededRNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Float64() * float64(n))
}
