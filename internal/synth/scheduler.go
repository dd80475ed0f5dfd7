package synth

// ScheduledNote is one tone of a generated track, timed relative to the track start.
type ScheduledNote struct {
	Frequency float64 // Hz
	Shape     Waveform
	Offset    float64 // seconds after track start, >= 0
	Duration  float64 // seconds, > 0
	Stream    int     // index of the preset layer that produced the note
}

// End returns the offset at which the note stops.
func (n ScheduledNote) End() float64 {
	return n.Offset + n.Duration
}

// Track is the output of one Generate call.
type Track struct {
	Genre    Genre
	Start    float64 // absolute output-clock time the offsets are relative to
	Notes    []ScheduledNote
	Duration float64 // nominal length, see Preset.TotalDuration
}

// Scheduler turns presets into timed note sequences.
type Scheduler struct {
	rand RandomSource
}

// NewScheduler creates a scheduler drawing pitches from src.
// A nil src falls back to a SeededRNG seeded with DefaultSeed.
func NewScheduler(src RandomSource) *Scheduler {
	if src == nil {
		src = NewSeededRNG(DefaultSeed())
	}
	return &Scheduler{rand: src}
}

// Generate walks the preset once. Iteration i starts at i*Step(); every layer
// contributes one note per iteration, so each stream's offsets only grow.
func (s *Scheduler) Generate(p Preset, trackStart float64) Track {
	notes := make([]ScheduledNote, 0, p.NotesPerTrack())
	step := p.Step()
	for i := 0; i < p.NoteCount; i++ {
		base := float64(i) * step
		for stream, layer := range p.Layers {
			notes = append(notes, ScheduledNote{
				Frequency: s.pick(layer.Pitches),
				Shape:     layer.Shape,
				Offset:    base + layer.OffsetMul*p.NoteDuration,
				Duration:  layer.DurationMul * p.NoteDuration,
				Stream:    stream,
			})
		}
	}
	return Track{
		Genre:    p.Genre,
		Start:    trackStart,
		Notes:    notes,
		Duration: p.TotalDuration(),
	}
}

func (s *Scheduler) pick(pool []float64) float64 {
	if len(pool) == 0 {
		return 0
	}
	i := s.rand.Intn(len(pool))
	if i < 0 || i >= len(pool) {
		i = 0
	}
	return pool[i]
}
