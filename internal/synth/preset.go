package synth

import "fmt"

// Waveform is an oscillator shape.
type Waveform int

const (
	Square Waveform = iota
	Sawtooth
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

// Layer is one pitch stream of a preset. Every iteration of the preset
// emits exactly one note per layer.
type Layer struct {
	Name        string
	Pitches     []float64 // Hz, drawn uniformly with replacement
	Shape       Waveform
	DurationMul float64 // note duration = DurationMul * NoteDuration
	OffsetMul   float64 // start within the iteration = OffsetMul * NoteDuration
}

// Preset defines the pitch pools and timing of one genre.
type Preset struct {
	Genre        Genre
	Layers       []Layer
	NoteDuration float64 // base note duration, seconds
	NoteCount    int     // iterations
	Spacing      float64 // iteration step = NoteDuration * Spacing
}

// Step returns the start-to-start distance between iterations in seconds.
func (p Preset) Step() float64 {
	return p.NoteDuration * p.Spacing
}

// TotalDuration is the nominal track length reported to callers.
func (p Preset) TotalDuration() float64 {
	return float64(p.NoteCount) * p.NoteDuration * p.Spacing
}

// NotesPerTrack is the number of notes Generate emits for this preset.
func (p Preset) NotesPerTrack() int {
	return p.NoteCount * len(p.Layers)
}

// presets is never mutated; PresetFor hands out copies whose slices alias
// this table, so callers must treat Layer.Pitches as read-only.
var presets = map[Genre]Preset{
	// C major scale, back-to-back square notes.
	Chiptune: {
		Genre: Chiptune,
		Layers: []Layer{{
			Name:        "melody",
			Pitches:     []float64{261.63, 293.66, 329.63, 349.23, 392.00, 440.00, 493.88},
			Shape:       Square,
			DurationMul: 1,
		}},
		NoteDuration: 0.30,
		NoteCount:    8,
		Spacing:      1.0,
	},
	// Sawtooth bass held for two base notes under a square lead on the off-beat.
	Arcade: {
		Genre: Arcade,
		Layers: []Layer{
			{
				Name:        "bass",
				Pitches:     []float64{130.81, 146.83, 164.81},
				Shape:       Sawtooth,
				DurationMul: 2,
			},
			{
				Name:        "lead",
				Pitches:     []float64{523.25, 587.33, 659.25, 698.46},
				Shape:       Square,
				DurationMul: 1,
				OffsetMul:   1,
			},
		},
		NoteDuration: 0.25,
		NoteCount:    12,
		Spacing:      1.5,
	},
	// Overlapping triangle notes, slow attack.
	Rpg: {
		Genre: Rpg,
		Layers: []Layer{{
			Name:        "melody",
			Pitches:     []float64{349.23, 392.00, 440.00, 493.88, 523.25},
			Shape:       Triangle,
			DurationMul: 1,
		}},
		NoteDuration: 0.50,
		NoteCount:    6,
		Spacing:      0.8,
	},
}

// PresetFor returns the preset of g.
func PresetFor(g Genre) (Preset, error) {
	p, ok := presets[g]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrInvalidGenre, g)
	}
	return p, nil
}

// shapeEnvelope returns the attack window and peak gain for a waveform.
// Triangle attacks slower and peaks higher because it has little harmonic content.
func shapeEnvelope(w Waveform) (attack, peak float64) {
	switch w {
	case Sawtooth:
		return AttackFast, PeakSawtooth
	case Triangle:
		return AttackSoft, PeakTriangle
	default:
		return AttackFast, PeakSquare
	}
}
