package synth

import "math"

// Envelope is a linear attack followed by an exponential decay that reaches
// EnvelopeFloor exactly at the end of the note.
type Envelope struct {
	Attack   float64 // seconds
	Duration float64 // seconds, attack included
	Peak     float64
}

// EnvelopeFor returns the envelope a note of the given shape and length gets.
func EnvelopeFor(shape Waveform, duration float64) Envelope {
	attack, peak := shapeEnvelope(shape)
	return Envelope{Attack: attack, Duration: duration, Peak: peak}
}

// At returns the gain t seconds after the note started.
func (e Envelope) At(t float64) float64 {
	if t < 0 || t >= e.Duration || e.Peak <= 0 {
		return 0
	}
	attack := math.Min(e.Attack, e.Duration)
	if t < attack {
		return e.Peak * t / attack
	}
	decay := e.Duration - attack
	if decay < minEnvelopeLen {
		return e.Peak
	}
	floor := math.Min(EnvelopeFloor, e.Peak)
	return e.Peak * math.Exp(math.Log(floor/e.Peak)*(t-attack)/decay)
}

// Voice is one scheduled tone on the output clock. It is owned by the
// voice registry from Schedule until it finishes or StopAll runs.
type Voice struct {
	Shape     Waveform
	Frequency float64
	Envelope  Envelope
	Start     int64 // first frame that produces sound
	Stop      int64 // first frame that no longer does; Stop >= Start + duration

	phase float64 // cycles, [0,1)
	inc   float64 // cycles per frame
}

// NewVoice prepares a voice for a note anchored at the given frame.
func NewVoice(n ScheduledNote, anchor int64, sampleRate int) Voice {
	start := anchor + int64(math.Round(n.Offset*float64(sampleRate)))
	length := secondsToFrames(n.Duration, sampleRate)
	if length < 1 {
		length = 1
	}
	return Voice{
		Shape:     n.Shape,
		Frequency: n.Frequency,
		Envelope:  EnvelopeFor(n.Shape, n.Duration),
		Start:     start,
		Stop:      start + length,
		inc:       n.Frequency / float64(sampleRate),
	}
}

// Done reports whether the voice has nothing left to play at frame.
func (v *Voice) Done(frame int64) bool {
	return frame >= v.Stop
}

// sample renders the voice at an absolute frame. Frames before Start are
// silent and leave the oscillator untouched.
func (v *Voice) sample(frame int64, sampleRate int) float64 {
	if frame < v.Start || frame >= v.Stop {
		return 0
	}
	t := float64(frame-v.Start) / float64(sampleRate)
	s := oscillate(v.Shape, v.phase, v.inc) * v.Envelope.At(t)
	v.phase += v.inc
	if v.phase >= 1 {
		v.phase -= math.Floor(v.phase)
	}
	return s
}

// oscillate returns one sample of a unit-amplitude waveform at phase (cycles).
// Square and sawtooth edges get a polyBLEP correction against aliasing.
func oscillate(shape Waveform, phase, dt float64) float64 {
	switch shape {
	case Square:
		s := -1.0
		if phase < 0.5 {
			s = 1.0
		}
		s += polyBLEP(phase, dt)
		s -= polyBLEP(math.Mod(phase+0.5, 1), dt)
		return s
	case Sawtooth:
		return 2*phase - 1 - polyBLEP(phase, dt)
	case Triangle:
		return triWave(2 * math.Pi * phase)
	}
	return 0
}

func triWave(phase float64) float64 {
	return (2.0 / math.Pi) * math.Asin(math.Sin(phase))
}

// polyBLEP applies polynomial band-limited step correction.
// t is the normalized phase position (0.0-1.0), dt the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1.0
	} else if t > 1.0-dt {
		t = (t - 1.0) / dt
		return t*t + t + t + 1.0
	}
	return 0.0
}

// secondsToFrames rounds up so a voice never stops before its nominal end.
func secondsToFrames(sec float64, sampleRate int) int64 {
	if sec <= 0 {
		return 0
	}
	return int64(math.Ceil(sec*float64(sampleRate) - 1e-9))
}
