package host

import (
	"retrosynth/internal/session"
	"retrosynth/internal/synth"
)

// Rect is an axis-aligned box in framebuffer pixels, origin bottom-left as
// in GL, filled with a single colour.
type Rect struct {
	X, Y, W, H int
	R, G, B    float32
}

const (
	pad       = 16
	barHeight = 24
)

// Layout returns the boxes the window draws for st. progress is the played
// fraction of the current track in [0,1].
func Layout(st session.Status, progress float64, fbW, fbH int) []Rect {
	if fbW <= 2*pad || fbH <= 4*pad+3*barHeight {
		return nil
	}
	rects := make([]Rect, 0, len(synth.Genres)+4)

	// Genre tiles across the top; the selected one at full brightness.
	tileW := (fbW - pad*(len(synth.Genres)+1)) / len(synth.Genres)
	tileH := fbH / 3
	for i, g := range synth.Genres {
		info := session.InfoFor(g)
		k := float32(0.35)
		if g == st.Genre {
			k = 1
		}
		rects = append(rects, colored(Rect{
			X: pad + i*(tileW+pad),
			Y: fbH - pad - tileH,
			W: tileW,
			H: tileH,
		}, info.Color, k))
	}

	inner := fbW - 2*pad
	info := session.InfoFor(st.Genre)

	// Progress bar.
	rects = append(rects, Rect{X: pad, Y: pad*2 + barHeight, W: inner, H: barHeight, R: 0.15, G: 0.15, B: 0.18})
	if st.Playing {
		p := min(max(progress, 0), 1)
		rects = append(rects, colored(Rect{X: pad, Y: pad*2 + barHeight, W: int(float64(inner) * p), H: barHeight}, info.Color, 1))
	}

	// Volume bar.
	rects = append(rects, Rect{X: pad, Y: pad, W: inner, H: barHeight, R: 0.15, G: 0.15, B: 0.18})
	rects = append(rects, Rect{X: pad, Y: pad, W: inner * st.Volume / synth.MaxVolume, H: barHeight, R: 0.85, G: 0.85, B: 0.85})
	return rects
}

// Background returns the clear colour for st: the genre colour, dimmed
// further while stopped.
func Background(st session.Status) (r, g, b float32) {
	c := session.InfoFor(st.Genre).Color
	k := float32(0.08)
	if st.Playing {
		k = 0.18
	}
	return float32(c.R) / 255 * k, float32(c.G) / 255 * k, float32(c.B) / 255 * k
}

func colored(r Rect, c session.RGB, k float32) Rect {
	r.R = float32(c.R) / 255 * k
	r.G = float32(c.G) / 255 * k
	r.B = float32(c.B) / 255 * k
	return r
}
