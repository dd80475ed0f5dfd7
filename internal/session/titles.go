package session

import (
	"fmt"

	"retrosynth/internal/synth"
)

// GenreInfo is the display data of a genre.
type GenreInfo struct {
	Genre synth.Genre `json:"id"`
	Name  string      `json:"name"`
	Color RGB         `json:"color"`
}

// RGB is an 8-bit colour.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var genreInfo = []GenreInfo{
	{Genre: synth.Chiptune, Name: "Chiptune", Color: RGB{R: 249, G: 115, B: 22}},
	{Genre: synth.Arcade, Name: "Arcade", Color: RGB{R: 34, G: 211, B: 238}},
	{Genre: synth.Rpg, Name: "RPG", Color: RGB{R: 59, G: 130, B: 246}},
}

// Genres returns the selectable genres in display order.
func Genres() []GenreInfo {
	out := make([]GenreInfo, len(genreInfo))
	copy(out, genreInfo)
	return out
}

// InfoFor returns the display data of g.
func InfoFor(g synth.Genre) GenreInfo {
	for _, gi := range genreInfo {
		if gi.Genre == g {
			return gi
		}
	}
	return GenreInfo{Genre: g, Name: g.String()}
}

var titlePool = map[synth.Genre][]string{
	synth.Chiptune: {"Pixel Quest", "8-Bit Dreams", "Digital Nostalgia", "Retro Runner"},
	synth.Arcade:   {"Neon Nights", "High Score", "Power Up", "Laser Blast"},
	synth.Rpg:      {"Epic Journey", "Forest Temple", "Magic Spell", "Ancient Ruins"},
}

// randomTitle picks a title for a generated track of genre g.
func randomTitle(g synth.Genre, r synth.RandomSource) string {
	pool := titlePool[g]
	if len(pool) == 0 {
		return "Untitled"
	}
	return pool[r.Intn(len(pool))]
}

// randomDurationLabel returns an "m:ss" label between 2:00 and 4:59.
// It is a playlist label only; the synthesizer reports the real length.
func randomDurationLabel(r synth.RandomSource) string {
	return fmt.Sprintf("%d:%02d", r.Intn(3)+2, r.Intn(60))
}
