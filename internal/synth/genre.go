package synth

import (
	"fmt"
	"strings"
)

// Genre selects one of the fixed presets.
type Genre int

const (
	Chiptune Genre = iota
	Arcade
	Rpg
)

// Genres lists every valid genre in display order.
var Genres = []Genre{Chiptune, Arcade, Rpg}

var genreNames = [...]string{
	Chiptune: "chiptune",
	Arcade:   "arcade",
	Rpg:      "rpg",
}

// Valid reports whether g is part of the closed enumeration.
func (g Genre) Valid() bool {
	return g >= Chiptune && g <= Rpg
}

func (g Genre) String() string {
	if !g.Valid() {
		return fmt.Sprintf("Genre(%d)", int(g))
	}
	return genreNames[g]
}

// ParseGenre maps a genre identifier such as "arcade" to its Genre.
func ParseGenre(s string) (Genre, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for g, n := range genreNames {
		if n == name {
			return Genre(g), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGenre, s)
}

// MarshalText implements encoding.TextMarshaler.
func (g Genre) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGenre, int(g))
	}
	return []byte(genreNames[g]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Genre) UnmarshalText(text []byte) error {
	parsed, err := ParseGenre(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
