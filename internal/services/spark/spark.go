package spark

import (
	"math/rand/v2"

	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Spark chooses a target color on Reset and maps phases to colors.
// The set of implementations is closed: *RandomSpark and *ThemedSpark.
type Spark interface {
	// Reset picks a new target color.
	Reset()
	// ColorAt returns the color for a phase. It does not change the spark.
	ColorAt(phase uint16) rgb.Color
	// Target returns the current target color.
	Target() rgb.Color
}

// Theme is a named palette that themed sparks draw their ignition colors from.
type Theme struct {
	Name   string
	Colors []rgb.Color
}

// base holds the state shared by all spark variants.
type base struct {
	color rgb.Color
	limit uint16
}

func (b *base) ColorAt(phase uint16) rgb.Color {
	return ColorAt(phase, b.color, b.limit)
}

func (b *base) Target() rgb.Color {
	return b.color
}

// RandomSpark ignites with a saturated color: one channel full, one off, one random.
type RandomSpark struct {
	base
	rng *rand.Rand
}

// NewRandom creates a random spark and picks its first color.
func NewRandom(rng *rand.Rand, limit uint16) *RandomSpark {
	s := &RandomSpark{
		base: base{color: rgb.White, limit: limit},
		rng:  rng,
	}
	s.Reset()
	return s
}

// Reset picks one of the red-green, green-blue or blue-red hue classes at random.
func (s *RandomSpark) Reset() {
	v := uint8(s.rng.IntN(256))
	switch s.rng.IntN(3) {
	case 0:
		s.color = rgb.Color{R: 0xff, G: v, B: 0}
	case 1:
		s.color = rgb.Color{R: 0, G: 0xff, B: v}
	default:
		s.color = rgb.Color{R: v, G: 0, B: 0xff}
	}
}

// ThemedSpark ignites with a random color from the active theme.
type ThemedSpark struct {
	base
	rng   *rand.Rand
	theme *Theme
}

// NewThemed creates a themed spark without a theme; it ignites white until one is set.
func NewThemed(rng *rand.Rand, limit uint16) *ThemedSpark {
	s := &ThemedSpark{
		base: base{color: rgb.White, limit: limit},
		rng:  rng,
	}
	s.Reset()
	return s
}

// SetTheme installs the shared theme. The theme is read, never modified.
func (s *ThemedSpark) SetTheme(theme *Theme) {
	s.theme = theme
}

// Theme returns the installed theme, if any.
func (s *ThemedSpark) Theme() *Theme {
	return s.theme
}

// Reset draws a color uniformly from the theme, or white without one.
func (s *ThemedSpark) Reset() {
	if s.theme == nil || len(s.theme.Colors) == 0 {
		s.color = rgb.White
		return
	}
	s.color = s.theme.Colors[s.rng.IntN(len(s.theme.Colors))]
}
