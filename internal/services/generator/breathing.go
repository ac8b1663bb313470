package generator

import (
	"math"

	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Breathing fades the whole strip in and out of one color once per cycle.
type Breathing struct {
	params *Params
	color  rgb.Color
	easing EasingType
}

// NewBreathing creates a breathing generator. An empty easing defaults to in-out sine.
func NewBreathing(params *Params, c rgb.Color, easing EasingType) *Breathing {
	if easing == "" {
		easing = EasingInOutSine
	}
	return &Breathing{params: params, color: c, easing: easing}
}

func (b *Breathing) Name() string { return "breathing" }

// ColorAt returns the same color for every pixel.
func (b *Breathing) ColorAt(now uint32, _ int) rgb.Color {
	level := b.Level(now)
	return rgb.Color{
		R: scale(b.color.R, level),
		G: scale(b.color.G, level),
		B: scale(b.color.B, level),
	}
}

// Level returns the brightness in [0, 1]: rising for the first half of the cycle,
// falling for the second.
func (b *Breathing) Level(now uint32) float64 {
	cycle := b.params.Cycle()
	if cycle == 0 {
		return 0
	}
	x := float64(now%cycle) / float64(cycle)
	if x < 0.5 {
		x *= 2
	} else {
		x = 2 - 2*x
	}
	return ApplyEasing(x, b.easing)
}

func scale(ch uint8, level float64) uint8 {
	return uint8(math.Round(float64(ch) * level))
}
