package generator

import (
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Direction selects how a rainbow moves.
type Direction int

const (
	// Forward cycles the whole strip through the hues together.
	Forward Direction = iota
	// Reverse plays the hue sequence backwards.
	Reverse
	// MovingForward offsets each pixel so a hue wave travels along the strip.
	MovingForward
	// MovingBackward is MovingForward played backwards.
	MovingBackward
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "rainbow"
	case Reverse:
		return "reverse rainbow"
	case MovingForward:
		return "moving rainbow"
	case MovingBackward:
		return "moving reverse rainbow"
	default:
		return "unknown"
	}
}

// Rainbow rotates through the hue circle once per cycle in six segments:
// cyan, blue, violet, red, yellow, green and back to cyan.
type Rainbow struct {
	params    *Params
	direction Direction
}

// NewRainbow creates a rainbow generator.
func NewRainbow(params *Params, direction Direction) *Rainbow {
	return &Rainbow{params: params, direction: direction}
}

func (r *Rainbow) Name() string { return r.direction.String() }

// ColorAt returns the hue of one pixel.
func (r *Rainbow) ColorAt(now uint32, pixel int) rgb.Color {
	cycle := uint64(r.params.Cycle())
	if cycle == 0 {
		return rgb.Black
	}

	t := uint64(now) % cycle
	if r.direction == MovingForward || r.direction == MovingBackward {
		if n := r.params.Pixels(); n > 0 && pixel > 0 {
			offset := cycle / uint64(n) * uint64(pixel)
			t = (t + offset%cycle) % cycle
		}
	}
	if r.direction == Reverse || r.direction == MovingBackward {
		t = (cycle - t) % cycle
	}

	return hueAt(t, cycle)
}

// hueAt maps t in [0, cycle) onto the six-segment hue circle.
func hueAt(t, cycle uint64) rgb.Color {
	pos := t * 6 * 0x10000 / cycle
	frac := uint16(pos & 0xffff)
	up := rgb.Square16(frac)
	down := rgb.Square16(0xffff - frac)

	switch pos >> 16 {
	case 0: // cyan -> blue
		return rgb.Color{R: 0, G: down, B: 0xff}
	case 1: // blue -> violet
		return rgb.Color{R: up, G: 0, B: 0xff}
	case 2: // violet -> red
		return rgb.Color{R: 0xff, G: 0, B: down}
	case 3: // red -> yellow
		return rgb.Color{R: 0xff, G: up, B: 0}
	case 4: // yellow -> green
		return rgb.Color{R: down, G: 0xff, B: 0}
	default: // green -> cyan
		return rgb.Color{R: 0, G: 0xff, B: up}
	}
}
