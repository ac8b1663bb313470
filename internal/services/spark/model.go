// Package spark implements sparks: per-pixel effects that fade in to a target color,
// blend over to white, and re-ignite with a new color.
package spark

import (
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

const (
	// MaxPhase is the end of a spark cycle.
	MaxPhase uint16 = 0xffff
	// MidPhase is where the mirrored ramp turns around.
	MidPhase uint16 = 0x7fff
	// DefaultLimit separates "fade in" from "blend to white" (~94% of the range).
	DefaultLimit uint16 = 0xf000
)

// mirror folds the phase around its midpoint so a spark breathes in and out
// instead of jumping back to black at the end of the cycle.
func mirror(phase uint16) uint16 {
	var p uint32
	if phase > MidPhase {
		p = uint32(MaxPhase-phase) * 2
	} else {
		p = uint32(phase) * 2
	}
	if p > uint32(MaxPhase) {
		p = uint32(MaxPhase)
	}
	return uint16(p)
}

// ColorAt maps a phase to the spark color for the given target color and blend limit.
// Below the limit the color fades in from black, above it the color blends to white.
func ColorAt(phase uint16, target rgb.Color, limit uint16) rgb.Color {
	p := mirror(phase)
	return rgb.Color{
		R: rgb.Square16(ramp(p, target.R, limit)),
		G: rgb.Square16(ramp(p, target.G, limit)),
		B: rgb.Square16(ramp(p, target.B, limit)),
	}
}

// ramp returns the linear 16-bit channel value for the mirrored phase p.
func ramp(p uint16, channel uint8, limit uint16) uint16 {
	target := uint32(channel) * 257 // 0xff -> 0xffff

	if p < limit {
		return uint16(target * uint32(p) / uint32(limit))
	}

	span := uint32(MaxPhase - limit)
	if span == 0 {
		return uint16(target)
	}
	return uint16(target + (uint32(MaxPhase)-target)*uint32(p-limit)/span)
}
