// Package rgb provides the 8-bit RGB color type and frame buffer used by the strip.
package rgb

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a 24-bit RGB color. There is no alpha channel.
type Color struct {
	R, G, B uint8
}

var (
	// Black is all channels off.
	Black = Color{}
	// White is all channels at full scale.
	White = Color{R: 0xff, G: 0xff, B: 0xff}
)

// Pack packs the color into a 24-bit integer: red high byte, green middle, blue low byte.
func (c Color) Pack() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Unpack is the inverse of Pack. Bits above the low 24 are ignored.
func Unpack(v uint32) Color {
	return Color{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}
}

// Hex returns the color formatted as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// ParseHex parses a #rrggbb (or #rgb) color string.
func ParseHex(s string) (Color, error) {
	cf, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := cf.Clamped().RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// Square16 perceptually corrects a 16-bit linear ramp value, returning an 8-bit channel.
// The square is taken in 32 bits and shifted back down, so 0 maps to 0 and 0xffff to 0xff.
func Square16(v uint16) uint8 {
	return uint8((uint32(v) * uint32(v)) >> 24)
}

// Square8 squares a linear channel value in [0, 255] and rescales it into [0, 255].
// Values outside the range are clamped first.
func Square8(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v * v / 255))
}
