package generator

import (
	"math"

	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Wave is one channel of the interference pattern.
type Wave struct {
	// Harmonic multiplies the base frequency of one wave per cycle.
	Harmonic int
	// Backward makes the wave travel towards pixel 0.
	Backward  bool
	Amplitude float64
	Offset    float64
}

// DefaultWaves returns the red, green and blue waves: harmonics 2, 3 and 5,
// green travelling against the other two, each swinging over the full channel range.
func DefaultWaves() [3]Wave {
	return [3]Wave{
		{Harmonic: 2, Amplitude: 127.5, Offset: 127.5},
		{Harmonic: 3, Backward: true, Amplitude: 127.5, Offset: 127.5},
		{Harmonic: 5, Amplitude: 127.5, Offset: 127.5},
	}
}

// Waves renders three sine waves, one per channel, sharing the cycle frequency but
// with different harmonics and directions so they interfere along the strip.
type Waves struct {
	params   *Params
	channels [3]Wave
}

// NewWaves creates an interference wave generator.
func NewWaves(params *Params, channels [3]Wave) *Waves {
	return &Waves{params: params, channels: channels}
}

func (w *Waves) Name() string { return "waves" }

// ColorAt returns the color of one pixel.
func (w *Waves) ColorAt(now uint32, pixel int) rgb.Color {
	cycle := w.params.Cycle()
	pixels := w.params.Pixels()
	if cycle == 0 || pixels <= 0 {
		return rgb.Black
	}

	// every harmonic repeats within one cycle, so only the position in the cycle matters
	wt := 2 * math.Pi * float64(now%cycle) / float64(cycle)
	shift := 2 * math.Pi * float64(pixel) / float64(pixels)

	return rgb.Color{
		R: w.channels[0].value(wt, shift),
		G: w.channels[1].value(wt, shift),
		B: w.channels[2].value(wt, shift),
	}
}

func (c Wave) value(wt, shift float64) uint8 {
	if c.Backward {
		shift = -shift
	}
	h := float64(c.Harmonic)
	return rgb.Square8(c.Amplitude*math.Sin(h*(wt+shift)) + c.Offset)
}
