// Package generator provides the procedural color generators: pure functions of
// (time, pixel) that render one animation mode.
package generator

import (
	"sync/atomic"

	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// MinCycleMs is the shortest accepted cycle duration.
const MinCycleMs uint32 = 10

// Generator renders one pixel of one animation mode at a point in time.
type Generator interface {
	Name() string
	ColorAt(now uint32, pixel int) rgb.Color
}

// Activator is implemented by generators that need one-time setup when their mode
// becomes active, such as reseeding per-pixel sparks.
type Activator interface {
	Activate(now uint32)
}

// Params holds the parameters shared by all generators. The cycle duration is a single
// speed knob for every mode and may be changed from any goroutine.
type Params struct {
	pixels int
	cycle  atomic.Uint32
}

// NewParams creates shared parameters for a strip of the given length.
func NewParams(pixels int, cycleMs uint32) *Params {
	if pixels < 0 {
		pixels = 0
	}
	p := &Params{pixels: pixels}
	p.SetCycle(cycleMs)
	return p
}

// Pixels returns the strip length.
func (p *Params) Pixels() int {
	return p.pixels
}

// Cycle returns the cycle duration in milliseconds.
func (p *Params) Cycle() uint32 {
	return p.cycle.Load()
}

// SetCycle stores a new cycle duration, raised to MinCycleMs if needed, and returns
// the stored value.
func (p *Params) SetCycle(ms uint32) uint32 {
	if ms < MinCycleMs {
		ms = MinCycleMs
	}
	p.cycle.Store(ms)
	return ms
}

// Solid renders a constant color.
type Solid struct {
	Label string
	Color rgb.Color
}

// NewSolid creates a solid color generator.
func NewSolid(name string, c rgb.Color) *Solid {
	return &Solid{Label: name, Color: c}
}

func (s *Solid) Name() string { return s.Label }

func (s *Solid) ColorAt(uint32, int) rgb.Color { return s.Color }
