package generator

import (
	"math"

	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Pendulum defaults: a 2 m pendulum released at 22.5 degrees.
const (
	DefaultPhi0    = math.Pi / 8
	DefaultLength  = 2.0
	DefaultGravity = 9.81
)

// Pendulum colors.
var (
	PendulumColor     = rgb.Unpack(0x22ff22)
	AccelerationColor = rgb.Unpack(0x880022)
	BackgroundColor   = rgb.Unpack(0x000022)
)

// Pendulum shows an ideal pendulum swinging along the strip: one pixel for the bob
// and a bar for its acceleration, on a dim background. Its speed comes from physics,
// not from the cycle duration.
type Pendulum struct {
	params *Params
	phi0   float64
	omega  float64
	period uint32 // ms
}

// NewPendulum creates a pendulum with start angle phi0 (radians), length l (m) and
// gravity g (m/s^2). Non-positive values fall back to the defaults.
func NewPendulum(params *Params, phi0, l, g float64) *Pendulum {
	if phi0 <= 0 {
		phi0 = DefaultPhi0
	}
	if l <= 0 {
		l = DefaultLength
	}
	if g <= 0 {
		g = DefaultGravity
	}
	omega := math.Sqrt(g / l)
	period := uint32(math.Round(2 * math.Pi / omega * 1000))
	if period == 0 {
		period = 1
	}
	return &Pendulum{params: params, phi0: phi0, omega: omega, period: period}
}

func (p *Pendulum) Name() string { return "pendulum" }

// Period returns the swing period in milliseconds.
func (p *Pendulum) Period() uint32 {
	return p.period
}

// Positions returns the bob pixel and the last pixel of the acceleration bar.
func (p *Pendulum) Positions(now uint32) (bob, accel int) {
	n := p.params.Pixels()
	t := float64(now%p.period) / 1000
	x := math.Sin(p.omega*t - p.phi0)

	half := float64(n-1) / 2
	s := x*half + half
	a := -x * float64(n/4)
	return int(math.Round(s)), int(math.Round(s + a))
}

// ColorAt returns the color of one pixel.
func (p *Pendulum) ColorAt(now uint32, pixel int) rgb.Color {
	bob, accel := p.Positions(now)
	if pixel == bob {
		return PendulumColor
	}
	lo, hi := min(bob, accel), max(bob, accel)
	if pixel > lo && pixel < hi {
		return AccelerationColor
	}
	return BackgroundColor
}
