package modes

import (
	"math/rand/v2"

	"github.com/bbernstein/lacylights-strip/internal/services/generator"
	"github.com/bbernstein/lacylights-strip/internal/services/spark"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// BuiltinThemes returns the themes that are always available.
func BuiltinThemes() []spark.Theme {
	return []spark.Theme{
		{Name: "xmas", Colors: []rgb.Color{
			rgb.Unpack(0xff0000), rgb.Unpack(0x00ff00), rgb.Unpack(0xffaa00), rgb.Unpack(0xff0022),
		}},
		{Name: "ice", Colors: []rgb.Color{
			rgb.Unpack(0x0000ff), rgb.Unpack(0x00ffff), rgb.Unpack(0x4488ff), rgb.Unpack(0x8800ff),
		}},
		{Name: "fire", Colors: []rgb.Color{
			rgb.Unpack(0xff0000), rgb.Unpack(0xff4400), rgb.Unpack(0xff8800), rgb.Unpack(0xffcc00),
		}},
	}
}

// Options configures the default registry.
type Options struct {
	// Themes are added after the built-in themes, one spark mode each.
	Themes []spark.Theme
	// Intervals is the number of spark cycles before a pixel re-ignites.
	Intervals uint32
	// Breathing color and easing; zero values mean warm white and in-out sine.
	BreathingColor  rgb.Color
	BreathingEasing generator.EasingType
	// Pendulum physics; zero values use the defaults.
	PendulumPhi0    float64
	PendulumLength  float64
	PendulumGravity float64
}

// Default builds the standard mode table. Mode 0 is the moving rainbow.
func Default(params *generator.Params, rng *rand.Rand, opts Options) *Table {
	field := spark.NewField(params.Pixels(), rng)
	t := NewTable()

	t.Add(generator.NewRainbow(params, generator.MovingForward))
	t.Add(generator.NewRainbow(params, generator.Forward))
	t.Add(generator.NewRainbow(params, generator.Reverse))
	t.Add(generator.NewRainbow(params, generator.MovingBackward))
	t.Add(generator.NewWaves(params, generator.DefaultWaves()))
	t.Add(NewSparkMode("random sparks", field, nil, params, opts.Intervals))

	themes := append(BuiltinThemes(), opts.Themes...)
	for i := range themes {
		theme := &themes[i]
		t.Add(NewSparkMode(theme.Name+" sparks", field, theme, params, opts.Intervals))
	}

	breathing := opts.BreathingColor
	if breathing == rgb.Black {
		breathing = WarmWhite
	}
	t.Add(generator.NewBreathing(params, breathing, opts.BreathingEasing))
	t.Add(generator.NewPendulum(params, opts.PendulumPhi0, opts.PendulumLength, opts.PendulumGravity))

	t.Add(generator.NewSolid("white", rgb.White))
	t.Add(generator.NewSolid("warm white", WarmWhite))
	t.Add(generator.NewSolid("red", rgb.Color{R: 0xff}))
	t.Add(generator.NewSolid("green", rgb.Color{G: 0xff}))
	t.Add(generator.NewSolid("blue", rgb.Color{B: 0xff}))
	t.Add(generator.NewSolid("off", rgb.Black))

	return t
}

// WarmWhite is the warm white solid color.
var WarmWhite = rgb.Unpack(0xffa050)
