package spark

import (
	"math"
	"math/rand/v2"

	"github.com/bbernstein/lacylights-strip/internal/services/clock"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Timed drives a spark from the millisecond clock. Each interval is one full spark
// cycle; after the configured number of intervals the spark re-ignites with a new color
// and a new random interval length.
type Timed struct {
	spark     Spark
	rng       *rand.Rand
	started   uint32
	ms        uint32 // current interval
	msMin     uint32 // interval floor, intervals are drawn from [msMin, 2*msMin)
	intervals uint32
	reseeds   uint32
}

// NewTimed creates an unconfigured timed spark. Until Configure is called, Get returns white.
func NewTimed(rng *rand.Rand) *Timed {
	return &Timed{rng: rng}
}

// Configure attaches a spark and reseeds it. intervals is the number of spark cycles
// before re-ignition; zero keeps the same color forever.
func (t *Timed) Configure(s Spark, baseMs, intervals, now uint32) {
	t.spark = s
	t.msMin = baseMs
	t.intervals = intervals
	t.ms = 0
	if s == nil || baseMs == 0 {
		return
	}

	t.reseed(now)

	// Start somewhere inside the first interval so neighbouring pixels are out of step.
	t.started = now - uint32(t.rng.Uint64N(uint64(t.ms)))
}

// Get returns the spark color for the current time, re-igniting first if the
// configured number of intervals has passed.
func (t *Timed) Get(now uint32) rgb.Color {
	if t.spark == nil || t.ms == 0 {
		return rgb.White
	}

	elapsed := clock.Since(now, t.started)
	if t.intervals > 0 && elapsed/t.ms >= t.intervals {
		t.reseed(now)
		elapsed = 0
	}

	phase := uint16(uint64(elapsed%t.ms) * 0x10000 / uint64(t.ms))
	return t.spark.ColorAt(phase)
}

// Reseeds returns how many times the spark has been re-ignited.
func (t *Timed) Reseeds() uint32 {
	return t.reseeds
}

func (t *Timed) reseed(now uint32) {
	t.ms = drawInterval(t.rng, t.msMin)
	t.spark.Reset()
	t.started = now
	t.reseeds++
}

// drawInterval returns a random interval in [base, 2*base), capped at the largest
// uint32 so very long cycles cannot wrap to a short one.
func drawInterval(rng *rand.Rand, base uint32) uint32 {
	ms := uint64(base) + rng.Uint64N(uint64(base))
	if ms > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}
