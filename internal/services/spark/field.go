package spark

import (
	"math/rand/v2"

	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Field holds the spark state of every pixel. It is allocated once and reused by every
// spark-backed mode; only the frame driver goroutine may touch it.
type Field struct {
	timed  []*Timed
	random []*RandomSpark
	themed []*ThemedSpark
}

// NewField allocates spark state for n pixels.
func NewField(n int, rng *rand.Rand) *Field {
	if n < 0 {
		n = 0
	}
	f := &Field{
		timed:  make([]*Timed, n),
		random: make([]*RandomSpark, n),
		themed: make([]*ThemedSpark, n),
	}
	for i := 0; i < n; i++ {
		f.timed[i] = NewTimed(rng)
		f.random[i] = NewRandom(rng, DefaultLimit)
		f.themed[i] = NewThemed(rng, DefaultLimit)
	}
	return f
}

// Len returns the number of pixels.
func (f *Field) Len() int {
	return len(f.timed)
}

// Ignite attaches every pixel's timed spark to either its random spark (theme == nil)
// or its themed spark with the given theme, and reseeds all of them.
func (f *Field) Ignite(theme *Theme, baseMs, intervals, now uint32) {
	for i, t := range f.timed {
		var s Spark = f.random[i]
		if theme != nil {
			f.themed[i].SetTheme(theme)
			s = f.themed[i]
		}
		t.Configure(s, baseMs, intervals, now)
	}
}

// ColorAt returns the color of one pixel. Out-of-range pixels are black.
func (f *Field) ColorAt(now uint32, pixel int) rgb.Color {
	if pixel < 0 || pixel >= len(f.timed) {
		return rgb.Black
	}
	return f.timed[pixel].Get(now)
}
