package modes

import (
	"github.com/bbernstein/lacylights-strip/internal/services/generator"
	"github.com/bbernstein/lacylights-strip/internal/services/spark"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// SparkMode renders the spark field. With a nil theme every pixel gets a random
// saturated spark; otherwise every pixel draws from the theme.
type SparkMode struct {
	name      string
	field     *spark.Field
	theme     *spark.Theme
	params    *generator.Params
	intervals uint32
}

// NewSparkMode creates a spark-backed mode. intervals is the number of spark cycles
// before a pixel re-ignites.
func NewSparkMode(name string, field *spark.Field, theme *spark.Theme, params *generator.Params, intervals uint32) *SparkMode {
	return &SparkMode{
		name:      name,
		field:     field,
		theme:     theme,
		params:    params,
		intervals: intervals,
	}
}

func (s *SparkMode) Name() string { return s.name }

// Theme returns the theme of the mode, nil for random sparks.
func (s *SparkMode) Theme() *spark.Theme { return s.theme }

// Activate installs the theme and reseeds every pixel with the current cycle duration
// as its base interval.
func (s *SparkMode) Activate(now uint32) {
	s.field.Ignite(s.theme, s.params.Cycle(), s.intervals, now)
}

func (s *SparkMode) ColorAt(now uint32, pixel int) rgb.Color {
	return s.field.ColorAt(now, pixel)
}
