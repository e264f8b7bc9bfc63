package effect

import (
	"math"
	"time"

	"huebctl/internal/bulb"
)

// Step is one point of a fade: the brightness and colour temperature written
// at that tick.
type Step struct {
	Brightness int
	Mirek      int
}

// Fade endpoints. Sunrise runs from warm/dim to cool/bright; sundown is the
// reverse.
var (
	SunriseStart = Step{Brightness: 1, Mirek: bulb.MirekMax}
	SunriseEnd   = Step{Brightness: bulb.BrightnessMax, Mirek: bulb.MirekMin}
)

// DefaultStepInterval spaces fade writes roughly ten seconds apart, about six
// writes per minute of fade.
const DefaultStepInterval = 10 * time.Second

// StepCount returns how many writes a fade of the given duration makes with
// the given spacing. Always at least two (start and end state).
func StepCount(duration, stepInterval time.Duration) int {
	if stepInterval <= 0 {
		stepInterval = DefaultStepInterval
	}
	n := int(duration/stepInterval) + 1
	if n < 2 {
		n = 2
	}
	return n
}

// Plan computes the linear interpolation between two steps. The first element
// equals from and the last equals to exactly; intermediate values are rounded
// and clamped to the valid characteristic ranges.
func Plan(from, to Step, n int) []Step {
	if n < 2 {
		n = 2
	}
	steps := make([]Step, n)
	for i := 0; i < n; i++ {
		progress := float64(i) / float64(n-1)
		steps[i] = Step{
			Brightness: clampInt(lerp(from.Brightness, to.Brightness, progress), bulb.BrightnessMin, bulb.BrightnessMax),
			Mirek:      clampInt(lerp(from.Mirek, to.Mirek, progress), bulb.MirekMin, bulb.MirekMax),
		}
	}
	return steps
}

func lerp(from, to int, progress float64) int {
	return int(math.Round(float64(from) + float64(to-from)*progress))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
