package dynasty

import "math"

// AgeCurve describes one position's career arc.
type AgeCurve struct {
	PeakStart   float64 // first age of the peak window
	PeakEnd     float64 // last age of the peak window
	YouthRate   float64 // upside added per year below PeakStart
	MaxUpside   float64 // cap on the pre-peak multiplier
	DeclineRate float64 // multiplier lost per year past PeakEnd
	Floor       float64 // minimum multiplier, always > 0
}

// AgeCurves are tuned so running backs fall off earliest and fastest and
// quarterbacks latest and slowest. K and DEF are absent and stay neutral.
var AgeCurves = map[Position]AgeCurve{
	PositionQB: {PeakStart: 25, PeakEnd: 32, YouthRate: 0.02, MaxUpside: 1.10, DeclineRate: 0.08, Floor: 0.30},
	PositionRB: {PeakStart: 22, PeakEnd: 27, YouthRate: 0.05, MaxUpside: 1.15, DeclineRate: 0.15, Floor: 0.20},
	PositionWR: {PeakStart: 23, PeakEnd: 29, YouthRate: 0.04, MaxUpside: 1.20, DeclineRate: 0.10, Floor: 0.40},
	PositionTE: {PeakStart: 25, PeakEnd: 30, YouthRate: 0.03, MaxUpside: 1.15, DeclineRate: 0.09, Floor: 0.35},
}

// AgeMultiplier maps (position, age) to a career-curve multiplier. An age of
// zero, a negative age or NaN means unknown and yields 1.0.
func AgeMultiplier(position Position, age float64) float64 {
	if age <= 0 || math.IsNaN(age) {
		return 1.0
	}

	curve, ok := AgeCurves[position]
	if !ok {
		return 1.0
	}
	return curve.Multiplier(age)
}

// Multiplier evaluates the curve at age.
func (c AgeCurve) Multiplier(age float64) float64 {
	switch {
	case age < c.PeakStart:
		return math.Min(c.MaxUpside, 1.0+(c.PeakStart-age)*c.YouthRate)
	case age <= c.PeakEnd:
		return 1.0
	default:
		return math.Max(c.Floor, 1.0-(age-c.PeakEnd)*c.DeclineRate)
	}
}

// AgeScore converts a projection score into the age-adjusted component.
// The result is clamped to [1,100] so a zero never poisons the composite.
func AgeScore(projectionScore float64, position Position, age float64) float64 {
	return Round2(clamp(projectionScore*AgeMultiplier(position, age), 1, 100))
}
