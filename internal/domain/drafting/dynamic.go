package drafting

import "math"

// Gap decay is a two-term exponential fitted to wind-tunnel spacing data.
const (
	gapNearAmplitude = 0.54
	gapNearDecay     = 0.30 // 1/m
	gapFarAmplitude  = 0.25
	gapFarDecay      = 0.025 // 1/m

	minGap = 0.15 // wheel to wheel
	maxGap = 100.0

	// referenceSpeed is where the full gap benefit is reached (54 km/h).
	referenceSpeed = 15.0 // m/s
	speedExponent  = 1.2

	maxEffectiveRiders = 20
	groupBonusSlope    = 0.12

	// positionRetention is how much of the remaining benefit each extra
	// rider ahead still withholds.
	positionRetention = 0.35

	maxReduction  = 0.80
	minMultiplier = 0.20
)

// Dynamic scales the draft benefit with gap, speed, group size and depth in
// the line. It is the production model.
type Dynamic struct{}

// Name implements Model.
func (Dynamic) Name() string { return NameDynamic }

// Multiplier implements Model.
func (d Dynamic) Multiplier(c Config) float64 {
	if !c.sheltered() {
		return 1.0
	}
	reduction := d.PositionFactor(c.Riders, c.Position) * d.SpeedFactor(c.Speed) * d.GapFactor(c.Gap)
	reduction = math.Min(reduction, maxReduction)
	return math.Max(minMultiplier, 1-reduction)
}

// GapFactor is the fraction of drag removed by the rider ahead at gap meters.
// It decreases with gap and is largest at wheel-to-wheel spacing.
func (Dynamic) GapFactor(gap float64) float64 {
	g := clamp(gap, minGap, maxGap)
	return gapNearAmplitude*math.Exp(-gapNearDecay*g) + gapFarAmplitude*math.Exp(-gapFarDecay*g)
}

// SpeedFactor grows with speed up to the reference speed and is clamped to
// [0, 1].
func (Dynamic) SpeedFactor(speed float64) float64 {
	if !(speed > 0) {
		return 0
	}
	return clamp(math.Pow(speed/referenceSpeed, speedExponent), 0, 1)
}

// PositionFactor grows with depth in the line and saturates. Larger groups
// shelter a little more, with diminishing returns past maxEffectiveRiders.
func (Dynamic) PositionFactor(riders, position int) float64 {
	if riders < 2 || position < 2 {
		return 0
	}
	n := math.Min(float64(riders), maxEffectiveRiders)
	bonus := 1.0
	if n > 2 {
		bonus += groupBonusSlope * math.Log2(n/2)
	}
	depth := 1 - math.Pow(positionRetention, float64(position-1))
	return bonus * depth
}
