package drafting

import "math"

const legacyMaxRiders = 8

type legacyCoefficient struct {
	base  float64
	decay float64
}

var legacyCoefficients = map[int]legacyCoefficient{
	2: {base: 0.70, decay: 0.85},
	3: {base: 0.65, decay: 0.80},
	4: {base: 0.62, decay: 0.78},
	5: {base: 0.60, decay: 0.76},
	6: {base: 0.58, decay: 0.74},
	7: {base: 0.56, decay: 0.72},
	8: {base: 0.55, decay: 0.70},
}

// Legacy is the static lookup model. It ignores speed and gap and is kept
// for comparison runs.
type Legacy struct{}

// Name implements Model.
func (Legacy) Name() string { return NameLegacy }

// Multiplier implements Model.
func (Legacy) Multiplier(c Config) float64 {
	if !c.sheltered() {
		return 1.0
	}
	riders, position := c.Riders, c.Position
	if riders > legacyMaxRiders {
		position = max(1, min(legacyMaxRiders, legacyMaxRiders*position/riders))
		riders = legacyMaxRiders
	}
	if position == 1 {
		return 1.0
	}
	coef := legacyCoefficients[riders]
	frac := float64(position-1) / float64(riders-1)
	return math.Min(1, coef.base+(1-coef.base)*frac*coef.decay)
}
