package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/veloperf/internal/domain/physics"
	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/okian/veloperf/internal/domain/scenario"
	"github.com/okian/veloperf/pkg/units"
)

// courseInput is the rider and road description shared by predict and
// group requests, in the units riders type.
type courseInput struct {
	WeightKg        float64  `json:"weight_kg"`
	BikeWeightKg    float64  `json:"bike_weight_kg"`
	DistanceKm      float64  `json:"distance_km"`
	GradePct        float64  `json:"grade_pct"`
	StartElevationM float64  `json:"start_elevation_m"`
	WindKmh         float64  `json:"wind_kmh"`
	CdA             *float64 `json:"cda_m2,omitempty"`
	Crr             *float64 `json:"crr,omitempty"`
	Bike            string   `json:"bike,omitempty"`
	Terrain         string   `json:"terrain,omitempty"`
	Loss            *float64 `json:"loss,omitempty"`
}

// scenario converts the course to SI units. An explicit Crr wins over a
// bike/terrain lookup; a terrain without a bike assumes a road bike.
func (c courseInput) scenario(t *presets.Table, d presets.Defaults) (scenario.Scenario, error) {
	sc := scenario.Scenario{
		Rider: scenario.Rider{BodyMass: c.WeightKg, GearMass: c.BikeWeightKg},
		Segment: physics.Segment{
			Grade:          units.PercentToGrade(c.GradePct),
			Distance:       units.KmToM(c.DistanceKm),
			StartElevation: c.StartElevationM,
		},
		Wind:       units.KmhToMs(c.WindKmh),
		Resistance: scenario.Resistance{Crr: d.Crr, CdA: d.CdA},
		Loss:       d.Loss,
	}
	if c.CdA != nil {
		sc.Resistance.CdA = *c.CdA
	}
	if c.Loss != nil {
		sc.Loss = *c.Loss
	}
	switch {
	case c.Crr != nil:
		sc.Resistance.Crr = *c.Crr
	case c.Bike != "" || c.Terrain != "":
		bike, terrain := c.Bike, c.Terrain
		if bike == "" {
			bike = "road"
		}
		if terrain == "" {
			return sc, errors.New("terrain is required with a bike type")
		}
		crr, err := t.Crr(bike, terrain)
		if err != nil {
			return sc, err
		}
		sc.Resistance.Crr = crr
	}
	return sc, nil
}

type draftInput struct {
	Riders    int      `json:"riders"`
	Position  int      `json:"position"`
	GapM      float64  `json:"gap_m"`
	DutyCycle *float64 `json:"duty_cycle,omitempty"`
}

// predictRequest mirrors POST /v1/predict. Exactly one of PowerW and Time
// selects the mode.
type predictRequest struct {
	ID string `json:"id,omitempty"`
	courseInput
	PowerW        *float64    `json:"power_w,omitempty"`
	Time          string      `json:"time,omitempty"`
	ReferenceTime string      `json:"reference_time,omitempty"`
	Draft         *draftInput `json:"draft,omitempty"`
}

func (p predictRequest) scenario(t *presets.Table, d presets.Defaults) (scenario.Scenario, error) {
	sc, err := p.courseInput.scenario(t, d)
	if err != nil {
		return sc, err
	}
	sc.ID = p.ID

	hasTime := strings.TrimSpace(p.Time) != ""
	switch {
	case p.PowerW != nil && hasTime:
		return sc, errors.New("give either power_w or time, not both")
	case p.PowerW != nil:
		sc.Mode, sc.Target = scenario.ModePowerToTime, *p.PowerW
	case hasTime:
		secs, err := units.ParseDuration(p.Time)
		if err != nil {
			return sc, err
		}
		sc.Mode, sc.Target = scenario.ModeTimeToPower, secs
	default:
		return sc, errors.New("one of power_w or time is required")
	}

	if p.ReferenceTime != "" {
		ref, err := units.ParseDuration(p.ReferenceTime)
		if err != nil {
			return sc, fmt.Errorf("reference_time: %w", err)
		}
		sc.ReferenceTime = ref
	}
	if p.Draft != nil {
		sc.Draft = &scenario.Draft{
			Riders:    p.Draft.Riders,
			Position:  p.Draft.Position,
			Gap:       p.Draft.GapM,
			DutyCycle: p.Draft.DutyCycle,
		}
	}
	return sc, nil
}
