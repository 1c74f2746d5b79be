// Package benchmark compares the dynamic and legacy drafting models over a
// file of rider scenarios. Each model's drag reduction moves CdA between an
// undrafted and a fully drafted value, and the power needed at the
// scenario speed is compared.
package benchmark

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/veloperf/pkg/units"
)

// Scenario is one benchmark row before evaluation. Unset fields take the
// file's defaults.
type Scenario struct {
	ID       string  `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	Sex      string  `yaml:"sex" json:"sex"`
	Riders   int     `yaml:"riders" json:"riders"`
	Position int     `yaml:"position" json:"position"`
	GapM     float64 `yaml:"gap_m" json:"gap_m"`

	// Speed comes from SpeedKmh, or from DistanceKm over TimeS.
	SpeedKmh   float64 `yaml:"speed_kmh" json:"speed_kmh"`
	DistanceKm float64 `yaml:"distance_km" json:"distance_km"`
	TimeS      float64 `yaml:"time_s" json:"time_s"`

	GradientPct          float64 `yaml:"gradient_pct" json:"gradient_pct"`
	TotalMassKg          float64 `yaml:"total_mass_kg" json:"total_mass_kg"`
	AirDensity           float64 `yaml:"air_density" json:"air_density"`
	Crr                  float64 `yaml:"crr" json:"crr"`
	DrivetrainEfficiency float64 `yaml:"drivetrain_efficiency" json:"drivetrain_efficiency"`

	// CdA at 0 % and 100 % draft.
	CdAMen0     float64 `yaml:"cda_men_0" json:"cda_men_0"`
	CdAMen100   float64 `yaml:"cda_men_100" json:"cda_men_100"`
	CdAWomen0   float64 `yaml:"cda_women_0" json:"cda_women_0"`
	CdAWomen100 float64 `yaml:"cda_women_100" json:"cda_women_100"`
}

// File is a parsed scenarios document.
type File struct {
	Source    string     `json:"source"`
	Defaults  Scenario   `json:"defaults"`
	Scenarios []Scenario `json:"-"`
}

// baseline fills what neither the defaults nor the scenario set.
func baseline() Scenario {
	return Scenario{Sex: "male", GapM: 0.5, DrivetrainEfficiency: 1}
}

// Load reads a YAML or JSON scenarios file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	f.Source = path
	return f, nil
}

// Parse decodes a scenarios document. Every scenario starts as a copy of
// the defaults and overrides only the keys it sets.
func Parse(data []byte) (*File, error) {
	var doc struct {
		Defaults  yaml.Node   `yaml:"defaults"`
		Scenarios []yaml.Node `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	f := &File{Defaults: baseline()}
	if !doc.Defaults.IsZero() {
		if err := doc.Defaults.Decode(&f.Defaults); err != nil {
			return nil, fmt.Errorf("%w: defaults: %w", ErrLoad, err)
		}
	}
	f.Scenarios = make([]Scenario, 0, len(doc.Scenarios))
	for i := range doc.Scenarios {
		s := f.Defaults
		if err := doc.Scenarios[i].Decode(&s); err != nil {
			return nil, fmt.Errorf("%w: scenario %d: %w", ErrLoad, i+1, err)
		}
		f.Scenarios = append(f.Scenarios, s)
	}
	return f, nil
}

// Speed resolves the scenario speed in km/h.
func (s Scenario) Speed() (float64, error) {
	if s.SpeedKmh > 0 {
		return s.SpeedKmh, nil
	}
	if s.DistanceKm > 0 && s.TimeS > 0 {
		return s.DistanceKm / (s.TimeS / 3600), nil
	}
	return 0, fmt.Errorf("%w: %s needs speed_kmh or distance_km and time_s", ErrInvalidScenario, s.label())
}

// CdAFor interpolates the drag area for a draft fraction in [0, 1].
func (s Scenario) CdAFor(draft float64) float64 {
	draft = max(0, min(1, draft))
	lo, hi := s.CdAMen0, s.CdAMen100
	if s.female() {
		lo, hi = s.CdAWomen0, s.CdAWomen100
	}
	return lo + (hi-lo)*draft
}

// Validate checks the fields the power calculation needs.
func (s Scenario) Validate() error {
	switch {
	case s.Riders < 1 || s.Position < 1 || s.Position > s.Riders:
		return fmt.Errorf("%w: %s position %d of %d riders", ErrInvalidScenario, s.label(), s.Position, s.Riders)
	case !(s.TotalMassKg > 0):
		return fmt.Errorf("%w: %s total_mass_kg must be positive", ErrInvalidScenario, s.label())
	case !(s.AirDensity > 0):
		return fmt.Errorf("%w: %s air_density must be positive", ErrInvalidScenario, s.label())
	case !(s.Crr > 0):
		return fmt.Errorf("%w: %s crr must be positive", ErrInvalidScenario, s.label())
	case !(s.DrivetrainEfficiency > 0 && s.DrivetrainEfficiency <= 1):
		return fmt.Errorf("%w: %s drivetrain_efficiency must be in (0, 1]", ErrInvalidScenario, s.label())
	case !(s.CdAFor(0) > 0) || !(s.CdAFor(1) > 0):
		return fmt.Errorf("%w: %s cda bounds must be positive", ErrInvalidScenario, s.label())
	}
	_, err := s.Speed()
	return err
}

// grade returns the decimal gradient.
func (s Scenario) grade() float64 { return units.PercentToGrade(s.GradientPct) }

func (s Scenario) female() bool {
	switch strings.ToLower(strings.TrimSpace(s.Sex)) {
	case "female", "woman", "women", "f":
		return true
	}
	return false
}

func (s Scenario) label() string {
	if s.ID != "" {
		return "scenario " + s.ID
	}
	return "scenario"
}
