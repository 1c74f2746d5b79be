// Package presets holds the lookup tables used to fill in resistance
// coefficients: rolling resistance by bike and terrain, and a riding
// position description by drag area. Tables are built once and never
// mutated.
package presets

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Documented defaults.
const (
	DefaultCdA  = 0.40
	DefaultCrr  = 0.0050
	DefaultLoss = 0.035
)

// Sentinel kinds for preset lookups.
var (
	ErrUnknownPreset = errors.New("unknown preset")
	ErrInvalidTable  = errors.New("invalid preset table")
)

// Band describes riding positions with a CdA below MaxCdA.
type Band struct {
	MaxCdA      float64 `koanf:"max_cda" json:"max_cda_m2"`
	Description string  `koanf:"description" json:"description"`
}

// DefaultCrrTable returns rolling resistance by bike type then terrain.
func DefaultCrrTable() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"road": {
			"asphalt": 0.0050,
			"gravel":  0.0060,
			"grass":   0.0070,
			"offroad": 0.0200,
			"sand":    0.0300,
		},
		"mtb": {
			"asphalt": 0.0065,
			"gravel":  0.0075,
			"grass":   0.0090,
			"offroad": 0.0255,
			"sand":    0.0380,
		},
	}
}

// DefaultBands returns the position bands ordered by MaxCdA. The last band
// catches everything above.
func DefaultBands() []Band {
	return []Band{
		{MaxCdA: 0.23, Description: "Elite time trial equipment and positioning"},
		{MaxCdA: 0.30, Description: "Good time trial / Triathlon positioning"},
		{MaxCdA: 0.35, Description: "Road bike racing / Drop bar lows"},
		{MaxCdA: 0.50, Description: "Road climbing / Mountain bike XC"},
		{MaxCdA: 0, Description: "Upright position with casual clothing"},
	}
}

// Table is an immutable view over the preset data.
type Table struct {
	crr      map[string]map[string]float64
	bands    []Band
	fallback string
}

// New copies crr and bands into a Table. Bands with MaxCdA <= 0 act as the
// catch-all description.
func New(crr map[string]map[string]float64, bands []Band) (*Table, error) {
	t := &Table{crr: make(map[string]map[string]float64, len(crr))}
	for bike, terrains := range crr {
		inner := make(map[string]float64, len(terrains))
		for terrain, v := range terrains {
			if !(v > 0) {
				return nil, fmt.Errorf("%w: crr for %s/%s must be positive", ErrInvalidTable, bike, terrain)
			}
			inner[normalize(terrain)] = v
		}
		t.crr[normalize(bike)] = inner
	}
	for _, b := range bands {
		if b.MaxCdA <= 0 {
			t.fallback = b.Description
			continue
		}
		t.bands = append(t.bands, b)
	}
	slices.SortFunc(t.bands, func(a, b Band) int {
		switch {
		case a.MaxCdA < b.MaxCdA:
			return -1
		case a.MaxCdA > b.MaxCdA:
			return 1
		}
		return 0
	})
	return t, nil
}

// Default returns the built-in table.
func Default() *Table {
	t, _ := New(DefaultCrrTable(), DefaultBands())
	return t
}

// Crr looks up rolling resistance for a bike type and terrain.
func (t *Table) Crr(bike, terrain string) (float64, error) {
	terrains, ok := t.crr[normalize(bike)]
	if !ok {
		return 0, fmt.Errorf("%w: bike %q", ErrUnknownPreset, bike)
	}
	v, ok := terrains[normalize(terrain)]
	if !ok {
		return 0, fmt.Errorf("%w: terrain %q for %s", ErrUnknownPreset, terrain, bike)
	}
	return v, nil
}

// PositionFor describes the riding position implied by cda.
func (t *Table) PositionFor(cda float64) string {
	for _, b := range t.bands {
		if cda < b.MaxCdA {
			return b.Description
		}
	}
	return t.fallback
}

// Bikes lists the known bike types in order.
func (t *Table) Bikes() []string {
	return slices.Sorted(maps.Keys(t.crr))
}

// Terrains lists the terrains known for bike.
func (t *Table) Terrains(bike string) []string {
	return slices.Sorted(maps.Keys(t.crr[normalize(bike)]))
}

// Bands returns a copy of the position bands.
func (t *Table) Bands() []Band {
	out := slices.Clone(t.bands)
	if t.fallback != "" {
		out = append(out, Band{Description: t.fallback})
	}
	return out
}

// CrrTable returns a copy of the rolling resistance table.
func (t *Table) CrrTable() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(t.crr))
	for bike, terrains := range t.crr {
		out[bike] = maps.Clone(terrains)
	}
	return out
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Defaults are the coefficients applied when a request leaves them out.
type Defaults struct {
	CdA  float64 `json:"cda_m2"`
	Crr  float64 `json:"crr"`
	Loss float64 `json:"loss"`
}

// StandardDefaults returns DefaultCdA, DefaultCrr and DefaultLoss.
func StandardDefaults() Defaults {
	return Defaults{CdA: DefaultCdA, Crr: DefaultCrr, Loss: DefaultLoss}
}
