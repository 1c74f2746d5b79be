// Package gpx turns a GPX track or route into the constant-grade segment
// used by the predictor.
package gpx

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/okian/veloperf/internal/domain/physics"
)

// Route summarizes a GPX path.
type Route struct {
	Name           string          `json:"name,omitempty"`
	Points         int             `json:"points"`
	Distance       float64         `json:"distance_m"`
	Climb          float64         `json:"climb_m"`
	Descent        float64         `json:"descent_m"`
	StartElevation float64         `json:"start_elevation_m"`
	EndElevation   float64         `json:"end_elevation_m"`
	Segment        physics.Segment `json:"segment"`
}

// Parse reads a GPX document.
func Parse(data []byte) (Route, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return FromGPX(g)
}

// ParseFile reads a GPX file from disk.
func ParseFile(path string) (Route, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return FromGPX(g)
}

// FromGPX uses track points when present and route points otherwise.
// Distance is horizontal; grade is net elevation change over distance.
func FromGPX(g *gpx.GPX) (Route, error) {
	points := trackPoints(g)
	if len(points) == 0 {
		for i := range g.Routes {
			for j := range g.Routes[i].Points {
				points = append(points, &g.Routes[i].Points[j])
			}
		}
	}
	if len(points) < 2 {
		return Route{}, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}

	r := Route{Name: routeName(g), Points: len(points)}
	for i, p := range points {
		if !p.Elevation.NotNull() {
			return Route{}, fmt.Errorf("%w: point %d", ErrMissingElevation, i)
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		r.Distance += prev.Distance2D(p)
		switch dz := p.Elevation.Value() - prev.Elevation.Value(); {
		case dz > 0:
			r.Climb += dz
		case dz < 0:
			r.Descent -= dz
		}
	}
	if !(r.Distance > 0) {
		return Route{}, ErrZeroDistance
	}

	r.StartElevation = points[0].Elevation.Value()
	r.EndElevation = points[len(points)-1].Elevation.Value()
	r.Segment = physics.Segment{
		Grade:          (r.EndElevation - r.StartElevation) / r.Distance,
		Distance:       r.Distance,
		StartElevation: r.StartElevation,
	}
	return r, nil
}

func trackPoints(g *gpx.GPX) []*gpx.GPXPoint {
	var out []*gpx.GPXPoint
	for i := range g.Tracks {
		for j := range g.Tracks[i].Segments {
			seg := &g.Tracks[i].Segments[j]
			for k := range seg.Points {
				out = append(out, &seg.Points[k])
			}
		}
	}
	return out
}

func routeName(g *gpx.GPX) string {
	if g.Name != "" {
		return g.Name
	}
	if len(g.Tracks) > 0 && g.Tracks[0].Name != "" {
		return g.Tracks[0].Name
	}
	if len(g.Routes) > 0 {
		return g.Routes[0].Name
	}
	return ""
}
