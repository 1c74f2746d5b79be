package gpx

import "errors"

// Sentinel kinds for route extraction errors.
var (
	ErrParse            = errors.New("gpx parse failed")
	ErrTooFewPoints     = errors.New("route needs at least two points")
	ErrZeroDistance     = errors.New("route has zero horizontal distance")
	ErrMissingElevation = errors.New("route point has no elevation")
)
