package physics

import (
	"errors"
	"fmt"
)

// Sentinel kinds for physics errors. Callers branch with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrSolverDivergence   = errors.New("solver divergence")
	ErrDegenerateSolution = errors.New("degenerate solution")
)

// Divergence reasons reported by SolverError.
const (
	ReasonCeilingExceeded = "bracket ceiling exceeded"
	ReasonNonMonotonic    = "non-monotonic power curve"
	ReasonIterationCap    = "iteration cap reached"
)

// SolverError describes why the velocity solver gave up. It unwraps to
// ErrSolverDivergence.
type SolverError struct {
	// LastEstimate is the best velocity (m/s) reached before giving up.
	LastEstimate float64
	// LastPower is the power (W) at LastEstimate.
	LastPower  float64
	Iterations int
	Reason     string
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver divergence: %s after %d iterations (last estimate %.4f m/s, %.2f W)",
		e.Reason, e.Iterations, e.LastEstimate, e.LastPower)
}

func (e *SolverError) Unwrap() error { return ErrSolverDivergence }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
