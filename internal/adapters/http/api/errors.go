package api

import (
	"errors"
	"net/http"

	gpxroute "github.com/okian/veloperf/internal/adapters/gpx"
	"github.com/okian/veloperf/internal/adapters/repository"
	service "github.com/okian/veloperf/internal/app"
	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/internal/domain/group"
	"github.com/okian/veloperf/internal/domain/physics"
	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/okian/veloperf/pkg/units"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// opError tags an error with the handler that produced it and a sentinel
// kind the status mapping can match on.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.kind != nil && e.err != nil:
		return e.op + ": " + e.kind.Error() + ": " + e.err.Error()
	case e.kind != nil:
		return e.op + ": " + e.kind.Error()
	case e.err != nil:
		return e.op + ": " + e.err.Error()
	default:
		return e.op
	}
}

func (e *opError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// WrapKind wraps err as kind raised by op.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// Wrap records op on err and keeps its kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest  = "bad_request"
	codeDivergence  = "solver_divergence"
	codeDegenerate  = "degenerate_solution"
	codeNotFound    = "not_found"
	codeBackpress   = "backpressure"
	codeUnavailable = "unavailable"
	codeInternal    = "internal_error"
)

var badRequestKinds = []error{
	ErrBadRequest,
	physics.ErrInvalidInput,
	drafting.ErrInvalidConfig,
	drafting.ErrUnknownModel,
	group.ErrInvalidRoster,
	presets.ErrUnknownPreset,
	units.ErrInvalidDuration,
	gpxroute.ErrParse,
	gpxroute.ErrTooFewPoints,
	gpxroute.ErrZeroDistance,
	gpxroute.ErrMissingElevation,
	service.ErrEmptyBatch,
	service.ErrBatchTooLarge,
	repository.ErrInvalidLimit,
	repository.ErrInvalidID,
}

// statusFor maps an error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, codeBackpress
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, physics.ErrSolverDivergence):
		return http.StatusUnprocessableEntity, codeDivergence
	case errors.Is(err, physics.ErrDegenerateSolution):
		return http.StatusUnprocessableEntity, codeDegenerate
	}
	for _, kind := range badRequestKinds {
		if errors.Is(err, kind) {
			return http.StatusBadRequest, codeBadRequest
		}
	}
	return http.StatusInternalServerError, codeInternal
}
