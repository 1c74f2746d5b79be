package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/veloperf/internal/domain/group"
	"github.com/okian/veloperf/internal/domain/physics"
	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/okian/veloperf/pkg/units"
)

// GroupDependencies defines what the group handler needs.
type GroupDependencies interface {
	EvaluateGroup(ctx context.Context, base physics.Params, roster group.Roster, velocity float64) (group.Result, error)
	SolveGroup(ctx context.Context, base physics.Params, roster group.Roster, target float64) (group.Result, physics.Solution, error)
	SolveGroupForTime(ctx context.Context, base physics.Params, roster group.Roster, distance, seconds float64) (group.Result, error)
	Presets() *presets.Table
	Defaults() presets.Defaults
}

// GroupHandler handles paceline estimates.
type GroupHandler struct {
	deps GroupDependencies
}

// NewGroupHandler creates a new group handler.
func NewGroupHandler(deps GroupDependencies) *GroupHandler {
	return &GroupHandler{deps: deps}
}

// groupRequest mirrors POST /v1/group. Members override Riders; exactly
// one of SpeedKmh, PowerW and Time is required.
type groupRequest struct {
	courseInput
	Riders   int           `json:"riders,omitempty"`
	Members  []group.Rider `json:"members,omitempty"`
	GapM     float64       `json:"gap_m"`
	Rotating bool          `json:"rotating"`
	SpeedKmh *float64      `json:"speed_kmh,omitempty"`
	PowerW   *float64      `json:"power_w,omitempty"`
	Time     string        `json:"time,omitempty"`
}

func (g groupRequest) roster() (group.Roster, error) {
	var ro group.Roster
	switch {
	case len(g.Members) > 0:
		ro = group.Roster{Riders: g.Members, Gap: g.GapM}
	case g.Riders > 0:
		ro = group.NewRoster(g.Riders, g.GapM)
	default:
		return ro, errors.New("riders or members is required")
	}
	ro.Rotating = g.Rotating
	return ro, nil
}

func (g groupRequest) modes() int {
	n := 0
	if g.SpeedKmh != nil {
		n++
	}
	if g.PowerW != nil {
		n++
	}
	if strings.TrimSpace(g.Time) != "" {
		n++
	}
	return n
}

type groupResponse struct {
	group.Result
	SpeedKmh      float64 `json:"speed_kmh"`
	TimeS         float64 `json:"time_s"`
	TimeFormatted string  `json:"time_formatted"`
	Iterations    int     `json:"iterations,omitempty"`
}

// HandleGroup handles POST /v1/group requests.
func (h *GroupHandler) HandleGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.group"
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.modes() != 1 {
		writeError(w, http.StatusBadRequest, codeBadRequest,
			WrapKind(op, ErrBadRequest, errors.New("exactly one of speed_kmh, power_w or time is required")))
		return
	}
	sc, err := req.scenario(h.deps.Presets(), h.deps.Defaults())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	roster, err := req.roster()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	ctx := r.Context()
	base := sc.Params()
	var (
		res group.Result
		sol physics.Solution
	)
	switch {
	case req.SpeedKmh != nil:
		res, err = h.deps.EvaluateGroup(ctx, base, roster, units.KmhToMs(*req.SpeedKmh))
	case req.PowerW != nil:
		res, sol, err = h.deps.SolveGroup(ctx, base, roster, *req.PowerW)
	default:
		secs, perr := units.ParseDuration(req.Time)
		if perr != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, perr))
			return
		}
		res, err = h.deps.SolveGroupForTime(ctx, base, roster, sc.Segment.Distance, secs)
	}
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	t, err := physics.TravelTime(sc.Segment.Distance, res.Velocity)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, groupResponse{
		Result:        res,
		SpeedKmh:      units.MsToKmh(res.Velocity),
		TimeS:         t,
		TimeFormatted: units.FormatDuration(t),
		Iterations:    sol.Iterations,
	})
}
