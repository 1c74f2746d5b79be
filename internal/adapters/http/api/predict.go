package api

import (
	"context"
	"net/http"

	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/okian/veloperf/internal/domain/scenario"
	"github.com/okian/veloperf/pkg/units"
)

// PredictDependencies defines what the predict handler needs.
type PredictDependencies interface {
	Evaluate(ctx context.Context, sc scenario.Scenario) (scenario.Result, error)
	Presets() *presets.Table
	Defaults() presets.Defaults
}

// PredictHandler handles single-rider predictions.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

type predictResponse struct {
	scenario.Result
	SpeedKmh           float64 `json:"speed_kmh"`
	TimeFormatted      string  `json:"time_formatted"`
	TimeDeltaFormatted string  `json:"time_delta_formatted,omitempty"`
	Position           string  `json:"position"`
}

// HandlePredict handles POST /v1/predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	table := h.deps.Presets()
	sc, err := req.scenario(table, h.deps.Defaults())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Evaluate(r.Context(), sc)
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	resp := predictResponse{
		Result:        res,
		SpeedKmh:      units.MsToKmh(res.Velocity),
		TimeFormatted: units.FormatDuration(res.Time),
		Position:      table.PositionFor(sc.Resistance.CdA),
	}
	if res.TimeDelta != nil {
		resp.TimeDeltaFormatted = units.FormatDelta(*res.TimeDelta)
	}
	writeJSON(w, http.StatusOK, resp)
}
