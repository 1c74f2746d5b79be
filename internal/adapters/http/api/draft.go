package api

import (
	"context"
	"net/http"

	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/pkg/units"
)

// DraftDependencies defines what the draft handler needs.
type DraftDependencies interface {
	DraftMultiplier(ctx context.Context, name string, c drafting.Config) (float64, string, error)
}

// DraftHandler handles drafting multiplier lookups.
type DraftHandler struct {
	deps DraftDependencies
}

// NewDraftHandler creates a new draft handler.
func NewDraftHandler(deps DraftDependencies) *DraftHandler {
	return &DraftHandler{deps: deps}
}

type draftRequest struct {
	Model     string   `json:"model,omitempty"`
	Riders    int      `json:"riders"`
	Position  int      `json:"position"`
	SpeedKmh  float64  `json:"speed_kmh"`
	GapM      float64  `json:"gap_m"`
	DutyCycle *float64 `json:"duty_cycle,omitempty"`
	CdA       *float64 `json:"cda_m2,omitempty"`
}

type draftResponse struct {
	Model      string  `json:"model"`
	Multiplier float64 `json:"multiplier"`
	// Effective blends in the duty cycle on the front.
	Effective    float64  `json:"effective_multiplier"`
	SavingPct    float64  `json:"saving_pct"`
	EffectiveCdA *float64 `json:"effective_cda_m2,omitempty"`
}

// HandleDraft handles POST /v1/draft requests.
func (h *DraftHandler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	const op = "api.draft"
	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	duty := 0.0
	if req.DutyCycle != nil {
		duty = *req.DutyCycle
	}
	if err := drafting.ValidateDutyCycle(duty); err != nil {
		writeFailure(w, op, err)
		return
	}
	cfg := drafting.Config{
		Riders:   req.Riders,
		Position: req.Position,
		Speed:    units.KmhToMs(req.SpeedKmh),
		Gap:      req.GapM,
	}
	m, name, err := h.deps.DraftMultiplier(r.Context(), req.Model, cfg)
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	eff := drafting.Effective(m, duty)
	resp := draftResponse{
		Model:      name,
		Multiplier: m,
		Effective:  eff,
		SavingPct:  (1 - eff) * 100,
	}
	if req.CdA != nil {
		cda := drafting.EffectiveCdA(*req.CdA, eff)
		resp.EffectiveCdA = &cda
	}
	writeJSON(w, http.StatusOK, resp)
}
