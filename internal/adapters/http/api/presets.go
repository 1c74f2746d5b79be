package api

import (
	"net/http"

	"github.com/okian/veloperf/internal/domain/presets"
)

// PresetsDependencies defines what the presets handler needs.
type PresetsDependencies interface {
	Presets() *presets.Table
	Defaults() presets.Defaults
}

// PresetsHandler serves the lookup tables.
type PresetsHandler struct {
	deps PresetsDependencies
}

// NewPresetsHandler creates a new presets handler.
func NewPresetsHandler(deps PresetsDependencies) *PresetsHandler {
	return &PresetsHandler{deps: deps}
}

type presetsResponse struct {
	Crr       map[string]map[string]float64 `json:"crr"`
	Positions []presets.Band                `json:"positions"`
	Defaults  presets.Defaults              `json:"defaults"`
}

// HandlePresets handles GET /v1/presets requests.
func (h *PresetsHandler) HandlePresets(w http.ResponseWriter, _ *http.Request) {
	t := h.deps.Presets()
	writeJSON(w, http.StatusOK, presetsResponse{
		Crr:       t.CrrTable(),
		Positions: t.Bands(),
		Defaults:  h.deps.Defaults(),
	})
}
