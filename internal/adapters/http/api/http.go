// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/veloperf/internal/domain/physics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PredictDependencies
	GroupDependencies
	DraftDependencies
	JobsDependencies
	PresetsDependencies
	RouteDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	predictHandler *PredictHandler
	groupHandler   *GroupHandler
	draftHandler   *DraftHandler
	jobsHandler    *JobsHandler
	presetsHandler *PresetsHandler
	routeHandler   *RouteHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		predictHandler: NewPredictHandler(deps),
		groupHandler:   NewGroupHandler(deps),
		draftHandler:   NewDraftHandler(deps),
		jobsHandler:    NewJobsHandler(deps),
		presetsHandler: NewPresetsHandler(deps),
		routeHandler:   NewRouteHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /v1/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("POST /v1/group", MetricsMiddleware(s.groupHandler.HandleGroup, "group"))
	mux.HandleFunc("POST /v1/draft", MetricsMiddleware(s.draftHandler.HandleDraft, "draft"))
	mux.HandleFunc("GET /v1/presets", MetricsMiddleware(s.presetsHandler.HandlePresets, "presets"))
	mux.HandleFunc("POST /v1/route/gpx", MetricsMiddleware(s.routeHandler.HandleGPX, "route_gpx"))

	mux.HandleFunc("POST /v1/jobs", MetricsMiddleware(s.jobsHandler.HandleSubmit, "jobs_submit"))
	mux.HandleFunc("GET /v1/jobs", MetricsMiddleware(s.jobsHandler.HandleList, "jobs_list"))
	mux.HandleFunc("GET /v1/jobs/{id}", MetricsMiddleware(s.jobsHandler.HandleGet, "jobs_get"))
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details *divergenceDetail `json:"details,omitempty"`
}

// divergenceDetail exposes the solver's last state when it gives up.
type divergenceDetail struct {
	Reason       string  `json:"reason"`
	Iterations   int     `json:"iterations"`
	LastEstimate float64 `json:"last_estimate_ms"`
	LastPower    float64 `json:"last_power_w"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var se *physics.SolverError
	if errors.As(err, &se) {
		resp.Details = &divergenceDetail{
			Reason:       se.Reason,
			Iterations:   se.Iterations,
			LastEstimate: se.LastEstimate,
			LastPower:    se.LastPower,
		}
	}
	writeJSON(w, status, resp)
}

// writeFailure writes err with the status its kind maps to.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, Wrap(op, err))
}

// decodeJSON reads a single JSON document from r into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
