package api

import (
	"context"
	"io"
	"net/http"

	gpxroute "github.com/okian/veloperf/internal/adapters/gpx"
	"github.com/okian/veloperf/pkg/units"
)

// maxGPXBytes caps uploaded GPX documents.
const maxGPXBytes = 10 << 20

// RouteDependencies defines what the route handler needs.
type RouteDependencies interface {
	RouteFromGPX(ctx context.Context, data []byte) (gpxroute.Route, error)
}

// RouteHandler turns GPX uploads into predictor segments.
type RouteHandler struct {
	deps RouteDependencies
}

// NewRouteHandler creates a new route handler.
func NewRouteHandler(deps RouteDependencies) *RouteHandler {
	return &RouteHandler{deps: deps}
}

type routeResponse struct {
	gpxroute.Route
	DistanceKm float64 `json:"distance_km"`
	GradePct   float64 `json:"grade_pct"`
}

// HandleGPX handles POST /v1/route/gpx requests. The body is the raw GPX
// document.
func (h *RouteHandler) HandleGPX(w http.ResponseWriter, r *http.Request) {
	const op = "api.route_gpx"
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGPXBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	route, err := h.deps.RouteFromGPX(r.Context(), data)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{
		Route:      route,
		DistanceKm: units.MToKm(route.Distance),
		GradePct:   units.GradeToPercent(route.Segment.Grade),
	})
}
