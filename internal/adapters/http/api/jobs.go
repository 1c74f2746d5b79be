package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/veloperf/internal/app"
	"github.com/okian/veloperf/internal/domain/model"
	"github.com/okian/veloperf/internal/domain/scenario"
)

const defaultListLimit = 100

// JobsDependencies defines what the batch job handlers need.
type JobsDependencies interface {
	Submit(ctx context.Context, batch []scenario.Scenario) ([]model.Submission, error)
	Job(ctx context.Context, id string) (model.Record, error)
	Jobs(ctx context.Context, status model.Status, limit int) ([]model.Record, error)
}

// JobsHandler handles batch submission and result lookup.
type JobsHandler struct {
	deps JobsDependencies
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps JobsDependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

// submitRequest carries scenarios in SI units.
type submitRequest struct {
	Scenarios []scenario.Scenario `json:"scenarios"`
}

type submitResponse struct {
	Accepted    int                `json:"accepted"`
	Duplicates  int                `json:"duplicates"`
	Rejected    int                `json:"rejected"`
	Submissions []model.Submission `json:"submissions"`
}

type listResponse struct {
	Jobs  []model.Record `json:"jobs"`
	Count int            `json:"count"`
}

// HandleSubmit handles POST /v1/jobs requests. Nothing accepted because the
// queue is full answers 429; anything else answers 202 with per-item status.
func (h *JobsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_jobs"
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	subs, err := h.deps.Submit(r.Context(), req.Scenarios)
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	resp := submitResponse{Submissions: subs}
	backpressured := 0
	for _, s := range subs {
		switch s.Status {
		case model.SubmissionAccepted:
			resp.Accepted++
		case model.SubmissionDuplicate:
			resp.Duplicates++
		default:
			resp.Rejected++
			if s.Error == service.ErrBackpressure.Error() {
				backpressured++
			}
		}
	}
	if resp.Accepted == 0 && backpressured > 0 {
		writeError(w, http.StatusTooManyRequests, codeBackpress, NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// HandleGet handles GET /v1/jobs/{id} requests.
func (h *JobsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	rec, err := h.deps.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleList handles GET /v1/jobs?status=&limit= requests.
func (h *JobsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_jobs"
	q := r.URL.Query()

	status := model.Status(q.Get("status"))
	switch status {
	case "", model.StatusPending, model.StatusDone, model.StatusFailed:
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest,
			WrapKind(op, ErrBadRequest, fmt.Errorf("unknown status %q", status)))
		return
	}

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest,
				WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}

	recs, err := h.deps.Jobs(r.Context(), status, limit)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}
	writeJSON(w, http.StatusOK, listResponse{Jobs: recs, Count: len(recs)})
}
