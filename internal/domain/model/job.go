// Package model contains the job types passed between the API, queue,
// workers and result store.
package model

import (
	"time"

	"github.com/okian/veloperf/internal/domain/scenario"
)

// Status is the lifecycle state of a batch job.
type Status string

// Job states.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one scenario submitted for asynchronous evaluation.
type Job struct {
	ID         string            // unique id for idempotency
	Scenario   scenario.Scenario // SI inputs
	EnqueuedAt time.Time
}

// Record is the stored state of a job.
type Record struct {
	ID          string           `json:"id"`
	Status      Status           `json:"status"`
	Result      *scenario.Result `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Pending returns the initial record for a job.
func Pending(j Job) Record {
	return Record{ID: j.ID, Status: StatusPending, SubmittedAt: j.EnqueuedAt}
}

// Complete returns r finished with either a result or an error.
func (r Record) Complete(res *scenario.Result, err error, at time.Time) Record {
	r.CompletedAt = &at
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		r.Result = nil
		return r
	}
	r.Status = StatusDone
	r.Result = res
	r.Error = ""
	return r
}

// Finished reports whether the job left the pending state.
func (r Record) Finished() bool { return r.Status != StatusPending }

// Submission outcomes.
const (
	SubmissionAccepted  = "accepted"
	SubmissionDuplicate = "duplicate"
	SubmissionRejected  = "rejected"
)

// Submission reports what happened to one job of a batch.
type Submission struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
