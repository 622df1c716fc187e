package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType selects the handler a job is dispatched to.
type JobType string

const (
	JobTypePayoutStatusRefresh JobType = "payout_status_refresh"
)

// JobStatus is the job lifecycle.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job is a unit of deferred work. Claiming moves QUEUED -> RUNNING and
// increments Attempts in one atomic step.
type Job struct {
	ID        uuid.UUID       `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status"`
	RunAt     time.Time       `json:"run_at"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PayoutRefreshPayload is the payload of a payout_status_refresh job.
type PayoutRefreshPayload struct {
	PayoutID    uuid.UUID `json:"payoutId"`
	ProviderRef string    `json:"providerRef"`
}

// NewPayoutRefreshJob builds a queued refresh job for payout p.
func NewPayoutRefreshJob(p *Payout, runAt time.Time) (*Job, error) {
	payload, err := json.Marshal(PayoutRefreshPayload{PayoutID: p.ID, ProviderRef: p.ProviderRef})
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:        uuid.New(),
		Type:      JobTypePayoutStatusRefresh,
		Payload:   payload,
		Status:    JobStatusQueued,
		RunAt:     runAt,
		CreatedAt: runAt,
		UpdatedAt: runAt,
	}, nil
}

// SweepReport summarises one pass of the settlement worker.
type SweepReport struct {
	Seen      int `json:"seen"`
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Requeued  int `json:"requeued"`
	Failed    int `json:"failed"`
	Reclaimed int `json:"reclaimed"`
}
