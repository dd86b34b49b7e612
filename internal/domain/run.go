package domain

import "time"

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial" // finished with failed segments
	RunFailed    RunStatus = "failed"
)

// RunRecord is the persisted summary of one pipeline run.
type RunRecord struct {
	ID       string    `json:"id"`
	Template string    `json:"template"`
	Start    int       `json:"start"`
	Stop     int       `json:"stop"`
	Output   string    `json:"output"`
	Workers  int       `json:"workers"`
	Status   RunStatus `json:"status"`

	Fetched int   `json:"fetched"`
	Skipped int   `json:"skipped"`
	Bytes   int64 `json:"bytes"`

	FailedIndices []int  `json:"failed_indices,omitempty"`
	Error         string `json:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the run reached a terminal status.
func (r *RunRecord) Finished() bool {
	return r.Status == RunCompleted || r.Status == RunPartial || r.Status == RunFailed
}
