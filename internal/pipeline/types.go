// Package pipeline defines the core types and interfaces shared across
// the sync, ingest, and analytics subsystems.
package pipeline

import "time"

// RemoteItem is one candidate file discovered in the remote directory
// listing. Items are ephemeral; they exist only for the duration of a
// sync run.
type RemoteItem struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RunKind identifies which pipeline produced a run record.
type RunKind string

// Run kinds persisted in the run store.
const (
	RunKindIngestion RunKind = "ingestion"
	RunKindAnalytics RunKind = "analytics"
)

// RunStatus represents the terminal state of a pipeline run.
type RunStatus string

// Run status values persisted in the run store.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the metadata persisted for each pipeline execution.
type Run struct {
	ID       string     `json:"id"`
	Kind     RunKind    `json:"kind"`
	Status   RunStatus  `json:"status"`
	Started  time.Time  `json:"started_at"`
	Finished *time.Time `json:"finished_at,omitempty"`
	Detail   []byte     `json:"detail,omitempty"`
}
