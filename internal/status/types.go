// Package status provides in-memory sync status tracking per course.
package status

import "time"

// SyncState represents the current state of a course's declaration sync
type SyncState string

const (
	// StateIdle means no sync has been attempted (or the process restarted)
	StateIdle SyncState = "idle"

	// StateInProgress means a sync is currently running
	StateInProgress SyncState = "in_progress"

	// StateCompleted means the last sync finished successfully
	StateCompleted SyncState = "completed"

	// StateError means the last sync failed
	StateError SyncState = "error"
)

// Record is the tracked status for one course reference
type Record struct {
	// CourseRef identifies the course being synced
	CourseRef string `json:"courseRef"`

	// State is the current sync state
	State SyncState `json:"status"`

	// SessionTag links the record to the sync session that started it
	SessionTag string `json:"sessionTag,omitempty"`

	// StartedAt is when the current (or last) attempt began
	StartedAt *time.Time `json:"startedAt,omitempty"`

	// FinishedAt is when the attempt reached a terminal state
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	// RecordCount is the number of declaration records processed on success
	RecordCount int `json:"recordCount,omitempty"`

	// ErrorDetail carries the failure description on error
	ErrorDetail string `json:"errorDetail,omitempty"`
}
