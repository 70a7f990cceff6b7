// Package declarations persists scraped sworn-declaration records.
//
// A record is keyed by (sence_code, participant_rut): re-running a sync for
// the same course must refresh existing rows instead of duplicating them.
package declarations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// ErrNotFound is returned when no declaration matches the given key.
var ErrNotFound = errors.New("declaration not found")

// Record is one participant's sworn-declaration state for a SENCE course.
type Record struct {
	ID uuid.UUID `json:"id"`

	// SenceCode is the external course identifier the record belongs to
	SenceCode string `json:"senceCode"`

	// ParticipantRut is the participant's national identifier
	ParticipantRut string `json:"participantRut"`

	// ParticipantName as reported by the remote system
	ParticipantName string `json:"participantName"`

	// SessionsAttended counts attended sessions per the remote system
	SessionsAttended int `json:"sessionsAttended"`

	// Status is the normalized declaration status
	Status string `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store provides access to persisted declaration records.
type Store interface {
	// Upsert inserts the record or, when a row with the same
	// (sence_code, participant_rut) exists, refreshes its mutable fields.
	Upsert(ctx context.Context, rec Record) (Record, error)

	// ListBySenceCode returns all records for the given SENCE course code.
	ListBySenceCode(ctx context.Context, senceCode string) ([]Record, error)

	// Get looks up one record by its natural key.
	Get(ctx context.Context, senceCode, participantRut string) (Record, error)
}
