// Package courses persists the local course catalog.
package courses

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// ErrNotFound is returned when no course matches the given identifier.
var ErrNotFound = errors.New("course not found")

// Record is a locally managed training course. SenceCode is nil until the
// course has been linked to the external SENCE platform.
type Record struct {
	ID uuid.UUID `json:"id"`

	Name string `json:"name"`

	// SenceCode is the external platform identifier, unique when present
	SenceCode *string `json:"senceCode,omitempty"`

	// ContactEmail receives sync notifications for this course
	ContactEmail string `json:"contactEmail,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateParams are the fields settable at course creation.
type CreateParams struct {
	Name         string
	SenceCode    *string
	ContactEmail string
}

// UpdateParams are the fields settable on update. Nil pointers leave the
// current value untouched; clearing a SENCE code is not supported through
// this path.
type UpdateParams struct {
	Name         *string
	SenceCode    *string
	ContactEmail *string
}

// Store provides access to the course catalog.
type Store interface {
	Create(ctx context.Context, params CreateParams) (Record, error)

	// Update applies the non-nil params and returns the updated record.
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (Record, error)

	GetByID(ctx context.Context, id uuid.UUID) (Record, error)

	List(ctx context.Context) ([]Record, error)
}
