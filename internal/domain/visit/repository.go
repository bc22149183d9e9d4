package visit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec-api/pkg/pagination"
)

type Repository interface {
	// Create persists a new visit together with any attached sick leave and
	// treatment. The storage layer carries a unique index over
	// (doctor, date, time) for non-cancelled rows; a violation surfaces as
	// ErrSlotConflict.
	Create(ctx context.Context, v *Visit) error

	// GetByID retrieves a visit with its sick leave, treatment and
	// medicines. includeDeleted is the explicit administrative path that
	// also sees soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Visit, error)

	// Update applies partial updates, replacing the attached sick leave or
	// treatment when the command carries one.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateVisitCommand) (*Visit, error)

	// UpdateStatus persists a status transition already validated by the
	// caller.
	UpdateStatus(ctx context.Context, v *Visit) error

	// HardDelete physically removes the visit and cascades to its sick
	// leave, treatment and medicines. Administrative cleanup only.
	HardDelete(ctx context.Context, id uuid.UUID) error

	// List returns a page of visits; the filter token matches either the
	// patient EGN or the doctor id number.
	List(ctx context.Context, q *ListQuery) (pagination.Page[*Visit], error)

	// ExistsConflict reports whether a non-deleted, non-cancelled visit
	// already occupies the doctor's slot, excluding the visit being updated.
	ExistsConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (bool, error)

	// ListSickLeaves and ListTreatments back the generic catalog listings
	// for the visit-owned entities.
	ListSickLeaves(ctx context.Context, req pagination.Request) (pagination.Page[*SickLeave], error)
	ListTreatments(ctx context.Context, req pagination.Request) (pagination.Page[*Treatment], error)
}
