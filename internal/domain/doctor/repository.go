package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/medrec/medrec-api/pkg/pagination"
)

type Repository interface {
	// Create persists a new doctor. Returns ErrDoctorAlreadyExists on a
	// duplicate IdNumber.
	Create(ctx context.Context, d *Doctor) error

	// GetByID retrieves a live doctor. includeDeleted is the explicit
	// administrative path that also sees soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Doctor, error)

	// Update applies partial updates to an existing doctor.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateDoctorCommand) (*Doctor, error)

	// SoftDelete marks the doctor as deleted; history is retained.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns a page of doctors filtered by IdNumber substring.
	List(ctx context.Context, q *ListQuery) (pagination.Page[*Doctor], error)

	// ExistsByIdNumber checks license-number uniqueness without fetching.
	ExistsByIdNumber(ctx context.Context, idNumber string, excludeID *uuid.UUID) (bool, error)
}

type SpecialtyRepository interface {
	// Create persists a new specialty. Returns ErrSpecialtyAlreadyExists on
	// a duplicate name.
	Create(ctx context.Context, s *Specialty) error

	GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error)

	Update(ctx context.Context, id uuid.UUID, cmd *UpdateSpecialtyCommand) (*Specialty, error)

	// SoftDelete removes a specialty. Returns ErrSpecialtyInUse while any
	// live doctor still carries it.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, req pagination.Request) (pagination.Page[*Specialty], error)
}
