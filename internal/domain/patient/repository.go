package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/medrec/medrec-api/pkg/pagination"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists on a
	// duplicate EGN.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a live patient. includeDeleted is the explicit
	// administrative path that also sees soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Patient, error)

	// GetByUserID resolves a patient by their auth subject binding.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)

	// Update applies partial updates to an existing patient record.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdatePatientCommand) (*Patient, error)

	// SoftDelete marks the patient as deleted; history is retained.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns a page of patients filtered by EGN substring.
	List(ctx context.Context, q *ListQuery) (pagination.Page[*Patient], error)

	// ExistsByEGN checks EGN uniqueness without fetching the full record.
	ExistsByEGN(ctx context.Context, egn string, excludeID *uuid.UUID) (bool, error)
}
