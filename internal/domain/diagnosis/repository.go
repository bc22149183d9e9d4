package diagnosis

import (
	"context"

	"github.com/google/uuid"

	"github.com/medrec/medrec-api/pkg/pagination"
)

type Repository interface {
	// Create persists a new diagnosis. Returns ErrDiagnosisAlreadyExists on
	// a duplicate name.
	Create(ctx context.Context, d *Diagnosis) error

	GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error)

	Update(ctx context.Context, id uuid.UUID, cmd *UpdateDiagnosisCommand) (*Diagnosis, error)

	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns a page of diagnoses filtered by name substring.
	List(ctx context.Context, req pagination.Request) (pagination.Page[*Diagnosis], error)
}
