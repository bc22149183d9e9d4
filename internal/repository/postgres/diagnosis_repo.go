package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/pkg/pagination"
)

var diagnosisSortFields = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

type DiagnosisRepository struct {
	db *gorm.DB
}

func NewDiagnosisRepository(db *gorm.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

func (r *DiagnosisRepository) Create(ctx context.Context, d *diagnosis.Diagnosis) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return diagnosis.ErrDiagnosisAlreadyExists
		}
		return fmt.Errorf("inserting diagnosis: %w", err)
	}
	return nil
}

func (r *DiagnosisRepository) GetByID(ctx context.Context, id uuid.UUID) (*diagnosis.Diagnosis, error) {
	var d diagnosis.Diagnosis
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, diagnosis.ErrDiagnosisNotFound
		}
		return nil, fmt.Errorf("fetching diagnosis: %w", err)
	}
	return &d, nil
}

func (r *DiagnosisRepository) Update(ctx context.Context, id uuid.UUID, cmd *diagnosis.UpdateDiagnosisCommand) (*diagnosis.Diagnosis, error) {
	updates := map[string]any{}
	if cmd.Name != nil {
		updates["name"] = *cmd.Name
	}
	if cmd.Description != nil {
		updates["description"] = *cmd.Description
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&diagnosis.Diagnosis{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil, diagnosis.ErrDiagnosisAlreadyExists
			}
			return nil, fmt.Errorf("updating diagnosis: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, diagnosis.ErrDiagnosisNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *DiagnosisRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&diagnosis.Diagnosis{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting diagnosis: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return diagnosis.ErrDiagnosisNotFound
	}
	return nil
}

func (r *DiagnosisRepository) List(ctx context.Context, req pagination.Request) (pagination.Page[*diagnosis.Diagnosis], error) {
	tx := r.db.WithContext(ctx).Model(&diagnosis.Diagnosis{})
	tx = filterToken(tx, "name", req.Filter)
	return fetchPage[*diagnosis.Diagnosis](tx, req, diagnosisSortFields, "name")
}
