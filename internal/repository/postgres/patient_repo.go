package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/pkg/pagination"
)

var patientSortFields = map[string]string{
	"egn":        "egn",
	"first_name": "first_name",
	"last_name":  "last_name",
	"created_at": "created_at",
}

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return patient.ErrPatientAlreadyExists
		}
		return fmt.Errorf("inserting patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*patient.Patient, error) {
	tx := r.db.WithContext(ctx)
	if includeDeleted {
		tx = tx.Unscoped()
	}

	var p patient.Patient
	if err := tx.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("fetching patient: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("fetching patient by user: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	updates := map[string]any{}
	if cmd.FirstName != nil {
		updates["first_name"] = *cmd.FirstName
	}
	if cmd.LastName != nil {
		updates["last_name"] = *cmd.LastName
	}
	if cmd.EGN != nil {
		updates["egn"] = *cmd.EGN
	}
	if cmd.GeneralPractitionerID != nil {
		updates["general_practitioner_id"] = *cmd.GeneralPractitionerID
	}
	if cmd.LastInsurancePayment != nil {
		updates["last_insurance_payment"] = *cmd.LastInsurancePayment
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&patient.Patient{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil, patient.ErrPatientAlreadyExists
			}
			return nil, fmt.Errorf("updating patient: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, patient.ErrPatientNotFound
		}
	}

	return r.GetByID(ctx, id, false)
}

func (r *PatientRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&patient.Patient{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting patient: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListQuery) (pagination.Page[*patient.Patient], error) {
	tx := r.db.WithContext(ctx).Model(&patient.Patient{})
	tx = filterToken(tx, "egn", q.Page.Filter)
	if q.GeneralPractitionerID != nil {
		tx = tx.Where("general_practitioner_id = ?", *q.GeneralPractitionerID)
	}
	return fetchPage[*patient.Patient](tx, q.Page, patientSortFields, "created_at")
}

func (r *PatientRepository) ExistsByEGN(ctx context.Context, egn string, excludeID *uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&patient.Patient{}).Where("egn = ?", egn)
	if excludeID != nil {
		tx = tx.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking EGN uniqueness: %w", err)
	}
	return count > 0, nil
}
