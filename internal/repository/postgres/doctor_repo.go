package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/pkg/pagination"
)

var doctorSortFields = map[string]string{
	"id_number":  "id_number",
	"first_name": "first_name",
	"last_name":  "last_name",
	"created_at": "created_at",
}

type DoctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepository(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

func (r *DoctorRepository) Create(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return doctor.ErrDoctorAlreadyExists
		}
		return fmt.Errorf("inserting doctor: %w", err)
	}
	return nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*doctor.Doctor, error) {
	tx := r.db.WithContext(ctx).Preload("Specialties")
	if includeDeleted {
		tx = tx.Unscoped()
	}

	var d doctor.Doctor
	if err := tx.First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("fetching doctor: %w", err)
	}
	return &d, nil
}

func (r *DoctorRepository) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand) (*doctor.Doctor, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if cmd.FirstName != nil {
			updates["first_name"] = *cmd.FirstName
		}
		if cmd.LastName != nil {
			updates["last_name"] = *cmd.LastName
		}
		if cmd.IdNumber != nil {
			updates["id_number"] = *cmd.IdNumber
		}
		if cmd.IsGP != nil {
			updates["is_gp"] = *cmd.IsGP
		}
		if cmd.Approved != nil {
			updates["approved"] = *cmd.Approved
		}
		if cmd.ImageURL != nil {
			updates["image_url"] = *cmd.ImageURL
		}

		if len(updates) > 0 {
			res := tx.Model(&doctor.Doctor{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
					return doctor.ErrDoctorAlreadyExists
				}
				return fmt.Errorf("updating doctor: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return doctor.ErrDoctorNotFound
			}
		}

		if cmd.SpecialtyIDs != nil {
			specialties := make([]doctor.Specialty, len(*cmd.SpecialtyIDs))
			for i, sid := range *cmd.SpecialtyIDs {
				specialties[i] = doctor.Specialty{ID: sid}
			}
			d := doctor.Doctor{ID: id}
			if err := tx.Model(&d).Association("Specialties").Replace(specialties); err != nil {
				return fmt.Errorf("replacing specialties: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id, false)
}

func (r *DoctorRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&doctor.Doctor{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting doctor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return doctor.ErrDoctorNotFound
	}
	return nil
}

func (r *DoctorRepository) List(ctx context.Context, q *doctor.ListQuery) (pagination.Page[*doctor.Doctor], error) {
	tx := r.db.WithContext(ctx).Model(&doctor.Doctor{}).Preload("Specialties")
	tx = filterToken(tx, "id_number", q.Page.Filter)
	if q.ApprovedOnly {
		tx = tx.Where("approved")
	}
	if q.GPOnly {
		tx = tx.Where("is_gp")
	}
	return fetchPage[*doctor.Doctor](tx, q.Page, doctorSortFields, "created_at")
}

func (r *DoctorRepository) ExistsByIdNumber(ctx context.Context, idNumber string, excludeID *uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&doctor.Doctor{}).Where("id_number = ?", idNumber)
	if excludeID != nil {
		tx = tx.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking id number uniqueness: %w", err)
	}
	return count > 0, nil
}

var specialtySortFields = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

type SpecialtyRepository struct {
	db *gorm.DB
}

func NewSpecialtyRepository(db *gorm.DB) *SpecialtyRepository {
	return &SpecialtyRepository{db: db}
}

func (r *SpecialtyRepository) Create(ctx context.Context, s *doctor.Specialty) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return doctor.ErrSpecialtyAlreadyExists
		}
		return fmt.Errorf("inserting specialty: %w", err)
	}
	return nil
}

func (r *SpecialtyRepository) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Specialty, error) {
	var s doctor.Specialty
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrSpecialtyNotFound
		}
		return nil, fmt.Errorf("fetching specialty: %w", err)
	}
	return &s, nil
}

func (r *SpecialtyRepository) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateSpecialtyCommand) (*doctor.Specialty, error) {
	updates := map[string]any{}
	if cmd.Name != nil {
		updates["name"] = *cmd.Name
	}
	if cmd.Description != nil {
		updates["description"] = *cmd.Description
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&doctor.Specialty{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil, doctor.ErrSpecialtyAlreadyExists
			}
			return nil, fmt.Errorf("updating specialty: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, doctor.ErrSpecialtyNotFound
		}
	}

	return r.GetByID(ctx, id)
}

// SoftDelete refuses to remove a specialty still assigned to a live doctor.
func (r *SpecialtyRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inUse int64
		err := tx.Table("clinical.doctor_specialties AS ds").
			Joins("JOIN clinical.doctors d ON d.id = ds.doctor_id AND d.deleted_at IS NULL").
			Where("ds.specialty_id = ?", id).
			Count(&inUse).Error
		if err != nil {
			return fmt.Errorf("checking specialty usage: %w", err)
		}
		if inUse > 0 {
			return doctor.ErrSpecialtyInUse
		}

		res := tx.Delete(&doctor.Specialty{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("deleting specialty: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return doctor.ErrSpecialtyNotFound
		}
		return nil
	})
}

func (r *SpecialtyRepository) List(ctx context.Context, req pagination.Request) (pagination.Page[*doctor.Specialty], error) {
	tx := r.db.WithContext(ctx).Model(&doctor.Specialty{})
	tx = filterToken(tx, "name", req.Filter)
	return fetchPage[*doctor.Specialty](tx, req, specialtySortFields, "name")
}
