package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medrec/medrec-api/internal/domain/visit"
	"github.com/medrec/medrec-api/pkg/pagination"
)

const dateLayout = "2006-01-02"

var visitSortFields = map[string]string{
	"date":       "clinical.visits.visit_date",
	"time":       "clinical.visits.visit_time",
	"status":     "clinical.visits.status",
	"created_at": "clinical.visits.created_at",
}

var sickLeaveSortFields = map[string]string{
	"start_date":    "start_date",
	"duration_days": "duration_days",
	"created_at":    "created_at",
}

var treatmentSortFields = map[string]string{
	"created_at": "created_at",
}

type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create inserts the visit with its attached sick leave and treatment. The
// partial unique index over (doctor_id, visit_date, visit_time) is the
// authoritative slot guard; its violation surfaces here as ErrSlotConflict.
func (r *VisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return visit.ErrSlotConflict
		}
		return fmt.Errorf("inserting visit: %w", err)
	}
	return nil
}

func (r *VisitRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*visit.Visit, error) {
	tx := r.db.WithContext(ctx).
		Preload("SickLeave").
		Preload("Treatment").
		Preload("Treatment.Medicines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
	if includeDeleted {
		tx = tx.Unscoped()
	}

	var v visit.Visit
	if err := tx.First(&v, "clinical.visits.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, visit.ErrVisitNotFound
		}
		return nil, fmt.Errorf("fetching visit: %w", err)
	}
	return &v, nil
}

func (r *VisitRepository) Update(ctx context.Context, id uuid.UUID, cmd *visit.UpdateVisitCommand) (*visit.Visit, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if cmd.PatientID != nil {
			updates["patient_id"] = *cmd.PatientID
		}
		if cmd.DoctorID != nil {
			updates["doctor_id"] = *cmd.DoctorID
		}
		if cmd.DiagnosisID != nil {
			updates["diagnosis_id"] = *cmd.DiagnosisID
		}
		if cmd.VisitDate != nil {
			updates["visit_date"] = cmd.VisitDate.Format(dateLayout)
		}
		if cmd.VisitTime != nil {
			updates["visit_time"] = *cmd.VisitTime
		}
		if cmd.Status != nil {
			updates["status"] = *cmd.Status
		}

		if len(updates) > 0 {
			res := tx.Model(&visit.Visit{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
					return visit.ErrSlotConflict
				}
				return fmt.Errorf("updating visit: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return visit.ErrVisitNotFound
			}
		}

		if cmd.SickLeave != nil {
			if err := tx.Where("visit_id = ?", id).Delete(&visit.SickLeave{}).Error; err != nil {
				return fmt.Errorf("replacing sick leave: %w", err)
			}
			sl := &visit.SickLeave{
				VisitID:      id,
				StartDate:    cmd.SickLeave.StartDate,
				DurationDays: cmd.SickLeave.DurationDays,
			}
			if err := tx.Create(sl).Error; err != nil {
				return fmt.Errorf("attaching sick leave: %w", err)
			}
		}

		if cmd.Treatment != nil {
			var old visit.Treatment
			err := tx.First(&old, "visit_id = ?", id).Error
			switch {
			case err == nil:
				if err := tx.Where("treatment_id = ?", old.ID).Delete(&visit.Medicine{}).Error; err != nil {
					return fmt.Errorf("clearing medicines: %w", err)
				}
				if err := tx.Delete(&old).Error; err != nil {
					return fmt.Errorf("replacing treatment: %w", err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				// nothing to replace
			default:
				return fmt.Errorf("fetching treatment: %w", err)
			}

			tr := &visit.Treatment{
				VisitID:     id,
				Description: cmd.Treatment.Description,
			}
			for i, m := range cmd.Treatment.Medicines {
				tr.Medicines = append(tr.Medicines, visit.Medicine{
					Name:      m.Name,
					Dosage:    m.Dosage,
					Frequency: m.Frequency,
					Position:  i,
				})
			}
			if err := tx.Create(tr).Error; err != nil {
				return fmt.Errorf("attaching treatment: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id, false)
}

func (r *VisitRepository) UpdateStatus(ctx context.Context, v *visit.Visit) error {
	res := r.db.WithContext(ctx).Model(&visit.Visit{}).Where("id = ?", v.ID).Update("status", v.Status)
	if res.Error != nil {
		return fmt.Errorf("updating visit status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return visit.ErrVisitNotFound
	}
	return nil
}

// HardDelete physically removes the visit and everything it owns. The
// dependents cannot outlive the visit, so the cascade happens in one
// transaction.
func (r *VisitRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v visit.Visit
		if err := tx.Unscoped().First(&v, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return visit.ErrVisitNotFound
			}
			return fmt.Errorf("fetching visit: %w", err)
		}

		var tr visit.Treatment
		err := tx.Unscoped().First(&tr, "visit_id = ?", id).Error
		switch {
		case err == nil:
			if err := tx.Unscoped().Where("treatment_id = ?", tr.ID).Delete(&visit.Medicine{}).Error; err != nil {
				return fmt.Errorf("deleting medicines: %w", err)
			}
			if err := tx.Unscoped().Delete(&tr).Error; err != nil {
				return fmt.Errorf("deleting treatment: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("fetching treatment: %w", err)
		}

		if err := tx.Unscoped().Where("visit_id = ?", id).Delete(&visit.SickLeave{}).Error; err != nil {
			return fmt.Errorf("deleting sick leave: %w", err)
		}

		if err := tx.Unscoped().Delete(&v).Error; err != nil {
			return fmt.Errorf("deleting visit: %w", err)
		}
		return nil
	})
}

func (r *VisitRepository) List(ctx context.Context, q *visit.ListQuery) (pagination.Page[*visit.Visit], error) {
	tx := r.db.WithContext(ctx).Model(&visit.Visit{}).
		Preload("SickLeave").
		Preload("Treatment").
		Preload("Treatment.Medicines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})

	// The filter token matches either side of the visit: patient EGN or
	// doctor id number.
	if q.Page.Filter != "" {
		token := "%" + q.Page.Filter + "%"
		tx = tx.
			Joins("JOIN clinical.patients p ON p.id = clinical.visits.patient_id").
			Joins("JOIN clinical.doctors d ON d.id = clinical.visits.doctor_id").
			Where("p.egn ILIKE ? OR d.id_number ILIKE ?", token, token)
	}

	if q.PatientID != nil {
		tx = tx.Where("clinical.visits.patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		tx = tx.Where("clinical.visits.doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		tx = tx.Where("clinical.visits.status = ?", *q.Status)
	}
	if q.DateFrom != nil {
		tx = tx.Where("clinical.visits.visit_date >= ?", q.DateFrom.Format(dateLayout))
	}
	if q.DateTo != nil {
		tx = tx.Where("clinical.visits.visit_date <= ?", q.DateTo.Format(dateLayout))
	}

	return fetchPage[*visit.Visit](tx, q.Page, visitSortFields, "date")
}

func (r *VisitRepository) ExistsConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&visit.Visit{}).
		Where("doctor_id = ?", doctorID).
		Where("visit_date = ?", date.Format(dateLayout)).
		Where("visit_time = ?", timeOfDay).
		Where("status <> ?", visit.StatusCancelled)
	if excludeID != nil {
		tx = tx.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking slot conflict: %w", err)
	}
	return count > 0, nil
}

func (r *VisitRepository) ListSickLeaves(ctx context.Context, req pagination.Request) (pagination.Page[*visit.SickLeave], error) {
	tx := r.db.WithContext(ctx).Model(&visit.SickLeave{})
	return fetchPage[*visit.SickLeave](tx, req, sickLeaveSortFields, "start_date")
}

func (r *VisitRepository) ListTreatments(ctx context.Context, req pagination.Request) (pagination.Page[*visit.Treatment], error) {
	tx := r.db.WithContext(ctx).Model(&visit.Treatment{}).
		Preload("Medicines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
	return fetchPage[*visit.Treatment](tx, req, treatmentSortFields, "created_at")
}
