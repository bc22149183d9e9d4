package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/medrec/medrec-api/internal/domain/report"
)

// ReportRepository computes the grouped rows behind the administrative
// reports. Every query excludes soft-deleted entities and cancelled visits;
// final ordering is applied by the report engine.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) DiagnosisFrequencies(ctx context.Context) ([]report.DiagnosisFrequency, error) {
	var rows []report.DiagnosisFrequency
	err := r.db.WithContext(ctx).Raw(`
		SELECT dg.id AS diagnosis_id, dg.name, COUNT(v.id) AS visit_count
		FROM clinical.diagnoses dg
		JOIN clinical.visits v ON v.diagnosis_id = dg.id
			AND v.deleted_at IS NULL
			AND v.status <> 'cancelled'
		WHERE dg.deleted_at IS NULL
		GROUP BY dg.id, dg.name`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping visits by diagnosis: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) VisitCountsByDoctor(ctx context.Context) ([]report.DoctorVisitCount, error) {
	var rows []report.DoctorVisitCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT d.id AS doctor_id,
			TRIM(d.first_name || ' ' || d.last_name) AS doctor_name,
			d.id_number,
			COUNT(v.id) AS visit_count
		FROM clinical.doctors d
		LEFT JOIN clinical.visits v ON v.doctor_id = d.id
			AND v.deleted_at IS NULL
			AND v.status <> 'cancelled'
		WHERE d.deleted_at IS NULL
		GROUP BY d.id, d.first_name, d.last_name, d.id_number`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping visits by doctor: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) PatientCountsByGP(ctx context.Context) ([]report.GPPatientCount, error) {
	var rows []report.GPPatientCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT d.id AS doctor_id,
			TRIM(d.first_name || ' ' || d.last_name) AS doctor_name,
			COUNT(p.id) AS patient_count
		FROM clinical.doctors d
		LEFT JOIN clinical.patients p ON p.general_practitioner_id = d.id
			AND p.deleted_at IS NULL
		WHERE d.deleted_at IS NULL AND d.is_gp
		GROUP BY d.id, d.first_name, d.last_name`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping patients by GP: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) SickLeaveCountsByDoctor(ctx context.Context) ([]report.DoctorSickLeaveCount, error) {
	var rows []report.DoctorSickLeaveCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT d.id AS doctor_id,
			TRIM(d.first_name || ' ' || d.last_name) AS doctor_name,
			COUNT(sl.id) AS sick_leave_count
		FROM clinical.sick_leaves sl
		JOIN clinical.visits v ON v.id = sl.visit_id
			AND v.deleted_at IS NULL
			AND v.status <> 'cancelled'
		JOIN clinical.doctors d ON d.id = v.doctor_id AND d.deleted_at IS NULL
		WHERE sl.deleted_at IS NULL
		GROUP BY d.id, d.first_name, d.last_name`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping sick leaves by doctor: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) SickLeaveCountsByMonth(ctx context.Context) ([]report.MonthSickLeaveCount, error) {
	var rows []report.MonthSickLeaveCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT EXTRACT(YEAR FROM sl.start_date)::int AS year,
			EXTRACT(MONTH FROM sl.start_date)::int AS month,
			COUNT(sl.id) AS sick_leave_count
		FROM clinical.sick_leaves sl
		JOIN clinical.visits v ON v.id = sl.visit_id
			AND v.deleted_at IS NULL
			AND v.status <> 'cancelled'
		WHERE sl.deleted_at IS NULL
		GROUP BY 1, 2`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping sick leaves by month: %w", err)
	}
	return rows, nil
}
