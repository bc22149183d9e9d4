// Package report defines the read-side aggregate rows the administrative
// reports are built from. All rows are computed over non-deleted entities and
// every count excludes cancelled visits.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DiagnosisFrequency struct {
	DiagnosisID uuid.UUID `json:"diagnosis_id"`
	Name        string    `json:"name"`
	VisitCount  int64     `json:"visit_count"`
}

type DoctorVisitCount struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	IdNumber   string    `json:"id_number"`
	VisitCount int64     `json:"visit_count"`
}

type GPPatientCount struct {
	DoctorID     uuid.UUID `json:"doctor_id"`
	DoctorName   string    `json:"doctor_name"`
	PatientCount int64     `json:"patient_count"`
}

type DoctorSickLeaveCount struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	DoctorName     string    `json:"doctor_name"`
	SickLeaveCount int64     `json:"sick_leave_count"`
}

type MonthSickLeaveCount struct {
	Year           int        `json:"year"`
	Month          time.Month `json:"month"`
	SickLeaveCount int64      `json:"sick_leave_count"`
}

// Repository returns raw grouped rows; final ordering and tie selection are
// the report engine's concern so they stay testable without a database.
type Repository interface {
	// DiagnosisFrequencies groups live, non-cancelled visits by diagnosis.
	DiagnosisFrequencies(ctx context.Context) ([]DiagnosisFrequency, error)

	// VisitCountsByDoctor has left-join semantics: every live doctor
	// appears, including those with zero visits.
	VisitCountsByDoctor(ctx context.Context) ([]DoctorVisitCount, error)

	// PatientCountsByGP groups live patients by their general practitioner;
	// every live GP appears, including those with zero patients.
	PatientCountsByGP(ctx context.Context) ([]GPPatientCount, error)

	// SickLeaveCountsByDoctor groups sick leaves by the doctor of the
	// owning visit.
	SickLeaveCountsByDoctor(ctx context.Context) ([]DoctorSickLeaveCount, error)

	// SickLeaveCountsByMonth groups sick leaves by the (year, month) of
	// their start date.
	SickLeaveCountsByMonth(ctx context.Context) ([]MonthSickLeaveCount, error)
}
