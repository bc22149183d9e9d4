package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/domain/visit"
	"github.com/medrec/medrec-api/pkg/pagination"
)

type VisitService struct {
	repo          visit.Repository
	patientRepo   patient.Repository
	doctorRepo    doctor.Repository
	diagnosisRepo diagnosis.Repository
	auditSvc      *AuditService
	log           *zap.Logger

	// Injectable clock so date rules stay testable.
	now func() time.Time
}

func NewVisitService(
	repo visit.Repository,
	patientRepo patient.Repository,
	doctorRepo doctor.Repository,
	diagnosisRepo diagnosis.Repository,
	auditSvc *AuditService,
	log *zap.Logger,
) *VisitService {
	return &VisitService{
		repo:          repo,
		patientRepo:   patientRepo,
		doctorRepo:    doctorRepo,
		diagnosisRepo: diagnosisRepo,
		auditSvc:      auditSvc,
		log:           log,
		now:           time.Now,
	}
}

// validateSlot is the fast-path conflict check. The storage-level unique
// index remains the authoritative guard under concurrent bookings.
func (s *VisitService) validateSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) error {
	conflict, err := s.repo.ExistsConflict(ctx, doctorID, date, timeOfDay, excludeID)
	if err != nil {
		return fmt.Errorf("checking slot conflict: %w", err)
	}
	if conflict {
		return visit.ErrSlotConflict
	}
	return nil
}

func (s *VisitService) resolveRefs(ctx context.Context, patientID, doctorID uuid.UUID, diagnosisID *uuid.UUID) error {
	if _, err := s.patientRepo.GetByID(ctx, patientID, false); err != nil {
		return err
	}
	if _, err := s.doctorRepo.GetByID(ctx, doctorID, false); err != nil {
		return err
	}
	if diagnosisID != nil {
		if _, err := s.diagnosisRepo.GetByID(ctx, *diagnosisID); err != nil {
			return err
		}
	}
	return nil
}

// Create records a visit on behalf of staff. Visits for today or earlier
// default to completed (a record of an encounter that happened); future
// dates default to scheduled. Staff may backfill historical visits, so no
// past-date rule applies here.
func (s *VisitService) Create(ctx context.Context, cmd *visit.CreateVisitCommand, callerID uuid.UUID, callerRole string, ip string) (*visit.Visit, error) {
	if err := visit.ValidateTime(cmd.VisitTime); err != nil {
		return nil, err
	}
	// Staff record the outcome of an encounter, so the diagnosis is
	// mandatory here; only patient self-scheduling leaves it open.
	if cmd.DiagnosisID == nil {
		return nil, &ValidationError{Fields: []string{"diagnosisId: required"}}
	}
	if err := s.resolveRefs(ctx, cmd.PatientID, cmd.DoctorID, cmd.DiagnosisID); err != nil {
		return nil, err
	}

	status := visit.StatusCompleted
	if cmd.VisitDate.After(dateOnly(s.now())) {
		status = visit.StatusScheduled
	}
	if cmd.Status != nil {
		if !cmd.Status.IsValid() {
			return nil, &ValidationError{Fields: []string{"status: unknown value"}}
		}
		status = *cmd.Status
	}

	if err := s.validateSlot(ctx, cmd.DoctorID, cmd.VisitDate, cmd.VisitTime, nil); err != nil {
		return nil, err
	}

	v := &visit.Visit{
		PatientID:   cmd.PatientID,
		DoctorID:    cmd.DoctorID,
		DiagnosisID: cmd.DiagnosisID,
		VisitDate:   dateOnly(cmd.VisitDate),
		VisitTime:   cmd.VisitTime,
		Status:      status,
		CreatedBy:   cmd.CreatedBy,
	}
	if cmd.SickLeave != nil {
		v.SickLeave = &visit.SickLeave{
			StartDate:    dateOnly(cmd.SickLeave.StartDate),
			DurationDays: cmd.SickLeave.DurationDays,
		}
	}
	if cmd.Treatment != nil {
		v.Treatment = newTreatment(cmd.Treatment)
	}

	if err := s.repo.Create(ctx, v); err != nil {
		s.log.Error("failed to create visit", zap.Error(err))
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "visit",
		ResourceID:   v.ID.String(),
		IPAddress:    ip,
	})

	return v, nil
}

// ScheduleForPatient books a future slot on behalf of the calling patient.
// The patient is resolved from their auth subject, the diagnosis stays
// absent until the consultation, and the visit always starts scheduled.
func (s *VisitService) ScheduleForPatient(ctx context.Context, subjectUserID uuid.UUID, cmd *visit.ScheduleVisitCommand, ip string) (*visit.Visit, error) {
	if err := visit.ValidateTime(cmd.VisitTime); err != nil {
		return nil, err
	}

	p, err := s.patientRepo.GetByUserID(ctx, subjectUserID)
	if err != nil {
		return nil, err
	}
	d, err := s.doctorRepo.GetByID(ctx, cmd.DoctorID, false)
	if err != nil {
		return nil, err
	}
	// Unapproved doctors stay invisible outside the admin surface.
	if !d.Approved {
		return nil, doctor.ErrDoctorNotFound
	}

	if dateOnly(cmd.VisitDate).Before(dateOnly(s.now())) {
		return nil, visit.ErrScheduledInPast
	}

	if err := s.validateSlot(ctx, cmd.DoctorID, cmd.VisitDate, cmd.VisitTime, nil); err != nil {
		return nil, err
	}

	v := &visit.Visit{
		PatientID: p.ID,
		DoctorID:  cmd.DoctorID,
		VisitDate: dateOnly(cmd.VisitDate),
		VisitTime: cmd.VisitTime,
		Status:    visit.StatusScheduled,
		CreatedBy: subjectUserID,
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       subjectUserID,
		UserRole:     "patient",
		Action:       "create",
		ResourceType: "visit",
		ResourceID:   v.ID.String(),
		IPAddress:    ip,
	})

	return v, nil
}

// Update applies a partial update. The slot is re-validated only when the
// doctor, date or time actually changes; status changes must follow the
// state machine.
func (s *VisitService) Update(ctx context.Context, id uuid.UUID, cmd *visit.UpdateVisitCommand, callerID uuid.UUID, callerRole string, ip string) (*visit.Visit, error) {
	current, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if cmd.VisitTime != nil {
		if err := visit.ValidateTime(*cmd.VisitTime); err != nil {
			return nil, err
		}
	}
	if cmd.PatientID != nil {
		if _, err := s.patientRepo.GetByID(ctx, *cmd.PatientID, false); err != nil {
			return nil, err
		}
	}
	if cmd.DoctorID != nil {
		if _, err := s.doctorRepo.GetByID(ctx, *cmd.DoctorID, false); err != nil {
			return nil, err
		}
	}
	if cmd.DiagnosisID != nil && *cmd.DiagnosisID != nil {
		if _, err := s.diagnosisRepo.GetByID(ctx, **cmd.DiagnosisID); err != nil {
			return nil, err
		}
	}

	if cmd.Status != nil && *cmd.Status != current.Status {
		if !current.CanTransitionTo(*cmd.Status) {
			return nil, visit.ErrInvalidStatusTransition
		}
	}

	doctorID := current.DoctorID
	if cmd.DoctorID != nil {
		doctorID = *cmd.DoctorID
	}
	date := current.VisitDate
	if cmd.VisitDate != nil {
		date = *cmd.VisitDate
	}
	timeOfDay := current.VisitTime
	if cmd.VisitTime != nil {
		timeOfDay = *cmd.VisitTime
	}
	slotChanged := doctorID != current.DoctorID ||
		!dateOnly(date).Equal(dateOnly(current.VisitDate)) ||
		timeOfDay != current.VisitTime
	if slotChanged {
		if err := s.validateSlot(ctx, doctorID, date, timeOfDay, &id); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "visit",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return updated, nil
}

// Cancel lets the owning patient withdraw a booking that is still
// scheduled.
func (s *VisitService) Cancel(ctx context.Context, id uuid.UUID, subjectUserID uuid.UUID, ip string) (*visit.Visit, error) {
	v, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	p, err := s.patientRepo.GetByUserID(ctx, subjectUserID)
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("resolving calling patient: %w", err)
	}
	if p.ID != v.PatientID {
		return nil, ErrForbidden
	}

	if err := v.Cancel(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, v); err != nil {
		return nil, fmt.Errorf("updating visit status: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       subjectUserID,
		UserRole:     "patient",
		Action:       "update",
		ResourceType: "visit",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      `{"status":"cancelled"}`,
	})

	return v, nil
}

// Delete is the administrative hard-removal path; the visit's sick leave,
// treatment and medicines go with it.
func (s *VisitService) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID, ip string) error {
	if err := s.repo.HardDelete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     "admin",
		Action:       "delete",
		ResourceType: "visit",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return nil
}

func (s *VisitService) GetByID(ctx context.Context, id uuid.UUID, callerRole string, callerPatientID *uuid.UUID) (*visit.Visit, error) {
	v, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != v.PatientID {
			return nil, ErrForbidden
		}
	}

	return v, nil
}

func (s *VisitService) List(ctx context.Context, q *visit.ListQuery, callerRole string, callerPatientID *uuid.UUID) (pagination.Page[*visit.Visit], error) {
	// Patients only ever see their own visits.
	if callerRole == "patient" && callerPatientID != nil {
		q.PatientID = callerPatientID
	}
	return s.repo.List(ctx, q)
}

func newTreatment(cmd *visit.TreatmentCommand) *visit.Treatment {
	tr := &visit.Treatment{Description: cmd.Description}
	for i, m := range cmd.Medicines {
		tr.Medicines = append(tr.Medicines, visit.Medicine{
			Name:      m.Name,
			Dosage:    m.Dosage,
			Frequency: m.Frequency,
			Position:  i,
		})
	}
	return tr
}

// dateOnly truncates a timestamp to its calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
