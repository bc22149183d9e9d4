package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/pkg/pagination"
)

type PatientService struct {
	repo       patient.Repository
	doctorRepo doctor.Repository
	auditSvc   *AuditService
	log        *zap.Logger
}

func NewPatientService(repo patient.Repository, doctorRepo doctor.Repository, auditSvc *AuditService, log *zap.Logger) *PatientService {
	return &PatientService{repo: repo, doctorRepo: doctorRepo, auditSvc: auditSvc, log: log}
}

// checkGP verifies the referenced doctor exists and is flagged as a general
// practitioner.
func (s *PatientService) checkGP(ctx context.Context, gpID uuid.UUID) error {
	d, err := s.doctorRepo.GetByID(ctx, gpID, false)
	if err != nil {
		return err
	}
	if !d.IsGP {
		return doctor.ErrNotGeneralPractitioner
	}
	return nil
}

func (s *PatientService) Create(ctx context.Context, cmd *patient.CreatePatientCommand, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	egn := strings.TrimSpace(cmd.EGN)
	if err := patient.ValidateEGN(egn); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEGN(ctx, egn, nil)
	if err != nil {
		s.log.Error("failed to check EGN uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, patient.ErrPatientAlreadyExists
	}

	if cmd.GeneralPractitionerID != nil {
		if err := s.checkGP(ctx, *cmd.GeneralPractitionerID); err != nil {
			return nil, err
		}
	}

	p := &patient.Patient{
		FirstName:             strings.TrimSpace(cmd.FirstName),
		LastName:              strings.TrimSpace(cmd.LastName),
		EGN:                   egn,
		GeneralPractitionerID: cmd.GeneralPractitionerID,
		LastInsurancePayment:  cmd.LastInsurancePayment,
		UserID:                cmd.UserID,
		CreatedBy:             cmd.CreatedBy,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		IPAddress:    ip,
	})

	return p, nil
}

// Get enforces that patients only read their own record. includeDeleted is
// the administrative audit path.
func (s *PatientService) Get(ctx context.Context, id uuid.UUID, callerRole string, callerPatientID *uuid.UUID, includeDeleted bool) (*patient.Patient, error) {
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != id {
			return nil, ErrForbidden
		}
	}
	if includeDeleted && callerRole != "admin" {
		return nil, ErrForbidden
	}
	return s.repo.GetByID(ctx, id, includeDeleted)
}

func (s *PatientService) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	if cmd.EGN != nil {
		egn := strings.TrimSpace(*cmd.EGN)
		if err := patient.ValidateEGN(egn); err != nil {
			return nil, err
		}
		exists, err := s.repo.ExistsByEGN(ctx, egn, &id)
		if err != nil {
			return nil, fmt.Errorf("checking uniqueness: %w", err)
		}
		if exists {
			return nil, patient.ErrPatientAlreadyExists
		}
		cmd.EGN = &egn
	}

	if cmd.GeneralPractitionerID != nil && *cmd.GeneralPractitionerID != nil {
		if err := s.checkGP(ctx, **cmd.GeneralPractitionerID); err != nil {
			return nil, err
		}
	}

	p, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "patient",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return p, nil
}

func (s *PatientService) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID, ip string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     "admin",
		Action:       "delete",
		ResourceType: "patient",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return nil
}

func (s *PatientService) List(ctx context.Context, q *patient.ListQuery) (pagination.Page[*patient.Patient], error) {
	return s.repo.List(ctx, q)
}
