package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/pkg/pagination"
)

type DoctorService struct {
	repo          doctor.Repository
	specialtyRepo doctor.SpecialtyRepository
	auditSvc      *AuditService
	log           *zap.Logger
}

func NewDoctorService(repo doctor.Repository, specialtyRepo doctor.SpecialtyRepository, auditSvc *AuditService, log *zap.Logger) *DoctorService {
	return &DoctorService{repo: repo, specialtyRepo: specialtyRepo, auditSvc: auditSvc, log: log}
}

func (s *DoctorService) Create(ctx context.Context, cmd *doctor.CreateDoctorCommand, callerID uuid.UUID, callerRole string, ip string) (*doctor.Doctor, error) {
	idNumber := strings.TrimSpace(cmd.IdNumber)
	if idNumber == "" {
		return nil, &ValidationError{Fields: []string{"id_number: required"}}
	}

	exists, err := s.repo.ExistsByIdNumber(ctx, idNumber, nil)
	if err != nil {
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, doctor.ErrDoctorAlreadyExists
	}

	specialties := make([]doctor.Specialty, 0, len(cmd.SpecialtyIDs))
	for _, sid := range cmd.SpecialtyIDs {
		sp, err := s.specialtyRepo.GetByID(ctx, sid)
		if err != nil {
			return nil, err
		}
		specialties = append(specialties, *sp)
	}

	d := &doctor.Doctor{
		FirstName:   strings.TrimSpace(cmd.FirstName),
		LastName:    strings.TrimSpace(cmd.LastName),
		IdNumber:    idNumber,
		IsGP:        cmd.IsGP,
		Approved:    cmd.Approved,
		ImageURL:    cmd.ImageURL,
		Specialties: specialties,
		CreatedBy:   cmd.CreatedBy,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		s.log.Error("failed to create doctor", zap.Error(err))
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
		IPAddress:    ip,
	})

	return d, nil
}

// Get hides unapproved doctors from everyone but admins.
func (s *DoctorService) Get(ctx context.Context, id uuid.UUID, callerRole string, includeDeleted bool) (*doctor.Doctor, error) {
	if includeDeleted && callerRole != "admin" {
		return nil, ErrForbidden
	}

	d, err := s.repo.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if !d.Approved && callerRole != "admin" {
		return nil, doctor.ErrDoctorNotFound
	}
	return d, nil
}

func (s *DoctorService) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand, callerID uuid.UUID, callerRole string, ip string) (*doctor.Doctor, error) {
	if cmd.IdNumber != nil {
		idNumber := strings.TrimSpace(*cmd.IdNumber)
		exists, err := s.repo.ExistsByIdNumber(ctx, idNumber, &id)
		if err != nil {
			return nil, fmt.Errorf("checking uniqueness: %w", err)
		}
		if exists {
			return nil, doctor.ErrDoctorAlreadyExists
		}
		cmd.IdNumber = &idNumber
	}

	if cmd.SpecialtyIDs != nil {
		for _, sid := range *cmd.SpecialtyIDs {
			if _, err := s.specialtyRepo.GetByID(ctx, sid); err != nil {
				return nil, err
			}
		}
	}

	d, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "doctor",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return d, nil
}

func (s *DoctorService) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID, ip string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     "admin",
		Action:       "delete",
		ResourceType: "doctor",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return nil
}

// List hides unapproved doctors from non-admin callers.
func (s *DoctorService) List(ctx context.Context, q *doctor.ListQuery, callerRole string) (pagination.Page[*doctor.Doctor], error) {
	if callerRole != "admin" {
		q.ApprovedOnly = true
	}
	return s.repo.List(ctx, q)
}

func (s *DoctorService) CreateSpecialty(ctx context.Context, cmd *doctor.CreateSpecialtyCommand, callerID uuid.UUID, ip string) (*doctor.Specialty, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, &ValidationError{Fields: []string{"name: required"}}
	}

	sp := &doctor.Specialty{Name: name, Description: cmd.Description}
	if err := s.specialtyRepo.Create(ctx, sp); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     "admin",
		Action:       "create",
		ResourceType: "specialty",
		ResourceID:   sp.ID.String(),
		IPAddress:    ip,
	})

	return sp, nil
}

func (s *DoctorService) GetSpecialty(ctx context.Context, id uuid.UUID) (*doctor.Specialty, error) {
	return s.specialtyRepo.GetByID(ctx, id)
}

func (s *DoctorService) UpdateSpecialty(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateSpecialtyCommand, callerID uuid.UUID, ip string) (*doctor.Specialty, error) {
	sp, err := s.specialtyRepo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     "admin",
		Action:       "update",
		ResourceType: "specialty",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return sp, nil
}

// DeleteSpecialty fails with ErrSpecialtyInUse while any live doctor still
// carries the specialty.
func (s *DoctorService) DeleteSpecialty(ctx context.Context, id uuid.UUID, callerID uuid.UUID, ip string) error {
	if err := s.specialtyRepo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     "admin",
		Action:       "delete",
		ResourceType: "specialty",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return nil
}

func (s *DoctorService) ListSpecialties(ctx context.Context, req pagination.Request) (pagination.Page[*doctor.Specialty], error) {
	return s.specialtyRepo.List(ctx, req)
}
