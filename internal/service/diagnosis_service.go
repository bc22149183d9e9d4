package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/pkg/pagination"
)

type DiagnosisService struct {
	repo     diagnosis.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewDiagnosisService(repo diagnosis.Repository, auditSvc *AuditService, log *zap.Logger) *DiagnosisService {
	return &DiagnosisService{repo: repo, auditSvc: auditSvc, log: log}
}

func (s *DiagnosisService) Create(ctx context.Context, cmd *diagnosis.CreateDiagnosisCommand, callerID uuid.UUID, callerRole string, ip string) (*diagnosis.Diagnosis, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, &ValidationError{Fields: []string{"name: required"}}
	}

	d := &diagnosis.Diagnosis{Name: name, Description: cmd.Description}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "diagnosis",
		ResourceID:   d.ID.String(),
		IPAddress:    ip,
	})

	return d, nil
}

func (s *DiagnosisService) Get(ctx context.Context, id uuid.UUID) (*diagnosis.Diagnosis, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DiagnosisService) Update(ctx context.Context, id uuid.UUID, cmd *diagnosis.UpdateDiagnosisCommand, callerID uuid.UUID, callerRole string, ip string) (*diagnosis.Diagnosis, error) {
	d, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "diagnosis",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return d, nil
}

func (s *DiagnosisService) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID, ip string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     "admin",
		Action:       "delete",
		ResourceType: "diagnosis",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return nil
}

func (s *DiagnosisService) List(ctx context.Context, req pagination.Request) (pagination.Page[*diagnosis.Diagnosis], error) {
	return s.repo.List(ctx, req)
}
