package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/domain/visit"
	"github.com/medrec/medrec-api/pkg/pagination"
)

const (
	DashboardKindDoctor  = "doctor"
	DashboardKindPatient = "patient"

	dashboardPageSize = 50
)

// DoctorDashboard is the doctor-facing landing view: the doctor's own
// profile and upcoming schedule.
type DoctorDashboard struct {
	Kind     string         `json:"kind"`
	Doctor   *doctor.Doctor `json:"doctor"`
	Schedule []*visit.Visit `json:"schedule"`
}

// PatientDashboard is the patient-facing landing view: the patient's own
// profile, insurance standing and visit history.
type PatientDashboard struct {
	Kind    string           `json:"kind"`
	Patient *patient.Patient `json:"patient"`
	Insured bool             `json:"insured"`
	Visits  []*visit.Visit   `json:"visits"`
}

// DashboardService assembles the role-specific landing view. The two
// variants share one endpoint and are discriminated by the kind tag.
type DashboardService struct {
	doctorRepo  doctor.Repository
	patientRepo patient.Repository
	visitRepo   visit.Repository
	log         *zap.Logger
}

func NewDashboardService(doctorRepo doctor.Repository, patientRepo patient.Repository, visitRepo visit.Repository, log *zap.Logger) *DashboardService {
	return &DashboardService{
		doctorRepo:  doctorRepo,
		patientRepo: patientRepo,
		visitRepo:   visitRepo,
		log:         log,
	}
}

// View returns the dashboard variant for the caller's role. Admins have no
// dashboard of their own.
func (s *DashboardService) View(ctx context.Context, claims *domain.Claims) (any, error) {
	switch {
	case claims.Role == domain.RoleDoctor && claims.DoctorID != nil:
		return s.doctorView(ctx, *claims.DoctorID)
	case claims.Role == domain.RolePatient && claims.PatientID != nil:
		return s.patientView(ctx, *claims.PatientID)
	default:
		return nil, ErrForbidden
	}
}

func (s *DashboardService) doctorView(ctx context.Context, doctorID uuid.UUID) (*DoctorDashboard, error) {
	d, err := s.doctorRepo.GetByID(ctx, doctorID, false)
	if err != nil {
		return nil, err
	}
	scheduled := visit.StatusScheduled
	page, err := s.visitRepo.List(ctx, &visit.ListQuery{
		Page:     pagination.Request{Size: dashboardPageSize, OrderBy: "date", Ascending: true},
		DoctorID: &doctorID,
		Status:   &scheduled,
	})
	if err != nil {
		return nil, err
	}
	return &DoctorDashboard{Kind: DashboardKindDoctor, Doctor: d, Schedule: page.Content}, nil
}

func (s *DashboardService) patientView(ctx context.Context, patientID uuid.UUID) (*PatientDashboard, error) {
	p, err := s.patientRepo.GetByID(ctx, patientID, false)
	if err != nil {
		return nil, err
	}
	page, err := s.visitRepo.List(ctx, &visit.ListQuery{
		Page:      pagination.Request{Size: dashboardPageSize, OrderBy: "date", Ascending: false},
		PatientID: &patientID,
	})
	if err != nil {
		return nil, err
	}
	return &PatientDashboard{Kind: DashboardKindPatient, Patient: p, Insured: p.Insured(), Visits: page.Content}, nil
}
