package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/domain/report"
	"github.com/medrec/medrec-api/internal/domain/visit"
	"github.com/medrec/medrec-api/pkg/pagination"
)

// ReportService is the read-side aggregate engine. Repositories return raw
// grouped rows; ordering and tie selection happen here. Policy: cancelled
// visits are excluded from every count.
type ReportService struct {
	repo      report.Repository
	visitRepo visit.Repository
	log       *zap.Logger
}

func NewReportService(repo report.Repository, visitRepo visit.Repository, log *zap.Logger) *ReportService {
	return &ReportService{repo: repo, visitRepo: visitRepo, log: log}
}

// MostFrequentDiagnoses orders descending by visit count, ties broken by
// diagnosis name ascending.
func (s *ReportService) MostFrequentDiagnoses(ctx context.Context) ([]report.DiagnosisFrequency, error) {
	rows, err := s.repo.DiagnosisFrequencies(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VisitCount != rows[j].VisitCount {
			return rows[i].VisitCount > rows[j].VisitCount
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// VisitCountByDoctor lists every live doctor, including those with zero
// visits, ordered descending by count with doctor name as tiebreak.
func (s *ReportService) VisitCountByDoctor(ctx context.Context) ([]report.DoctorVisitCount, error) {
	rows, err := s.repo.VisitCountsByDoctor(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VisitCount != rows[j].VisitCount {
			return rows[i].VisitCount > rows[j].VisitCount
		}
		return rows[i].DoctorName < rows[j].DoctorName
	})
	return rows, nil
}

// PatientCountByGeneralPractitioner lists every live GP, including those
// with no assigned patients.
func (s *ReportService) PatientCountByGeneralPractitioner(ctx context.Context) ([]report.GPPatientCount, error) {
	rows, err := s.repo.PatientCountsByGP(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PatientCount != rows[j].PatientCount {
			return rows[i].PatientCount > rows[j].PatientCount
		}
		return rows[i].DoctorName < rows[j].DoctorName
	})
	return rows, nil
}

func (s *ReportService) DoctorsWithMostSickLeaves(ctx context.Context) ([]report.DoctorSickLeaveCount, error) {
	rows, err := s.repo.SickLeaveCountsByDoctor(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SickLeaveCount != rows[j].SickLeaveCount {
			return rows[i].SickLeaveCount > rows[j].SickLeaveCount
		}
		return rows[i].DoctorName < rows[j].DoctorName
	})
	return rows, nil
}

// MostFrequentSickLeaveMonth returns the month(s) holding the maximum sick
// leave count; ties yield multiple entries, ordered chronologically.
func (s *ReportService) MostFrequentSickLeaveMonth(ctx context.Context) ([]report.MonthSickLeaveCount, error) {
	rows, err := s.repo.SickLeaveCountsByMonth(ctx)
	if err != nil {
		return nil, err
	}

	var max int64
	for _, r := range rows {
		if r.SickLeaveCount > max {
			max = r.SickLeaveCount
		}
	}

	var top []report.MonthSickLeaveCount
	for _, r := range rows {
		if r.SickLeaveCount == max && max > 0 {
			top = append(top, r)
		}
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Year != top[j].Year {
			return top[i].Year < top[j].Year
		}
		return top[i].Month < top[j].Month
	})
	return top, nil
}

// VisitsByDateRange pages visits whose date falls inside the inclusive
// bounds, sorted by date by default.
func (s *ReportService) VisitsByDateRange(ctx context.Context, start, end time.Time, page pagination.Request) (pagination.Page[*visit.Visit], error) {
	return s.visitRepo.List(ctx, &visit.ListQuery{
		Page:     page,
		DateFrom: &start,
		DateTo:   &end,
	})
}

func (s *ReportService) VisitsByDoctorAndDateRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time, page pagination.Request) (pagination.Page[*visit.Visit], error) {
	return s.visitRepo.List(ctx, &visit.ListQuery{
		Page:     page,
		DoctorID: &doctorID,
		DateFrom: &start,
		DateTo:   &end,
	})
}
