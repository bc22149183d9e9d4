package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/domain/report"
	"github.com/medrec/medrec-api/internal/domain/visit"
	"github.com/medrec/medrec-api/pkg/pagination"
)

// In-memory repository fakes. They implement just enough of the storage
// contracts for the service rules to be exercised without a database.

// pageSlice applies offset/limit windowing over the full result set the way
// the store's LIMIT/OFFSET would, so paging invariants hold in tests too.
func pageSlice[T any](rows []T, req pagination.Request) pagination.Page[T] {
	req = req.Normalize()
	total := int64(len(rows))
	start := req.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + req.Size
	if end > len(rows) {
		end = len(rows)
	}
	return pagination.New(rows[start:end], total, req)
}

type fakeVisitRepo struct {
	mu     sync.Mutex
	visits map[uuid.UUID]*visit.Visit
}

func newFakeVisitRepo() *fakeVisitRepo {
	return &fakeVisitRepo{visits: make(map[uuid.UUID]*visit.Visit)}
}

func (r *fakeVisitRepo) Create(ctx context.Context, v *visit.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.visits {
		if existing.DoctorID == v.DoctorID &&
			existing.VisitDate.Equal(v.VisitDate) &&
			existing.VisitTime == v.VisitTime &&
			existing.Status != visit.StatusCancelled {
			return visit.ErrSlotConflict
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.visits[v.ID] = v
	return nil
}

func (r *fakeVisitRepo) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok {
		return nil, visit.ErrVisitNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVisitRepo) Update(ctx context.Context, id uuid.UUID, cmd *visit.UpdateVisitCommand) (*visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok {
		return nil, visit.ErrVisitNotFound
	}
	if cmd.PatientID != nil {
		v.PatientID = *cmd.PatientID
	}
	if cmd.DoctorID != nil {
		v.DoctorID = *cmd.DoctorID
	}
	if cmd.DiagnosisID != nil {
		v.DiagnosisID = *cmd.DiagnosisID
	}
	if cmd.VisitDate != nil {
		v.VisitDate = *cmd.VisitDate
	}
	if cmd.VisitTime != nil {
		v.VisitTime = *cmd.VisitTime
	}
	if cmd.Status != nil {
		v.Status = *cmd.Status
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVisitRepo) UpdateStatus(ctx context.Context, v *visit.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.visits[v.ID]
	if !ok {
		return visit.ErrVisitNotFound
	}
	stored.Status = v.Status
	return nil
}

func (r *fakeVisitRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visits[id]; !ok {
		return visit.ErrVisitNotFound
	}
	delete(r.visits, id)
	return nil
}

func (r *fakeVisitRepo) List(ctx context.Context, q *visit.ListQuery) (pagination.Page[*visit.Visit], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*visit.Visit
	for _, v := range r.visits {
		if q.PatientID != nil && v.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && v.DoctorID != *q.DoctorID {
			continue
		}
		if q.Status != nil && v.Status != *q.Status {
			continue
		}
		if q.DateFrom != nil && v.VisitDate.Before(*q.DateFrom) {
			continue
		}
		if q.DateTo != nil && v.VisitDate.After(*q.DateTo) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].VisitDate.Equal(out[j].VisitDate) {
			return out[i].VisitDate.Before(out[j].VisitDate)
		}
		if out[i].VisitTime != out[j].VisitTime {
			return out[i].VisitTime < out[j].VisitTime
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return pageSlice(out, q.Page), nil
}

func (r *fakeVisitRepo) ExistsConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, v := range r.visits {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if v.DoctorID == doctorID &&
			v.VisitDate.Equal(date) &&
			v.VisitTime == timeOfDay &&
			v.Status != visit.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeVisitRepo) ListSickLeaves(ctx context.Context, req pagination.Request) (pagination.Page[*visit.SickLeave], error) {
	return pageSlice[*visit.SickLeave](nil, req), nil
}

func (r *fakeVisitRepo) ListTreatments(ctx context.Context, req pagination.Request) (pagination.Page[*visit.Treatment], error) {
	return pageSlice[*visit.Treatment](nil, req), nil
}

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*patient.Patient

	// When set, GetByUserID fails with this error.
	getByUserIDErr error
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (r *fakePatientRepo) add(p *patient.Patient) *patient.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = p
	return p
}

func (r *fakePatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.patients {
		if existing.EGN == p.EGN {
			return patient.ErrPatientAlreadyExists
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

func (r *fakePatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getByUserIDErr != nil {
		return nil, r.getByUserIDErr
	}
	for _, p := range r.patients {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (r *fakePatientRepo) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	if cmd.FirstName != nil {
		p.FirstName = *cmd.FirstName
	}
	if cmd.LastName != nil {
		p.LastName = *cmd.LastName
	}
	if cmd.EGN != nil {
		p.EGN = *cmd.EGN
	}
	if cmd.GeneralPractitionerID != nil {
		p.GeneralPractitionerID = *cmd.GeneralPractitionerID
	}
	if cmd.LastInsurancePayment != nil {
		p.LastInsurancePayment = *cmd.LastInsurancePayment
	}
	return p, nil
}

func (r *fakePatientRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[id]; !ok {
		return patient.ErrPatientNotFound
	}
	delete(r.patients, id)
	return nil
}

func (r *fakePatientRepo) List(ctx context.Context, q *patient.ListQuery) (pagination.Page[*patient.Patient], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*patient.Patient
	for _, p := range r.patients {
		if q.GeneralPractitionerID != nil &&
			(p.GeneralPractitionerID == nil || *p.GeneralPractitionerID != *q.GeneralPractitionerID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EGN < out[j].EGN })
	return pageSlice(out, q.Page), nil
}

func (r *fakePatientRepo) ExistsByEGN(ctx context.Context, egn string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.patients {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if p.EGN == egn {
			return true, nil
		}
	}
	return false, nil
}

type fakeDoctorRepo struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*doctor.Doctor
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{doctors: make(map[uuid.UUID]*doctor.Doctor)}
}

func (r *fakeDoctorRepo) add(d *doctor.Doctor) *doctor.Doctor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.doctors[d.ID] = d
	return d
}

func (r *fakeDoctorRepo) Create(ctx context.Context, d *doctor.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.doctors {
		if existing.IdNumber == d.IdNumber {
			return doctor.ErrDoctorAlreadyExists
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.doctors[d.ID] = d
	return nil
}

func (r *fakeDoctorRepo) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	return d, nil
}

func (r *fakeDoctorRepo) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand) (*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	if cmd.FirstName != nil {
		d.FirstName = *cmd.FirstName
	}
	if cmd.LastName != nil {
		d.LastName = *cmd.LastName
	}
	if cmd.IsGP != nil {
		d.IsGP = *cmd.IsGP
	}
	if cmd.Approved != nil {
		d.Approved = *cmd.Approved
	}
	return d, nil
}

func (r *fakeDoctorRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[id]; !ok {
		return doctor.ErrDoctorNotFound
	}
	delete(r.doctors, id)
	return nil
}

func (r *fakeDoctorRepo) List(ctx context.Context, q *doctor.ListQuery) (pagination.Page[*doctor.Doctor], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*doctor.Doctor
	for _, d := range r.doctors {
		if q.ApprovedOnly && !d.Approved {
			continue
		}
		if q.GPOnly && !d.IsGP {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdNumber < out[j].IdNumber })
	return pageSlice(out, q.Page), nil
}

func (r *fakeDoctorRepo) ExistsByIdNumber(ctx context.Context, idNumber string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range r.doctors {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if d.IdNumber == idNumber {
			return true, nil
		}
	}
	return false, nil
}

type fakeSpecialtyRepo struct {
	mu          sync.Mutex
	specialties map[uuid.UUID]*doctor.Specialty
	inUse       map[uuid.UUID]bool
}

func newFakeSpecialtyRepo() *fakeSpecialtyRepo {
	return &fakeSpecialtyRepo{
		specialties: make(map[uuid.UUID]*doctor.Specialty),
		inUse:       make(map[uuid.UUID]bool),
	}
}

func (r *fakeSpecialtyRepo) add(s *doctor.Specialty) *doctor.Specialty {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.specialties[s.ID] = s
	return s
}

func (r *fakeSpecialtyRepo) Create(ctx context.Context, s *doctor.Specialty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.specialties {
		if existing.Name == s.Name {
			return doctor.ErrSpecialtyAlreadyExists
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.specialties[s.ID] = s
	return nil
}

func (r *fakeSpecialtyRepo) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Specialty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.specialties[id]
	if !ok {
		return nil, doctor.ErrSpecialtyNotFound
	}
	return s, nil
}

func (r *fakeSpecialtyRepo) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateSpecialtyCommand) (*doctor.Specialty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.specialties[id]
	if !ok {
		return nil, doctor.ErrSpecialtyNotFound
	}
	if cmd.Name != nil {
		s.Name = *cmd.Name
	}
	if cmd.Description != nil {
		s.Description = *cmd.Description
	}
	return s, nil
}

func (r *fakeSpecialtyRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.specialties[id]; !ok {
		return doctor.ErrSpecialtyNotFound
	}
	if r.inUse[id] {
		return doctor.ErrSpecialtyInUse
	}
	delete(r.specialties, id)
	return nil
}

func (r *fakeSpecialtyRepo) List(ctx context.Context, req pagination.Request) (pagination.Page[*doctor.Specialty], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*doctor.Specialty
	for _, s := range r.specialties {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return pageSlice(out, req), nil
}

type fakeDiagnosisRepo struct {
	mu        sync.Mutex
	diagnoses map[uuid.UUID]*diagnosis.Diagnosis
}

func newFakeDiagnosisRepo() *fakeDiagnosisRepo {
	return &fakeDiagnosisRepo{diagnoses: make(map[uuid.UUID]*diagnosis.Diagnosis)}
}

func (r *fakeDiagnosisRepo) add(d *diagnosis.Diagnosis) *diagnosis.Diagnosis {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.diagnoses[d.ID] = d
	return d
}

func (r *fakeDiagnosisRepo) Create(ctx context.Context, d *diagnosis.Diagnosis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.diagnoses {
		if existing.Name == d.Name {
			return diagnosis.ErrDiagnosisAlreadyExists
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.diagnoses[d.ID] = d
	return nil
}

func (r *fakeDiagnosisRepo) GetByID(ctx context.Context, id uuid.UUID) (*diagnosis.Diagnosis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.diagnoses[id]
	if !ok {
		return nil, diagnosis.ErrDiagnosisNotFound
	}
	return d, nil
}

func (r *fakeDiagnosisRepo) Update(ctx context.Context, id uuid.UUID, cmd *diagnosis.UpdateDiagnosisCommand) (*diagnosis.Diagnosis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.diagnoses[id]
	if !ok {
		return nil, diagnosis.ErrDiagnosisNotFound
	}
	if cmd.Name != nil {
		d.Name = *cmd.Name
	}
	if cmd.Description != nil {
		d.Description = *cmd.Description
	}
	return d, nil
}

func (r *fakeDiagnosisRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.diagnoses[id]; !ok {
		return diagnosis.ErrDiagnosisNotFound
	}
	delete(r.diagnoses, id)
	return nil
}

func (r *fakeDiagnosisRepo) List(ctx context.Context, req pagination.Request) (pagination.Page[*diagnosis.Diagnosis], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*diagnosis.Diagnosis
	for _, d := range r.diagnoses {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return pageSlice(out, req), nil
}

type fakeReportRepo struct {
	diagnoses  []report.DiagnosisFrequency
	visits     []report.DoctorVisitCount
	gpPatients []report.GPPatientCount
	sickLeaves []report.DoctorSickLeaveCount
	months     []report.MonthSickLeaveCount
}

func (r *fakeReportRepo) DiagnosisFrequencies(ctx context.Context) ([]report.DiagnosisFrequency, error) {
	return r.diagnoses, nil
}

func (r *fakeReportRepo) VisitCountsByDoctor(ctx context.Context) ([]report.DoctorVisitCount, error) {
	return r.visits, nil
}

func (r *fakeReportRepo) PatientCountsByGP(ctx context.Context) ([]report.GPPatientCount, error) {
	return r.gpPatients, nil
}

func (r *fakeReportRepo) SickLeaveCountsByDoctor(ctx context.Context) ([]report.DoctorSickLeaveCount, error) {
	return r.sickLeaves, nil
}

func (r *fakeReportRepo) SickLeaveCountsByMonth(ctx context.Context) ([]report.MonthSickLeaveCount, error) {
	return r.months, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (r *fakeAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}
