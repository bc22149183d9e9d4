package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/domain/visit"
)

type visitFixture struct {
	svc         *VisitService
	visitRepo   *fakeVisitRepo
	patientRepo *fakePatientRepo
	doctorRepo  *fakeDoctorRepo
	patient     *patient.Patient
	doctor      *doctor.Doctor
	diagnosis   *diagnosis.Diagnosis
	userID      uuid.UUID
}

// The fixture clock is pinned so the today/future status rules are
// deterministic.
var fixedNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func newVisitFixture(t *testing.T) *visitFixture {
	t.Helper()

	visitRepo := newFakeVisitRepo()
	patientRepo := newFakePatientRepo()
	doctorRepo := newFakeDoctorRepo()
	diagnosisRepo := newFakeDiagnosisRepo()

	auditSvc := NewAuditService(&fakeAuditRepo{}, zap.NewNop())
	t.Cleanup(auditSvc.Shutdown)

	svc := NewVisitService(visitRepo, patientRepo, doctorRepo, diagnosisRepo, auditSvc, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	userID := uuid.New()
	p := patientRepo.add(&patient.Patient{
		FirstName: "Maria",
		LastName:  "Petrova",
		EGN:       "2445112130",
		UserID:    &userID,
	})
	d := doctorRepo.add(&doctor.Doctor{
		FirstName: "Ivan",
		LastName:  "Dimitrov",
		IdNumber:  "DOC-1001",
		IsGP:      true,
		Approved:  true,
	})
	diag := diagnosisRepo.add(&diagnosis.Diagnosis{Name: "Influenza"})

	return &visitFixture{
		svc:         svc,
		visitRepo:   visitRepo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		patient:     p,
		doctor:      d,
		diagnosis:   diag,
		userID:      userID,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// createCmd builds a well-formed staff creation command for the fixture's
// patient, doctor and diagnosis.
func (f *visitFixture) createCmd(d time.Time, at string) *visit.CreateVisitCommand {
	return &visit.CreateVisitCommand{
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		DiagnosisID: &f.diagnosis.ID,
		VisitDate:   d,
		VisitTime:   at,
	}
}

func TestVisitCreateStatusDefaults(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	past, err := f.svc.Create(ctx, f.createCmd(date(2026, time.March, 9), "10:00"), uuid.New(), "doctor", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, visit.StatusCompleted, past.Status)

	today, err := f.svc.Create(ctx, f.createCmd(date(2026, time.March, 10), "10:00"), uuid.New(), "doctor", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, visit.StatusCompleted, today.Status)

	future, err := f.svc.Create(ctx, f.createCmd(date(2026, time.March, 11), "10:00"), uuid.New(), "doctor", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, visit.StatusScheduled, future.Status)
}

func TestVisitCreateRequiresDiagnosis(t *testing.T) {
	f := newVisitFixture(t)

	cmd := f.createCmd(date(2026, time.March, 12), "10:00")
	cmd.DiagnosisID = nil
	_, err := f.svc.Create(context.Background(), cmd, uuid.New(), "doctor", "127.0.0.1")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestVisitCreateExplicitStatus(t *testing.T) {
	f := newVisitFixture(t)

	scheduled := visit.StatusScheduled
	cmd := f.createCmd(date(2026, time.March, 9), "10:00")
	cmd.Status = &scheduled
	v, err := f.svc.Create(context.Background(), cmd, uuid.New(), "admin", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, visit.StatusScheduled, v.Status)

	bad := visit.VisitStatus("postponed")
	cmd = f.createCmd(date(2026, time.March, 9), "11:00")
	cmd.Status = &bad
	_, err = f.svc.Create(context.Background(), cmd, uuid.New(), "admin", "127.0.0.1")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestVisitCreateSlotConflict(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	cmd := f.createCmd(date(2026, time.March, 12), "14:30")
	_, err := f.svc.Create(ctx, cmd, uuid.New(), "doctor", "127.0.0.1")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, cmd, uuid.New(), "doctor", "127.0.0.1")
	assert.ErrorIs(t, err, visit.ErrSlotConflict)

	// A different time on the same day is free.
	cmd2 := *cmd
	cmd2.VisitTime = "15:00"
	_, err = f.svc.Create(ctx, &cmd2, uuid.New(), "doctor", "127.0.0.1")
	assert.NoError(t, err)
}

func TestVisitCreateRejectsBadTime(t *testing.T) {
	f := newVisitFixture(t)

	for _, bad := range []string{"25:00", "9:00pm", "0930", ""} {
		_, err := f.svc.Create(context.Background(), f.createCmd(date(2026, time.March, 12), bad), uuid.New(), "doctor", "127.0.0.1")
		assert.ErrorIs(t, err, visit.ErrInvalidVisitTime, "time %q", bad)
	}
}

func TestVisitCreateUnknownRefs(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	cmd := f.createCmd(date(2026, time.March, 12), "10:00")
	cmd.PatientID = uuid.New()
	_, err := f.svc.Create(ctx, cmd, uuid.New(), "doctor", "127.0.0.1")
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)

	cmd = f.createCmd(date(2026, time.March, 12), "10:00")
	cmd.DoctorID = uuid.New()
	_, err = f.svc.Create(ctx, cmd, uuid.New(), "doctor", "127.0.0.1")
	assert.ErrorIs(t, err, doctor.ErrDoctorNotFound)

	unknown := uuid.New()
	cmd = f.createCmd(date(2026, time.March, 12), "10:00")
	cmd.DiagnosisID = &unknown
	_, err = f.svc.Create(ctx, cmd, uuid.New(), "doctor", "127.0.0.1")
	assert.ErrorIs(t, err, diagnosis.ErrDiagnosisNotFound)
}

func TestScheduleForPatient(t *testing.T) {
	f := newVisitFixture(t)

	v, err := f.svc.ScheduleForPatient(context.Background(), f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 20),
		VisitTime: "09:00",
	}, "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, f.patient.ID, v.PatientID)
	assert.Equal(t, visit.StatusScheduled, v.Status)
	assert.Nil(t, v.DiagnosisID)
}

func TestScheduleForPatientPastDate(t *testing.T) {
	f := newVisitFixture(t)

	_, err := f.svc.ScheduleForPatient(context.Background(), f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 9),
		VisitTime: "09:00",
	}, "127.0.0.1")
	assert.ErrorIs(t, err, visit.ErrScheduledInPast)

	// Same-day booking is still allowed.
	_, err = f.svc.ScheduleForPatient(context.Background(), f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 10),
		VisitTime: "16:00",
	}, "127.0.0.1")
	assert.NoError(t, err)
}

func TestScheduleForPatientUnapprovedDoctor(t *testing.T) {
	f := newVisitFixture(t)

	pending := f.doctorRepo.add(&doctor.Doctor{
		FirstName: "Petar",
		LastName:  "Stoyanov",
		IdNumber:  "DOC-2002",
		Approved:  false,
	})

	// An unapproved doctor does not exist as far as patients are concerned.
	_, err := f.svc.ScheduleForPatient(context.Background(), f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  pending.ID,
		VisitDate: date(2026, time.March, 20),
		VisitTime: "09:00",
	}, "127.0.0.1")
	assert.ErrorIs(t, err, doctor.ErrDoctorNotFound)
}

func TestCancelOwnership(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	v, err := f.svc.ScheduleForPatient(ctx, f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 20),
		VisitTime: "09:00",
	}, "127.0.0.1")
	require.NoError(t, err)

	// A different patient cannot cancel someone else's booking.
	strangerUser := uuid.New()
	f.patientRepo.add(&patient.Patient{
		FirstName: "Georgi",
		LastName:  "Ivanov",
		EGN:       "9001010000",
		UserID:    &strangerUser,
	})
	_, err = f.svc.Cancel(ctx, v.ID, strangerUser, "127.0.0.1")
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := f.svc.Cancel(ctx, v.ID, f.userID, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, visit.StatusCancelled, cancelled.Status)

	// Cancelled is terminal.
	_, err = f.svc.Cancel(ctx, v.ID, f.userID, "127.0.0.1")
	assert.ErrorIs(t, err, visit.ErrInvalidStatusTransition)
}

func TestCancelStoreErrorSurfaces(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	v, err := f.svc.ScheduleForPatient(ctx, f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 20),
		VisitTime: "09:00",
	}, "127.0.0.1")
	require.NoError(t, err)

	// A store failure while resolving the caller is not an ownership
	// problem and must not be reported as one.
	storeErr := errors.New("connection reset")
	f.patientRepo.getByUserIDErr = storeErr
	_, err = f.svc.Cancel(ctx, v.ID, f.userID, "127.0.0.1")
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestCancelFreesSlot(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	v, err := f.svc.ScheduleForPatient(ctx, f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 20),
		VisitTime: "09:00",
	}, "127.0.0.1")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, v.ID, f.userID, "127.0.0.1")
	require.NoError(t, err)

	// The slot is bookable again once the visit is cancelled.
	_, err = f.svc.ScheduleForPatient(ctx, f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 20),
		VisitTime: "09:00",
	}, "127.0.0.1")
	assert.NoError(t, err)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, f.createCmd(date(2026, time.March, 20), "09:00"), uuid.New(), "doctor", "127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, visit.StatusScheduled, v.Status)

	completed := visit.StatusCompleted
	updated, err := f.svc.Update(ctx, v.ID, &visit.UpdateVisitCommand{Status: &completed}, uuid.New(), "doctor", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, visit.StatusCompleted, updated.Status)

	// Completed is terminal; reverting is rejected.
	scheduled := visit.StatusScheduled
	_, err = f.svc.Update(ctx, v.ID, &visit.UpdateVisitCommand{Status: &scheduled}, uuid.New(), "doctor", "127.0.0.1")
	assert.ErrorIs(t, err, visit.ErrInvalidStatusTransition)
}

func TestUpdateSlotRevalidation(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.createCmd(date(2026, time.March, 20), "09:00"), uuid.New(), "doctor", "127.0.0.1")
	require.NoError(t, err)

	second, err := f.svc.Create(ctx, f.createCmd(date(2026, time.March, 20), "10:00"), uuid.New(), "doctor", "127.0.0.1")
	require.NoError(t, err)

	// Moving onto an occupied slot is rejected.
	taken := first.VisitTime
	_, err = f.svc.Update(ctx, second.ID, &visit.UpdateVisitCommand{VisitTime: &taken}, uuid.New(), "doctor", "127.0.0.1")
	assert.ErrorIs(t, err, visit.ErrSlotConflict)

	// Re-submitting a visit's own slot is not a conflict with itself.
	same := second.VisitTime
	_, err = f.svc.Update(ctx, second.ID, &visit.UpdateVisitCommand{VisitTime: &same}, uuid.New(), "doctor", "127.0.0.1")
	assert.NoError(t, err)
}

func TestVisitGetPatientScoping(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	v, err := f.svc.ScheduleForPatient(ctx, f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 20),
		VisitTime: "09:00",
	}, "127.0.0.1")
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, v.ID, "patient", &f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)

	other := uuid.New()
	_, err = f.svc.GetByID(ctx, v.ID, "patient", &other)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.GetByID(ctx, v.ID, "doctor", nil)
	assert.NoError(t, err)
}

func TestVisitListForcesOwnPatient(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	_, err := f.svc.ScheduleForPatient(ctx, f.userID, &visit.ScheduleVisitCommand{
		DoctorID:  f.doctor.ID,
		VisitDate: date(2026, time.March, 20),
		VisitTime: "09:00",
	}, "127.0.0.1")
	require.NoError(t, err)

	otherUser := uuid.New()
	other := f.patientRepo.add(&patient.Patient{
		FirstName: "Georgi",
		LastName:  "Ivanov",
		EGN:       "9001010000",
		UserID:    &otherUser,
	})

	// The query asks for another patient's visits; the caller's own scope
	// wins.
	page, err := f.svc.List(ctx, &visit.ListQuery{PatientID: &f.patient.ID}, "patient", &other.ID)
	require.NoError(t, err)
	assert.Zero(t, page.TotalElements)
}

func TestVisitHardDelete(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, f.createCmd(date(2026, time.March, 20), "09:00"), uuid.New(), "admin", "127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, v.ID, uuid.New(), "127.0.0.1"))

	_, err = f.svc.GetByID(ctx, v.ID, "admin", nil)
	assert.ErrorIs(t, err, visit.ErrVisitNotFound)
}
