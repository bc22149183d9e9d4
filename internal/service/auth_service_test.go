package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medrec/medrec-api/internal/config"
	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/pkg/auth"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) add(email, password string, role domain.Role) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if success {
		u.FailedLoginCount = 0
		u.LockedUntil = nil
		now := time.Now()
		u.LastLoginAt = &now
		return nil
	}
	u.FailedLoginCount++
	if u.FailedLoginCount >= 5 {
		until := time.Now().Add(15 * time.Minute)
		u.LockedUntil = &until
	}
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func testJWTManager() *auth.JWTManager {
	return auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-key-for-unit-tests",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medrec-test",
	})
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, *fakePatientRepo, *fakeDoctorRepo) {
	t.Helper()

	userRepo := newFakeUserRepo()
	patientRepo := newFakePatientRepo()
	doctorRepo := newFakeDoctorRepo()

	auditSvc := NewAuditService(&fakeAuditRepo{}, zap.NewNop())
	t.Cleanup(auditSvc.Shutdown)

	svc := NewAuthService(userRepo, patientRepo, doctorRepo, testJWTManager(), auditSvc, zap.NewNop())
	return svc, userRepo, patientRepo, doctorRepo
}

func TestLogin(t *testing.T) {
	svc, userRepo, _, _ := newAuthFixture(t)
	userRepo.add("doc@medrec.health", "correct-horse-battery", domain.RoleDoctor)

	pair, err := svc.Login(context.Background(), "doc@medrec.health", "correct-horse-battery", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, userRepo, _, _ := newAuthFixture(t)
	u := userRepo.add("doc@medrec.health", "correct-horse-battery", domain.RoleDoctor)

	_, err := svc.Login(context.Background(), "doc@medrec.health", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, u.FailedLoginCount)

	// An unknown email reports the same error as a wrong password.
	_, err = svc.Login(context.Background(), "nobody@medrec.health", "whatever", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginLockout(t *testing.T) {
	svc, userRepo, _, _ := newAuthFixture(t)
	userRepo.add("doc@medrec.health", "correct-horse-battery", domain.RoleDoctor)

	for i := 0; i < 5; i++ {
		_, err := svc.Login(context.Background(), "doc@medrec.health", "wrong", "10.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the right password is rejected while the account is locked.
	_, err := svc.Login(context.Background(), "doc@medrec.health", "correct-horse-battery", "10.0.0.1")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, userRepo, _, _ := newAuthFixture(t)
	u := userRepo.add("doc@medrec.health", "correct-horse-battery", domain.RoleDoctor)
	u.IsActive = false

	_, err := svc.Login(context.Background(), "doc@medrec.health", "correct-horse-battery", "10.0.0.1")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestRefreshToken(t *testing.T) {
	svc, userRepo, _, _ := newAuthFixture(t)
	userRepo.add("doc@medrec.health", "correct-horse-battery", domain.RoleDoctor)

	pair, err := svc.Login(context.Background(), "doc@medrec.health", "correct-horse-battery", "10.0.0.1")
	require.NoError(t, err)

	fresh, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	// An access token is not accepted on the refresh path.
	_, err = svc.RefreshToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterPatient(t *testing.T) {
	svc, _, patientRepo, doctorRepo := newAuthFixture(t)
	gp := doctorRepo.add(&doctor.Doctor{
		FirstName: "Ivan",
		LastName:  "Dimitrov",
		IdNumber:  "DOC-1001",
		IsGP:      true,
		Approved:  true,
	})

	pair, err := svc.RegisterPatient(context.Background(), &RegisterPatientCommand{
		Email:                 "Maria.Petrova@example.com",
		Password:              "a-long-enough-password",
		FirstName:             "Maria",
		LastName:              "Petrova",
		EGN:                   "2445112130",
		GeneralPractitionerID: &gp.ID,
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	page, err := patientRepo.List(context.Background(), &patient.ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	p := page.Content[0]
	assert.Equal(t, "2445112130", p.EGN)
	assert.NotNil(t, p.UserID)
	require.NotNil(t, p.GeneralPractitionerID)
	assert.Equal(t, gp.ID, *p.GeneralPractitionerID)
}

func TestRegisterPatientValidation(t *testing.T) {
	svc, _, patientRepo, doctorRepo := newAuthFixture(t)

	// Bad checksum.
	_, err := svc.RegisterPatient(context.Background(), &RegisterPatientCommand{
		Email:     "x@example.com",
		Password:  "a-long-enough-password",
		FirstName: "Maria",
		LastName:  "Petrova",
		EGN:       "2445112131",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, patient.ErrInvalidEGN)

	// Weak password.
	_, err = svc.RegisterPatient(context.Background(), &RegisterPatientCommand{
		Email:     "x@example.com",
		Password:  "short",
		FirstName: "Maria",
		LastName:  "Petrova",
		EGN:       "2445112130",
	}, "10.0.0.1")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	// Duplicate EGN.
	patientRepo.add(&patient.Patient{FirstName: "Taken", LastName: "Already", EGN: "2445112130"})
	_, err = svc.RegisterPatient(context.Background(), &RegisterPatientCommand{
		Email:     "x@example.com",
		Password:  "a-long-enough-password",
		FirstName: "Maria",
		LastName:  "Petrova",
		EGN:       "2445112130",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, patient.ErrPatientAlreadyExists)

	// GP reference that is not a general practitioner.
	specialist := doctorRepo.add(&doctor.Doctor{
		FirstName: "Petar",
		LastName:  "Georgiev",
		IdNumber:  "DOC-2002",
		IsGP:      false,
		Approved:  true,
	})
	_, err = svc.RegisterPatient(context.Background(), &RegisterPatientCommand{
		Email:                 "y@example.com",
		Password:              "a-long-enough-password",
		FirstName:             "Georgi",
		LastName:              "Ivanov",
		EGN:                   "9001010000",
		GeneralPractitionerID: &specialist.ID,
	}, "10.0.0.1")
	assert.ErrorIs(t, err, doctor.ErrNotGeneralPractitioner)
}

func TestChangePassword(t *testing.T) {
	svc, userRepo, _, _ := newAuthFixture(t)
	u := userRepo.add("doc@medrec.health", "correct-horse-battery", domain.RoleDoctor)

	err := svc.ChangePassword(context.Background(), u.ID, "wrong", "a-new-long-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), u.ID, "correct-horse-battery", "short")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	err = svc.ChangePassword(context.Background(), u.ID, "correct-horse-battery", "a-new-long-password")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "doc@medrec.health", "a-new-long-password", "10.0.0.1")
	assert.NoError(t, err)
}
