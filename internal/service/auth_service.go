package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type AuthService struct {
	userRepo    UserRepository
	patientRepo patient.Repository
	doctorRepo  doctor.Repository
	jwtManager  *auth.JWTManager
	auditSvc    *AuditService
	log         *zap.Logger
}

func NewAuthService(userRepo UserRepository, patientRepo patient.Repository, doctorRepo doctor.Repository, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		jwtManager:  jwtManager,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// RegisterPatientCommand is the self-registration payload: one call creates
// both the auth account and the bound patient record.
type RegisterPatientCommand struct {
	Email                 string
	Password              string
	FirstName             string
	LastName              string
	EGN                   string
	GeneralPractitionerID *uuid.UUID
}

// RegisterPatient creates a patient-role account together with its patient
// record and signs the new user in.
func (s *AuthService) RegisterPatient(ctx context.Context, cmd *RegisterPatientCommand, ip string) (*domain.TokenPair, error) {
	egn := strings.TrimSpace(cmd.EGN)
	if err := patient.ValidateEGN(egn); err != nil {
		return nil, err
	}
	if err := validatePasswordStrength(cmd.Password); err != nil {
		return nil, err
	}

	taken, err := s.patientRepo.ExistsByEGN(ctx, egn, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, patient.ErrPatientAlreadyExists
	}

	if cmd.GeneralPractitionerID != nil {
		gp, err := s.doctorRepo.GetByID(ctx, *cmd.GeneralPractitionerID, false)
		if err != nil {
			return nil, err
		}
		if !gp.IsGP {
			return nil, doctor.ErrNotGeneralPractitioner
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	// The patient ID is minted here so the user row can carry the binding
	// from the start; later logins then scope their claims correctly.
	patientID := uuid.New()

	user := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(cmd.Email)),
		PasswordHash: string(hash),
		Role:         domain.RolePatient,
		PatientID:    &patientID,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	p := &patient.Patient{
		ID:                    patientID,
		FirstName:             cmd.FirstName,
		LastName:              cmd.LastName,
		EGN:                   egn,
		GeneralPractitionerID: cmd.GeneralPractitionerID,
		UserID:                &user.ID,
		CreatedBy:             user.ID,
	}
	if err := s.patientRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     string(domain.RolePatient),
		Action:       "create",
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("patient registered",
		zap.String("user_id", user.ID.String()),
		zap.String("patient_id", p.ID.String()),
	)

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Burn a bcrypt round so a missing account cannot be told apart
		// from a wrong password by response time.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, false)
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, true)

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-check the account rather than trusting the old claims.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

// ChangePassword updates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if err := validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		DoctorID:  u.DoctorID,
		PatientID: u.PatientID,
	}
}

func validatePasswordStrength(password string) error {
	if len(password) < 12 {
		return &ValidationError{Fields: []string{"password must be at least 12 characters"}}
	}
	return nil
}
