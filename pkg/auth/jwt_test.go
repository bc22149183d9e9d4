package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrec/medrec-api/internal/config"
	"github.com/medrec/medrec-api/internal/domain"
)

func testManager(accessTTL time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "unit-test-secret",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medrec-test",
	})
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager(time.Minute)

	patientID := uuid.New()
	claims := &domain.Claims{
		UserID:    uuid.New(),
		Email:     "maria@example.com",
		Role:      domain.RolePatient,
		PatientID: &patientID,
	}

	pair, err := m.GenerateTokenPair(claims)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	got, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, got.UserID)
	assert.Equal(t, claims.Email, got.Email)
	assert.Equal(t, domain.RolePatient, got.Role)
	require.NotNil(t, got.PatientID)
	assert.Equal(t, patientID, *got.PatientID)
	assert.Nil(t, got.DoctorID)
}

func TestTokenTypeMismatch(t *testing.T) {
	m := testManager(time.Minute)

	pair, err := m.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestTokenWrongSecret(t *testing.T) {
	m := testManager(time.Minute)
	other := NewJWTManager(config.JWTConfig{
		Secret:          "a-different-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medrec-test",
	})

	pair, err := m.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenExpired(t *testing.T) {
	m := testManager(-time.Minute)

	pair, err := m.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
