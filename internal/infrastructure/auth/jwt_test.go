package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adhub/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	cfg := config.JWTConfig{
		Secret:          "test-secret-key-at-least-32-chars",
		ExpirationHours: 1,
		Issuer:          "test-issuer",
	}
	return NewJWTService(cfg)
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Username: "testuser",
	}
}

func TestNewJWTService(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:          "test-secret",
		ExpirationHours: 24,
		Issuer:          "test-issuer",
	}

	svc := NewJWTService(cfg)

	assert.NotNil(t, svc)
	assert.Equal(t, []byte(cfg.Secret), svc.secret)
	assert.Equal(t, 24*time.Hour, svc.expiration)
	assert.Equal(t, cfg.Issuer, svc.issuer)
}

func TestGenerateToken(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()

	token, err := svc.GenerateToken(input)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestValidateAccessToken_Success(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()

	token, err := svc.GenerateToken(input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, input.TenantID.String(), claims.TenantID)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, input.Username, claims.Username)
}

func TestValidateAccessToken_ExpiredToken(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "test-issuer",
	})
	// Zero ExpirationHours means the token is already expired
	input := newTestInput()

	token, err := svc.GenerateToken(input)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_InvalidToken(t *testing.T) {
	svc := newTestJWTService()

	_, err := svc.ValidateAccessToken("invalid-token")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_DifferentSecret(t *testing.T) {
	svc1 := newTestJWTService()
	input := newTestInput()

	token, err := svc1.GenerateToken(input)
	require.NoError(t, err)

	svc2 := NewJWTService(config.JWTConfig{
		Secret:          "different-secret-key-32-chars!",
		ExpirationHours: 1,
		Issuer:          "test-issuer",
	})

	_, err = svc2.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_TenantUUID(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()

	token, err := svc.GenerateToken(input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	tenantUUID, err := claims.TenantUUID()
	require.NoError(t, err)
	assert.Equal(t, input.TenantID, tenantUUID)

	userUUID, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, input.UserID, userUUID)
}
