package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualhub/manual-api/internal/models"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims models.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenServiceValidate(t *testing.T) {
	svc := NewTokenService("secret")
	signed := signToken(t, "secret", models.Claims{
		UserID: "u1",
		Role:   models.RoleSupervisor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleSupervisor, claims.Role)
}

func TestTokenServiceRejectsBadSignature(t *testing.T) {
	svc := NewTokenService("secret")
	signed := signToken(t, "other-secret", models.Claims{UserID: "u1"})

	_, err := svc.Validate(signed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("secret")
	signed := signToken(t, "secret", models.Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := svc.Validate(signed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsEmptySubject(t *testing.T) {
	svc := NewTokenService("secret")
	signed := signToken(t, "secret", models.Claims{Role: models.RoleUser})

	_, err := svc.Validate(signed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	svc := NewTokenService("secret")

	_, err := svc.Validate("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
