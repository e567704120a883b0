package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
)

func signedTestToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: "member-1",
		Role:   models.RoleMember,
		Email:  "member-1@corp.example",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenServiceValidatesSignedToken(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret"})

	claims, err := svc.ValidateToken(signedTestToken(t, "test-secret", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, "member-1", claims.UserID)
	require.Equal(t, models.RoleMember, claims.Role)
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret"})

	_, err := svc.ValidateToken(signedTestToken(t, "other-secret", time.Now().Add(time.Hour)))
	require.Error(t, err)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret"})

	_, err := svc.ValidateToken(signedTestToken(t, "test-secret", time.Now().Add(-time.Minute)))
	require.Error(t, err)
}
