package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrelay/aidrelay-api/internal/models"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func memberClaims(groupID string) *models.JWTClaims {
	now := time.Now().UTC()
	return &models.JWTClaims{
		UserID:  "user-1",
		GroupID: groupID,
		Role:    models.RoleMember,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "aidrelay-admin",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func TestAuthValidateToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "aidrelay-admin"})

	claims, err := svc.ValidateToken(signToken(t, "secret", memberClaims("grp-1")))
	require.NoError(t, err)
	assert.Equal(t, "grp-1", claims.GroupID)
	assert.Equal(t, models.RoleMember, claims.Role)
}

func TestAuthValidateTokenWrongSecret(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})

	_, err := svc.ValidateToken(signToken(t, "other", memberClaims("grp-1")))
	assert.Error(t, err)
}

func TestAuthValidateTokenExpired(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})

	claims := memberClaims("grp-1")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().UTC().Add(-time.Hour))
	_, err := svc.ValidateToken(signToken(t, "secret", claims))
	assert.Error(t, err)
}

func TestAuthValidateTokenMissingGroup(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})

	_, err := svc.ValidateToken(signToken(t, "secret", memberClaims("")))
	assert.Error(t, err)
}

func TestAuthValidateTokenWrongIssuer(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "aidrelay-admin"})

	claims := memberClaims("grp-1")
	claims.Issuer = "someone-else"
	_, err := svc.ValidateToken(signToken(t, "secret", claims))
	assert.Error(t, err)
}
