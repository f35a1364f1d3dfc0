package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "media-library"})

	token, expiresAt, err := svc.IssueToken(IssueTokenRequest{UserID: "user-1", Role: models.RoleUser, Email: "a@b.co"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret"})
	other := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "other"})

	token, _, err := other.IssueToken(IssueTokenRequest{UserID: "user-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	_, err = svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestAuthServiceRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret"})
	claims := &models.JWTClaims{UserID: "u", Role: "SUPERUSER", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthServiceIssueValidatesRequest(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret"})
	_, _, err := svc.IssueToken(IssueTokenRequest{Role: "ROOT"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}
