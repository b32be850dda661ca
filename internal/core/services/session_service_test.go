package services

import (
	"testing"
	"time"

	"dataplug/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_RoundTrip(t *testing.T) {
	svc := NewSessionService("secret", time.Hour)

	token, err := svc.IssueToken(domain.Identity{AccountID: "u1", Email: "admin@dataplug.dev"})
	require.NoError(t, err)

	identity, err := svc.ResolveToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("u1"), identity.AccountID)
	assert.Equal(t, "admin@dataplug.dev", identity.Email)
}

func TestSessionService_Rejections(t *testing.T) {
	svc := NewSessionService("secret", time.Hour)

	_, err := svc.ResolveToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewSessionService("other-secret", time.Hour)
	foreign, err := other.IssueToken(domain.Identity{AccountID: "u1"})
	require.NoError(t, err)
	_, err = svc.ResolveToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ResolveToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionService_Expired(t *testing.T) {
	svc := NewSessionService("secret", time.Minute).(*sessionService)
	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.IssueToken(domain.Identity{AccountID: "u1", Email: "a@b.io"})
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = svc.ResolveToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
