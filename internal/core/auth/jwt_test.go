package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

func newTestJWTer() *JWTer {
	return NewJWTer("test-secret", "taskboard", 7*24*time.Hour)
}

func TestIssueVerify(t *testing.T) {
	j := newTestJWTer()
	tok, err := j.Issue("u1", domain.RoleAdmin)
	require.NoError(t, err)

	p, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", Role: domain.RoleAdmin}, p)
}

func TestVerifyExpired(t *testing.T) {
	j := newTestJWTer()
	issued := time.Now().Add(-8 * 24 * time.Hour)
	j.now = func() time.Time { return issued }
	tok, err := j.Issue("u1", domain.RoleUser)
	require.NoError(t, err)

	j.now = nil
	_, err = j.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	tok, err := NewJWTer("other-secret", "taskboard", time.Hour).Issue("u1", domain.RoleUser)
	require.NoError(t, err)

	_, err = newTestJWTer().Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	tok, err := NewJWTer("test-secret", "someone-else", time.Hour).Issue("u1", domain.RoleUser)
	require.NoError(t, err)

	_, err = newTestJWTer().Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsAlgNone(t *testing.T) {
	claims := Claims{
		UID:  "u1",
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskboard",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestJWTer().Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	tok, err := newTestJWTer().Issue("u1", domain.Role("ROOT"))
	require.NoError(t, err)

	_, err = newTestJWTer().Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMalformed(t *testing.T) {
	_, err := newTestJWTer().Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
