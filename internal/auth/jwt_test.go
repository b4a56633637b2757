package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuedToken(t *testing.T) {
	v := newVerifier(t, "secret")
	token, err := v.Issue(42, time.Minute)
	require.NoError(t, err)

	userID, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestValidateUserIDClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"exp":     time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	userID, err := newVerifier(t, "secret").ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, userID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := newVerifier(t, "other").Issue(1, time.Minute)
	require.NoError(t, err)

	_, err = newVerifier(t, "secret").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	v := newVerifier(t, "secret")
	token, err := v.Issue(1, -time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsMissingExpiry(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = newVerifier(t, "secret").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newVerifier(t *testing.T, secret string) *Verifier {
	t.Helper()
	v, err := NewVerifier(secret)
	require.NoError(t, err)
	return v
}

func TestNewVerifierRejectsEmptySecret(t *testing.T) {
	v, err := NewVerifier("")
	require.ErrorIs(t, err, ErrEmptySecret)
	assert.Nil(t, v)
}

func TestValidateRejectsTokenSignedWithEmptyKey(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(""))
	require.NoError(t, err)

	_, err = newVerifier(t, "secret").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
