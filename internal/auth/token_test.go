package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestInspect_ReadsClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := sign(t, jwt.RegisteredClaims{
		Subject:   "editor@example.com",
		Issuer:    "lumina",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-24 * time.Hour)),
	})

	info, err := Inspect("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "editor@example.com", info.Subject)
	assert.Equal(t, "lumina", info.Issuer)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.False(t, info.Expired(exp.Add(-time.Minute)))
	assert.True(t, info.Expired(exp))
	assert.Contains(t, info.String(), "editor@example.com")
}

func TestInspect_ExpiredTokenStillParses(t *testing.T) {
	token := sign(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Unix(1000, 0))})

	info, err := Inspect(token)
	require.NoError(t, err)
	assert.True(t, info.Expired(time.Now()))
}

func TestInspect_Opaque(t *testing.T) {
	info, err := Inspect("  abc123  ")
	require.NoError(t, err)
	assert.True(t, info.Opaque)
	assert.False(t, info.Expired(time.Now()))
	assert.Equal(t, "opaque token", info.String())
}

func TestInspect_Malformed(t *testing.T) {
	_, err := Inspect("")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = Inspect("not.a.jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "tok", Normalize(" Bearer tok \n"))
}
