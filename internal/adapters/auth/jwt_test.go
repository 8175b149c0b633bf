package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier("secret", "nearby")
	ctx := context.Background()

	tok, err := v.Issue("u1", "Ana", time.Hour)
	require.NoError(t, err)
	u, err := v.Verify(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, &domain.User{ID: "u1", Name: "Ana"}, u)

	anon, err := v.Issue("u2", "", time.Hour)
	require.NoError(t, err)
	u, err = v.Verify(ctx, anon)
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", u.Name)

	expired, err := v.Issue("u1", "Ana", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(ctx, expired)
	assert.ErrorIs(t, err, core.ErrInvalidCredential)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other, err := NewJWTVerifier("other", "nearby").Issue("u1", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(ctx, other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTVerifier("secret", "elsewhere").Issue("u1", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(ctx, wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(ctx, "not-a-token")
	assert.ErrorIs(t, err, core.ErrInvalidCredential)
}

func TestJWTVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v := NewJWTVerifier("secret", "")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_EmptySubject(t *testing.T) {
	v := NewJWTVerifier("secret", "")
	tok, err := v.Issue("", "x", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, domain.ErrUserIDEmpty)
}
