package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokens_RequiresSecret(t *testing.T) {
	_, err := NewTokens("")
	assert.ErrorIs(t, err, ErrSecretRequired)
}

func TestIssueAndVerify(t *testing.T) {
	tokens, err := NewTokens("secret")
	require.NoError(t, err)

	token, err := tokens.Issue(" user-1 ")
	require.NoError(t, err)

	owner, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)
}

func TestIssue_EmptySubject(t *testing.T) {
	tokens, err := NewTokens("secret")
	require.NoError(t, err)

	_, err = tokens.Issue("  ")
	assert.ErrorIs(t, err, ErrSubjectRequired)
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens, err := NewTokens("secret", WithClock(func() time.Time { return now }), WithTTL(time.Hour))
	require.NoError(t, err)

	valid, err := tokens.Issue("user-1")
	require.NoError(t, err)

	other, err := NewTokens("other-secret", WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	foreign, err := other.Issue("user-1")
	require.NoError(t, err)

	later, err := NewTokens("secret", WithClock(func() time.Time { return now.Add(2 * time.Hour) }))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := tokens.Verify("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong secret", func(t *testing.T) {
		_, err := tokens.Verify(foreign)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		_, err := later.Verify(valid)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("alg none", func(t *testing.T) {
		_, err := tokens.Verify(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestVerify_MissingSubject(t *testing.T) {
	tokens, err := NewTokens("secret")
	require.NoError(t, err)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrSubjectRequired)
}

func TestOwnerContext(t *testing.T) {
	_, ok := OwnerFrom(context.Background())
	assert.False(t, ok)

	ctx := WithOwner(context.Background(), "user-1")
	owner, ok := OwnerFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", owner)
}
