package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	user := &domain.User{ID: testutils.NewTestRecordID(domain.TableUser), Role: domain.RoleAdmin}
	signed, exp, err := tokens.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestParseRejects(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokens("other", time.Hour)
		signed, _, err := other.IssueFor("user:1", domain.RoleUser, time.Hour)
		require.NoError(t, err)
		_, err = tokens.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := &Tokens{secret: []byte("secret"), ttl: time.Hour, now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
		signed, _, err := past.IssueFor("user:1", domain.RoleUser, time.Hour)
		require.NoError(t, err)
		_, err = tokens.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user:1", "iss": "pliiiz"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tokens.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokensValidates(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	assert.Error(t, err)
	_, err = NewTokens("s", 0)
	assert.Error(t, err)
}
