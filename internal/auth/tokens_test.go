package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetracker/internal/models"
)

func newTestTokens() *TokenService {
	return NewTokenService("test-secret", "codetracker", 30*time.Minute, 7*24*time.Hour)
}

func testUser() models.User {
	return models.User{ID: "user-1", Email: "dev@example.com"}
}

func TestIssueAndVerifySession(t *testing.T) {
	svc := newTestTokens()
	sess, err := svc.IssueSession(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)
	require.NotEmpty(t, sess.RefreshToken)
	assert.NotEqual(t, sess.AccessToken, sess.RefreshToken)
	assert.Equal(t, "user-1", sess.User.ID)

	identity, err := svc.VerifyAccess(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "dev@example.com", identity.Email)

	userID, err := svc.VerifyRefresh(sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	svc := newTestTokens()
	sess, err := svc.IssueSession(testUser())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(sess.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid, "a refresh token must not pass as access")

	_, err = svc.VerifyRefresh(sess.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid, "an access token must not pass as refresh")
}

func TestExpiredTokenReported(t *testing.T) {
	svc := NewTokenService("test-secret", "codetracker", -time.Minute, -time.Minute)
	sess, err := svc.IssueSession(testUser())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(sess.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestWrongSecretRejected(t *testing.T) {
	sess, err := newTestTokens().IssueSession(testUser())
	require.NoError(t, err)

	other := NewTokenService("different-secret", "codetracker", 30*time.Minute, time.Hour)
	_, err = other.VerifyAccess(sess.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestWrongIssuerRejected(t *testing.T) {
	foreign := NewTokenService("test-secret", "someone-else", 30*time.Minute, time.Hour)
	sess, err := foreign.IssueSession(testUser())
	require.NoError(t, err)

	_, err = newTestTokens().VerifyAccess(sess.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGarbageTokenRejected(t *testing.T) {
	svc := newTestTokens()
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.VerifyAccess(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid, "raw %q", raw)
	}
}
