package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func TestSessionTokenRoundTrip(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	userID := uuid.New()

	raw, err := m.IssueSession(userID, "rider@example.com", "+14155550100")
	require.NoError(t, err)

	claims, err := m.VerifySession(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID())
	assert.Equal(t, "rider@example.com", claims.Email)
	assert.Equal(t, "+14155550100", claims.PhoneNumber)
	assert.Equal(t, ScopeSession, claims.Scope)
}

func TestPhoneTokenRejectedAsSession(t *testing.T) {
	m := NewManager(testSecret, time.Hour)

	raw, err := m.IssuePhone("+14155550100")
	require.NoError(t, err)

	_, err = m.VerifySession(raw)
	assert.ErrorIs(t, err, ErrWrongScope)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewManager(testSecret, -time.Minute)

	raw, err := m.IssueSession(uuid.New(), "rider@example.com", "")
	require.NoError(t, err)

	_, err = m.VerifySession(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenSignedWithDifferentSecretRejected(t *testing.T) {
	issuer := NewManager(testSecret, time.Hour)
	verifier := NewManager("a-completely-different-secret-value", time.Hour)

	raw, err := issuer.IssueSession(uuid.New(), "rider@example.com", "")
	require.NoError(t, err)

	_, err = verifier.VerifySession(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
