package security_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/fleetgate/pkg/security"
)

func newManager() *security.TokenManager {
	return security.NewTokenManager("test-secret", "fleetgate", time.Hour, 24*time.Hour)
}

func TestTokenRoundTrip(t *testing.T) {
	m := newManager()

	for _, kind := range []security.TokenKind{security.TokenKindAccess, security.TokenKindRefresh} {
		signed, err := m.Issue("alice", 7, "manager", kind)
		require.NoError(t, err)

		claims, err := m.Verify(signed, kind)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, int64(7), claims.UserID)
		assert.Equal(t, "manager", claims.Role)
		assert.Equal(t, kind, claims.Kind)
		assert.NotEmpty(t, claims.ID)
		assert.Equal(t, "fleetgate", claims.Issuer)
	}
}

func TestTokenUniqueIDs(t *testing.T) {
	m := newManager()

	a, err := m.Issue("alice", 7, "user", security.TokenKindAccess)
	require.NoError(t, err)
	b, err := m.Issue("alice", 7, "user", security.TokenKindAccess)
	require.NoError(t, err)

	ca, err := m.Verify(a, security.TokenKindAccess)
	require.NoError(t, err)
	cb, err := m.Verify(b, security.TokenKindAccess)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestVerify_WrongKind(t *testing.T) {
	m := newManager()

	access, err := m.Issue("alice", 7, "user", security.TokenKindAccess)
	require.NoError(t, err)

	claims, err := m.Verify(access, security.TokenKindRefresh)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	expired := security.NewTokenManager("test-secret", "fleetgate", -time.Minute, -time.Minute)

	signed, err := expired.Issue("alice", 7, "user", security.TokenKindAccess)
	require.NoError(t, err)

	claims, err := newManager().Verify(signed, security.TokenKindAccess)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestVerify_TamperedAndForeign(t *testing.T) {
	m := newManager()

	signed, err := m.Issue("alice", 7, "user", security.TokenKindAccess)
	require.NoError(t, err)

	tampered := signed[:len(signed)-2] + "xx"
	claims, err := m.Verify(tampered, security.TokenKindAccess)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	other := security.NewTokenManager("different-secret", "fleetgate", time.Hour, time.Hour)
	foreign, err := other.Issue("alice", 7, "user", security.TokenKindAccess)
	require.NoError(t, err)

	claims, err = m.Verify(foreign, security.TokenKindAccess)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	claims, err = m.Verify("not even a token", security.TokenKindAccess)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}
