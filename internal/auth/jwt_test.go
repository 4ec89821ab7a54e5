package auth

import (
	"strings"
	"testing"

	"habitd/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{JWTSecret: strings.Repeat("k", 32)})
	require.NoError(t, err)
	return m
}

func TestNewManager_RejectsShortSecret(t *testing.T) {
	_, err := NewManager(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := testManager(t)
	tok, err := m.GenerateToken(42, "ana")
	require.NoError(t, err)

	claims, err := m.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "ana", claims.Username)

	_, err = m.ValidateRefreshToken(tok)
	assert.Error(t, err, "access tokens are not refresh tokens")
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	m := testManager(t)
	tok, err := m.GenerateRefreshToken(7, "leo", m.RefreshDays(true))
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(tok)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)

	_, err = m.ValidateToken(tok)
	assert.Error(t, err)
	assert.Equal(t, 30, m.RefreshDays(true))
	assert.Equal(t, 7, m.RefreshDays(false))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	m := testManager(t)
	other, err := NewManager(config.AuthConfig{JWTSecret: strings.Repeat("z", 32)})
	require.NoError(t, err)

	tok, err := other.GenerateToken(1, "x")
	require.NoError(t, err)
	_, err = m.ValidateToken(tok)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "s3cret!"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestRefreshToken_Unique(t *testing.T) {
	m := testManager(t)
	a, err := m.GenerateRefreshToken(1, "ana", 7)
	require.NoError(t, err)
	b, err := m.GenerateRefreshToken(1, "ana", 7)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
