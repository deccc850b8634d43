package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptes-nms/panoptes-server/internal/config"
	"github.com/panoptes-nms/panoptes-server/internal/models"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	return NewJWTManager(&config.JWTConfig{
		Secret:          "test-secret-key-for-unit-tests",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := newTestManager(t)
	user := &models.User{
		ID:      uuid.New(),
		Email:   "admin@example.com",
		IsAdmin: true,
	}

	access, refresh, err := m.GenerateTokenPair(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.True(t, claims.IsAdmin)

	userID, err := m.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	m := newTestManager(t)
	user := &models.User{ID: uuid.New(), Email: "a@b.c"}

	access, _, err := m.GenerateTokenPair(user)
	require.NoError(t, err)

	_, err = m.ValidateToken(access + "x")
	assert.Error(t, err)

	other := NewJWTManager(&config.JWTConfig{
		Secret:          "a-different-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	_, err = other.ValidateToken(access)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager(&config.JWTConfig{
		Secret:          "test-secret-key-for-unit-tests",
		AccessTokenTTL:  -time.Minute,
		RefreshTokenTTL: -time.Minute,
	})
	user := &models.User{ID: uuid.New()}

	access, refresh, err := m.GenerateTokenPair(user)
	require.NoError(t, err)

	_, err = m.ValidateToken(access)
	assert.Error(t, err)

	_, err = m.ParseRefreshToken(refresh)
	assert.Error(t, err)
}
