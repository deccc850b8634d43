package cloud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

type fakeIssuer struct {
	token  *models.TokenRecord
	err    error
	issued int
}

func (f *fakeIssuer) Issue(ctx context.Context, creds *models.CredentialRecord) (*models.TokenRecord, error) {
	f.issued++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.token
	return &cp, nil
}

func completeCreds(userID uuid.UUID) *models.CredentialRecord {
	return &models.CredentialRecord{
		UserID:      userID,
		IdentityURL: "https://identity.example.com/oauth/token",
		AuthHeader:  "Basic dGVzdA==",
		PartnerID:   "partner-1",
	}
}

func TestEnsureValidTokenIssuesAndCaches(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	issuer := &fakeIssuer{token: &models.TokenRecord{
		AccessToken: "tok-1",
		ExpiresIn:   3600,
		Expiry:      time.Now().Add(3600*time.Second - time.Minute),
	}}

	cache := NewTokenCache(issuer, nil)
	require.NoError(t, cache.SetCredentials(ctx, userID, completeCreds(userID)))
	assert.False(t, cache.IsValid(userID))

	tok, err := cache.EnsureValidToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.True(t, cache.IsValid(userID))
	assert.Equal(t, 1, issuer.issued)

	// Second call served from cache, no re-issuance
	tok, err = cache.EnsureValidToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, 1, issuer.issued)
}

func TestEnsureValidTokenRefreshesExpired(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	issuer := &fakeIssuer{token: &models.TokenRecord{
		AccessToken: "tok-fresh",
		ExpiresIn:   3600,
		Expiry:      time.Now().Add(time.Hour),
	}}

	cache := NewTokenCache(issuer, nil)
	require.NoError(t, cache.SetCredentials(ctx, userID, completeCreds(userID)))

	// Simulate time moving past the expiry: the cached entry expired a
	// second ago from the cache's point of view.
	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := cache.EnsureValidToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, issuer.issued)

	// Token was stored but is already past expiry under the shifted clock,
	// so the next call issues again.
	_, err = cache.EnsureValidToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, issuer.issued)
}

func TestEnsureValidTokenWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	cache := NewTokenCache(&fakeIssuer{}, nil)

	_, err := cache.EnsureValidToken(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAuthConfig)
}

func TestEnsureValidTokenIncompleteCredentials(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	cache := NewTokenCache(&fakeIssuer{}, nil)

	creds := completeCreds(userID)
	creds.PartnerID = ""
	require.NoError(t, cache.SetCredentials(ctx, userID, creds))

	_, err := cache.EnsureValidToken(ctx, userID)
	assert.ErrorIs(t, err, ErrAuthConfig)
}

func TestEnsureValidTokenIssuanceFailure(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	issueErr := &OAuthError{Reason: "provider rejected the request", Status: 401}
	issuer := &fakeIssuer{err: issueErr}

	cache := NewTokenCache(issuer, nil)
	require.NoError(t, cache.SetCredentials(ctx, userID, completeCreds(userID)))

	_, err := cache.EnsureValidToken(ctx, userID)
	var oauthErr *OAuthError
	require.True(t, errors.As(err, &oauthErr))
	assert.Equal(t, 401, oauthErr.Status)

	// Credentials survive the failure
	assert.NotNil(t, cache.Credentials(userID))
	assert.False(t, cache.IsValid(userID))
}

func TestSetCredentialsDropsCachedToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	issuer := &fakeIssuer{token: &models.TokenRecord{
		AccessToken: "tok-1",
		ExpiresIn:   3600,
		Expiry:      time.Now().Add(time.Hour),
	}}

	cache := NewTokenCache(issuer, nil)
	require.NoError(t, cache.SetCredentials(ctx, userID, completeCreds(userID)))
	_, err := cache.EnsureValidToken(ctx, userID)
	require.NoError(t, err)
	require.True(t, cache.IsValid(userID))

	require.NoError(t, cache.SetCredentials(ctx, userID, completeCreds(userID)))
	assert.False(t, cache.IsValid(userID))
}

func TestInvalidateTokenKeepsCredentials(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	issuer := &fakeIssuer{token: &models.TokenRecord{
		AccessToken: "tok-1",
		ExpiresIn:   3600,
		Expiry:      time.Now().Add(time.Hour),
	}}

	cache := NewTokenCache(issuer, nil)
	require.NoError(t, cache.SetCredentials(ctx, userID, completeCreds(userID)))
	_, err := cache.EnsureValidToken(ctx, userID)
	require.NoError(t, err)

	cache.InvalidateToken(userID)
	assert.False(t, cache.IsValid(userID))
	assert.NotNil(t, cache.Credentials(userID))

	// Next call re-issues with the same credentials
	tok, err := cache.EnsureValidToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, 2, issuer.issued)
}

func TestDeleteCredentials(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	cache := NewTokenCache(&fakeIssuer{}, nil)

	require.NoError(t, cache.SetCredentials(ctx, userID, completeCreds(userID)))
	require.NoError(t, cache.DeleteCredentials(ctx, userID))

	assert.Nil(t, cache.Credentials(userID))
	_, err := cache.EnsureValidToken(ctx, userID)
	assert.ErrorIs(t, err, ErrAuthConfig)
}
