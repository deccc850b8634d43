package cloud

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

func TestIssueSuccess(t *testing.T) {
	var gotAuth, gotContentType, gotGrant, gotScope string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotGrant = r.PostForm.Get("grant_type")
		gotScope = r.PostForm.Get("scope")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"abc","expires_in":1800,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	issuer := NewIssuer(5*time.Second, time.Minute)
	creds := &models.CredentialRecord{
		IdentityURL: srv.URL,
		AuthHeader:  "Basic dGVzdA==",
		PartnerID:   "partner-42",
	}

	before := time.Now()
	token, err := issuer.Issue(context.Background(), creds)
	require.NoError(t, err)

	assert.Equal(t, "Basic dGVzdA==", gotAuth)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "client_credentials", gotGrant)
	assert.Equal(t, "partnerId:partner-42 role:partnerIdAdmin", gotScope)

	assert.Equal(t, "abc", token.AccessToken)
	assert.Equal(t, 1800, token.ExpiresIn)

	// Expiry carries the safety margin: roughly now + 1800s - 60s
	want := before.Add(1800*time.Second - time.Minute)
	assert.WithinDuration(t, want, token.Expiry, 5*time.Second)
}

func TestIssueDefaultsExpiresIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"abc"}`))
	}))
	defer srv.Close()

	issuer := NewIssuer(5*time.Second, time.Minute)
	token, err := issuer.Issue(context.Background(), &models.CredentialRecord{
		IdentityURL: srv.URL,
		AuthHeader:  "Basic x",
		PartnerID:   "p",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultExpiresIn, token.ExpiresIn)
}

func TestIssueIncompleteCredentials(t *testing.T) {
	issuer := NewIssuer(5*time.Second, time.Minute)
	_, err := issuer.Issue(context.Background(), &models.CredentialRecord{
		IdentityURL: "https://identity.example.com",
	})
	assert.ErrorIs(t, err, ErrAuthConfig)
}

func TestIssueProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	issuer := NewIssuer(5*time.Second, time.Minute)
	_, err := issuer.Issue(context.Background(), &models.CredentialRecord{
		IdentityURL: srv.URL,
		AuthHeader:  "Basic wrong",
		PartnerID:   "p",
	})

	var oauthErr *OAuthError
	require.True(t, errors.As(err, &oauthErr))
	assert.Equal(t, http.StatusUnauthorized, oauthErr.Status)
	assert.False(t, oauthErr.Timeout)
}

func TestIssueMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	issuer := NewIssuer(5*time.Second, time.Minute)
	_, err := issuer.Issue(context.Background(), &models.CredentialRecord{
		IdentityURL: srv.URL,
		AuthHeader:  "Basic x",
		PartnerID:   "p",
	})

	var oauthErr *OAuthError
	require.True(t, errors.As(err, &oauthErr))
	assert.Zero(t, oauthErr.Status)
}

func TestIssueMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	issuer := NewIssuer(5*time.Second, time.Minute)
	_, err := issuer.Issue(context.Background(), &models.CredentialRecord{
		IdentityURL: srv.URL,
		AuthHeader:  "Basic x",
		PartnerID:   "p",
	})

	var oauthErr *OAuthError
	assert.True(t, errors.As(err, &oauthErr))
}

func TestIssueTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	issuer := NewIssuer(20*time.Millisecond, time.Minute)
	_, err := issuer.Issue(context.Background(), &models.CredentialRecord{
		IdentityURL: srv.URL,
		AuthHeader:  "Basic x",
		PartnerID:   "p",
	})

	var oauthErr *OAuthError
	require.True(t, errors.As(err, &oauthErr))
	assert.True(t, oauthErr.Timeout)
}
