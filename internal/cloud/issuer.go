package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// DefaultExpiresIn is assumed when the provider omits expires_in.
const DefaultExpiresIn = 3600

// Issuer performs the OAuth 2.0 client-credentials exchange against the
// identity provider.
type Issuer struct {
	client *http.Client
	margin time.Duration
}

// NewIssuer creates an issuer. Every exchange is bounded by timeout.
func NewIssuer(timeout, margin time.Duration) *Issuer {
	return &Issuer{
		client: &http.Client{Timeout: timeout},
		margin: margin,
	}
}

// Issue exchanges the credential record for a bearer token. The returned
// expiry already has the safety margin subtracted.
func (i *Issuer) Issue(ctx context.Context, creds *models.CredentialRecord) (*models.TokenRecord, error) {
	if !creds.Complete() {
		return nil, ErrAuthConfig
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", fmt.Sprintf("partnerId:%s role:partnerIdAdmin", creds.PartnerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.IdentityURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &OAuthError{Reason: "build request", Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", creds.AuthHeader)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &OAuthError{Reason: "identity provider timed out", Timeout: true, Err: err}
		}
		return nil, &OAuthError{Reason: "network error during token exchange", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &OAuthError{Reason: "read provider response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).Msg("OAuth token request rejected")
		return nil, &OAuthError{Reason: "provider rejected the request", Status: resp.StatusCode}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, &OAuthError{Reason: "malformed provider response", Err: err}
	}

	if tokenResp.AccessToken == "" {
		return nil, &OAuthError{Reason: "no access_token in provider response"}
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = DefaultExpiresIn
	}

	return &models.TokenRecord{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   expiresIn,
		Expiry:      time.Now().Add(time.Duration(expiresIn)*time.Second - i.margin),
	}, nil
}

// isTimeout reports whether a transport error is a deadline failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
