package models

import (
	"time"

	"github.com/google/uuid"
)

// CredentialRecord holds the cloud API credential material for one caller
// identity. The auth header is the secret part; it is never serialized to
// JSON and is sealed before it reaches persistent storage.
type CredentialRecord struct {
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// IdentityURL is the OAuth token endpoint of the identity provider.
	IdentityURL string `json:"identityUrl" db:"identity_url"`

	// AuthHeader is the pre-built Authorization header value used for the
	// client-credentials exchange.
	AuthHeader string `json:"-" db:"auth_header"`

	// PartnerID scopes the issued token (partnerId:<id> role:partnerIdAdmin).
	PartnerID string `json:"partnerId" db:"partner_id"`

	// APIBase and ReportsAPIBase override the configured defaults when set.
	APIBase        string `json:"apiBase,omitempty" db:"api_base"`
	ReportsAPIBase string `json:"reportsApiBase,omitempty" db:"reports_api_base"`
}

// Complete reports whether the record carries everything token issuance needs.
func (c *CredentialRecord) Complete() bool {
	return c != nil && c.IdentityURL != "" && c.AuthHeader != "" && c.PartnerID != ""
}

// TokenRecord is a cached bearer token and its expiry instant. The expiry
// already has the safety margin subtracted, so the token is usable strictly
// before Expiry.
type TokenRecord struct {
	AccessToken string    `json:"-"`
	Expiry      time.Time `json:"expiry"`
	ExpiresIn   int       `json:"expiresIn"`
}

// Valid reports whether the token can still be presented at time now.
func (t *TokenRecord) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.Expiry)
}
