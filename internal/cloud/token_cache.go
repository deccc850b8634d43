package cloud

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// TokenIssuer mints a bearer token from a credential record.
type TokenIssuer interface {
	Issue(ctx context.Context, creds *models.CredentialRecord) (*models.TokenRecord, error)
}

// CredentialStore persists credential records across restarts. Token records
// are never persisted; they live only in memory.
type CredentialStore interface {
	SaveCredential(ctx context.Context, creds *models.CredentialRecord) error
	GetCredential(ctx context.Context, userID uuid.UUID) (*models.CredentialRecord, error)
	DeleteCredential(ctx context.Context, userID uuid.UUID) error
	ListCredentials(ctx context.Context) ([]*models.CredentialRecord, error)
}

// TokenCache owns all credential and token state, keyed by caller identity.
// Concurrent refreshes for the same identity may race; last writer wins,
// which is harmless because every issued token is independently valid.
type TokenCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*cacheEntry

	issuer TokenIssuer
	store  CredentialStore // optional
	now    func() time.Time
}

type cacheEntry struct {
	creds *models.CredentialRecord
	token *models.TokenRecord
}

// NewTokenCache creates a token cache. store may be nil for a purely
// in-process credential lifetime.
func NewTokenCache(issuer TokenIssuer, store CredentialStore) *TokenCache {
	return &TokenCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		issuer:  issuer,
		store:   store,
		now:     time.Now,
	}
}

// LoadPersisted warms the cache with all stored credential records.
func (c *TokenCache) LoadPersisted(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	records, err := c.store.ListCredentials(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range records {
		c.entries[rec.UserID] = &cacheEntry{creds: rec}
	}

	log.Info().Int("count", len(records)).Msg("Loaded persisted credential records")
	return nil
}

// SetCredentials replaces the credential record for an identity. Any cached
// token for the identity is dropped since it may no longer match.
func (c *TokenCache) SetCredentials(ctx context.Context, userID uuid.UUID, creds *models.CredentialRecord) error {
	creds.UserID = userID
	creds.UpdatedAt = c.now()
	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = creds.UpdatedAt
	}

	if c.store != nil {
		if err := c.store.SaveCredential(ctx, creds); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.entries[userID] = &cacheEntry{creds: creds}
	c.mu.Unlock()

	log.Info().Str("user_id", userID.String()).Msg("Credential record stored")
	return nil
}

// Credentials returns the stored credential record, or nil.
func (c *TokenCache) Credentials(userID uuid.UUID) *models.CredentialRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[userID]; ok {
		return e.creds
	}
	return nil
}

// DeleteCredentials removes the credential record and any cached token.
func (c *TokenCache) DeleteCredentials(ctx context.Context, userID uuid.UUID) error {
	if c.store != nil {
		if err := c.store.DeleteCredential(ctx, userID); err != nil {
			return err
		}
	}

	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}

// IsValid reports whether the identity holds a token that is still usable.
// The safety margin is already folded into the stored expiry.
func (c *TokenCache) IsValid(userID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[userID]
	if !ok {
		return false
	}
	return e.token.Valid(c.now())
}

// InvalidateToken drops the cached token but keeps the credential record, so
// the next request forces re-issuance without a fresh setup. Called on any
// downstream 401/403.
func (c *TokenCache) InvalidateToken(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[userID]; ok {
		e.token = nil
	}
}

// EnsureValidToken returns a usable bearer token for the identity, issuing a
// new one when the cache is empty or expired. On issuance failure any stale
// token is cleared and the issuance error propagates.
func (c *TokenCache) EnsureValidToken(ctx context.Context, userID uuid.UUID) (string, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	var creds *models.CredentialRecord
	var cached string
	if ok {
		creds = e.creds
		if e.token.Valid(c.now()) {
			cached = e.token.AccessToken
		}
	}
	c.mu.RUnlock()

	if cached != "" {
		return cached, nil
	}

	if !creds.Complete() {
		return "", ErrAuthConfig
	}

	token, err := c.issuer.Issue(ctx, creds)
	if err != nil {
		c.InvalidateToken(userID)
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Token issuance failed")
		return "", err
	}

	c.mu.Lock()
	if e, ok := c.entries[userID]; ok {
		e.token = token
	} else {
		c.entries[userID] = &cacheEntry{creds: creds, token: token}
	}
	c.mu.Unlock()

	log.Info().Str("user_id", userID.String()).Time("expiry", token.Expiry).Msg("Token refreshed")
	return token.AccessToken, nil
}
