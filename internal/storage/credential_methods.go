package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// ========== Credential Methods ==========

// SaveCredential inserts or replaces the credential record for a user. The
// auth header is sealed before it is written.
func (s *PostgresStore) SaveCredential(ctx context.Context, creds *models.CredentialRecord) error {
	now := time.Now()
	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = now
	}
	creds.UpdatedAt = now

	sealed, err := s.sealHeader(creds.AuthHeader)
	if err != nil {
		return fmt.Errorf("seal auth header: %w", err)
	}

	query := `
		INSERT INTO cloud_credentials (user_id, created_at, updated_at,
			identity_url, auth_header, partner_id, api_base, reports_api_base)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			identity_url = EXCLUDED.identity_url,
			auth_header = EXCLUDED.auth_header,
			partner_id = EXCLUDED.partner_id,
			api_base = EXCLUDED.api_base,
			reports_api_base = EXCLUDED.reports_api_base`

	_, err = s.db.ExecContext(ctx, query,
		creds.UserID, creds.CreatedAt, creds.UpdatedAt, creds.IdentityURL,
		sealed, creds.PartnerID, creds.APIBase, creds.ReportsAPIBase)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	return nil
}

// GetCredential retrieves the credential record for a user
func (s *PostgresStore) GetCredential(ctx context.Context, userID uuid.UUID) (*models.CredentialRecord, error) {
	query := `
		SELECT user_id, created_at, updated_at, identity_url, auth_header,
			partner_id, api_base, reports_api_base
		FROM cloud_credentials WHERE user_id = $1`

	creds := &models.CredentialRecord{}
	var sealed string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&creds.UserID, &creds.CreatedAt, &creds.UpdatedAt, &creds.IdentityURL,
		&sealed, &creds.PartnerID, &creds.APIBase, &creds.ReportsAPIBase)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential: %w", err)
	}

	creds.AuthHeader, err = s.openHeader(sealed)
	if err != nil {
		return nil, fmt.Errorf("open auth header: %w", err)
	}

	return creds, nil
}

// DeleteCredential removes the credential record for a user
func (s *PostgresStore) DeleteCredential(ctx context.Context, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cloud_credentials WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListCredentials returns all stored credential records, used to warm the
// token cache at startup.
func (s *PostgresStore) ListCredentials(ctx context.Context) ([]*models.CredentialRecord, error) {
	query := `
		SELECT user_id, created_at, updated_at, identity_url, auth_header,
			partner_id, api_base, reports_api_base
		FROM cloud_credentials ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var records []*models.CredentialRecord
	for rows.Next() {
		creds := &models.CredentialRecord{}
		var sealed string
		err := rows.Scan(&creds.UserID, &creds.CreatedAt, &creds.UpdatedAt,
			&creds.IdentityURL, &sealed, &creds.PartnerID, &creds.APIBase,
			&creds.ReportsAPIBase)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds.AuthHeader, err = s.openHeader(sealed)
		if err != nil {
			return nil, fmt.Errorf("open auth header: %w", err)
		}
		records = append(records, creds)
	}

	return records, rows.Err()
}
