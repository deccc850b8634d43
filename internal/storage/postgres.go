package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/panoptes-nms/panoptes-server/pkg/crypto"
)

// PostgresStore implements Store interface for PostgreSQL
type PostgresStore struct {
	db *sql.DB

	// sealKey encrypts credential auth headers at rest; nil stores them
	// as-is.
	sealKey []byte
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string, sealKey []byte) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{db: db, sealKey: sealKey}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// migrate creates the schema when missing
func (s *PostgresStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_login_at TIMESTAMPTZ,
			settings JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS cloud_credentials (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			identity_url TEXT NOT NULL,
			auth_header TEXT NOT NULL,
			partner_id TEXT NOT NULL,
			api_base TEXT NOT NULL DEFAULT '',
			reports_api_base TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS report_snapshots (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			user_id UUID NOT NULL,
			customer_id TEXT NOT NULL,
			location_id TEXT NOT NULL,
			type TEXT NOT NULL,
			summary TEXT NOT NULL,
			details JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_snapshots_location
			ON report_snapshots (user_id, customer_id, location_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS event_logs (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			user_id UUID,
			customer_id TEXT NOT NULL DEFAULT '',
			location_id TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			level TEXT NOT NULL,
			description TEXT NOT NULL,
			details JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_logs_created ON event_logs (created_at DESC)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// sealHeader protects an auth header before it hits the database.
func (s *PostgresStore) sealHeader(header string) (string, error) {
	if len(s.sealKey) == 0 {
		return header, nil
	}
	return crypto.Seal(s.sealKey, header)
}

// openHeader reverses sealHeader.
func (s *PostgresStore) openHeader(sealed string) (string, error) {
	if len(s.sealKey) == 0 {
		return sealed, nil
	}
	return crypto.Open(s.sealKey, sealed)
}
