package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/panoptes-nms/panoptes-server/internal/models"
	"github.com/panoptes-nms/panoptes-server/pkg/crypto"
)

// ========== User Methods ==========

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	// Hash password if provided via settings
	if password, ok := user.Settings["password"].(string); ok && password != "" {
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		delete(user.Settings, "password")
	}

	query := `
		INSERT INTO users (id, created_at, updated_at, email, username,
			first_name, last_name, password_hash, is_admin, is_active, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.Username,
		user.FirstName, user.LastName, user.PasswordHash, user.IsAdmin,
		user.IsActive, user.Settings)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, created_at, updated_at, email, username, first_name,
			last_name, password_hash, is_admin, is_active, last_login_at, settings
		FROM users WHERE id = $1`

	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, created_at, updated_at, email, username, first_name,
			last_name, password_hash, is_admin, is_active, last_login_at, settings
		FROM users WHERE email = $1`

	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email,
		&user.Username, &user.FirstName, &user.LastName, &user.PasswordHash,
		&user.IsAdmin, &user.IsActive, &user.LastLoginAt, &user.Settings)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// UpdateUser updates an existing user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	// Re-hash password if a new one was provided via settings
	if password, ok := user.Settings["password"].(string); ok && password != "" {
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		delete(user.Settings, "password")
	}

	query := `
		UPDATE users SET updated_at = $2, email = $3, username = $4,
			first_name = $5, last_name = $6, password_hash = $7,
			is_admin = $8, is_active = $9, last_login_at = $10, settings = $11
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.Username, user.FirstName,
		user.LastName, user.PasswordHash, user.IsAdmin, user.IsActive,
		user.LastLoginAt, user.Settings)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteUser deletes a user by ID
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListUsers lists users with pagination
func (s *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `
		SELECT id, created_at, updated_at, email, username, first_name,
			last_name, password_hash, is_admin, is_active, last_login_at, settings
		FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email,
			&user.Username, &user.FirstName, &user.LastName, &user.PasswordHash,
			&user.IsAdmin, &user.IsActive, &user.LastLoginAt, &user.Settings)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, total, rows.Err()
}
