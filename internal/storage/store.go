package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store defines the storage interface
type Store interface {
	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error)

	// Credential methods (auth header sealed at rest)
	SaveCredential(ctx context.Context, creds *models.CredentialRecord) error
	GetCredential(ctx context.Context, userID uuid.UUID) (*models.CredentialRecord, error)
	DeleteCredential(ctx context.Context, userID uuid.UUID) error
	ListCredentials(ctx context.Context) ([]*models.CredentialRecord, error)

	// Report snapshot methods
	CreateReportSnapshot(ctx context.Context, snapshot *models.ReportSnapshot) error
	ListReportSnapshots(ctx context.Context, filters ReportFilters, limit, offset int) ([]*models.ReportSnapshot, int64, error)

	// Event log methods
	CreateEventLog(ctx context.Context, event *models.EventLog) error
	ListEventLogs(ctx context.Context, filters EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error)

	// Close the store
	Close() error
}

// ReportFilters represents filters for report snapshots
type ReportFilters struct {
	UserID     *uuid.UUID
	CustomerID string
	LocationID string
	Type       *models.ReportType
}

// EventLogFilters represents filters for event logs
type EventLogFilters struct {
	UserID     *uuid.UUID
	CustomerID string
	LocationID string
	Type       *models.EventType
	Level      *models.EventLevel
	StartTime  *time.Time
	EndTime    *time.Time
}
