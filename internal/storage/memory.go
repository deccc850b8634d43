package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/panoptes-nms/panoptes-server/internal/models"
	"github.com/panoptes-nms/panoptes-server/pkg/crypto"
)

// MemoryStore is an in-memory Store implementation used by tests and by the
// server when no database is configured. Data does not survive a restart.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[uuid.UUID]*models.User
	credentials map[uuid.UUID]*models.CredentialRecord
	snapshots   []*models.ReportSnapshot
	events      []*models.EventLog
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[uuid.UUID]*models.User),
		credentials: make(map[uuid.UUID]*models.CredentialRecord),
	}
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

// ========== User Methods ==========

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if password, ok := user.Settings["password"].(string); ok && password != "" {
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		delete(user.Settings, "password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrDuplicateKey
		}
	}

	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	if password, ok := user.Settings["password"].(string); ok && password != "" {
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		delete(user.Settings, "password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}

	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return ErrDuplicateKey
		}
	}

	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	delete(s.credentials, id)
	return nil
}

func (s *MemoryStore) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		cp := *user
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	return paginate(all, limit, offset), total, nil
}

// ========== Credential Methods ==========

func (s *MemoryStore) SaveCredential(ctx context.Context, creds *models.CredentialRecord) error {
	now := time.Now()
	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = now
	}
	creds.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *creds
	s.credentials[creds.UserID] = &cp
	return nil
}

func (s *MemoryStore) GetCredential(ctx context.Context, userID uuid.UUID) (*models.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds, ok := s.credentials[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *creds
	return &cp, nil
}

func (s *MemoryStore) DeleteCredential(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[userID]; !ok {
		return ErrNotFound
	}
	delete(s.credentials, userID)
	return nil
}

func (s *MemoryStore) ListCredentials(ctx context.Context) ([]*models.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.CredentialRecord, 0, len(s.credentials))
	for _, creds := range s.credentials {
		cp := *creds
		records = append(records, &cp)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// ========== Report Snapshot Methods ==========

func (s *MemoryStore) CreateReportSnapshot(ctx context.Context, snapshot *models.ReportSnapshot) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snapshot
	s.snapshots = append(s.snapshots, &cp)
	return nil
}

func (s *MemoryStore) ListReportSnapshots(ctx context.Context, filters ReportFilters, limit, offset int) ([]*models.ReportSnapshot, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.ReportSnapshot
	for _, snap := range s.snapshots {
		if filters.UserID != nil && snap.UserID != *filters.UserID {
			continue
		}
		if filters.CustomerID != "" && snap.CustomerID != filters.CustomerID {
			continue
		}
		if filters.LocationID != "" && snap.LocationID != filters.LocationID {
			continue
		}
		if filters.Type != nil && snap.Type != *filters.Type {
			continue
		}
		cp := *snap
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return paginate(matched, limit, offset), total, nil
}

// ========== Event Log Methods ==========

func (s *MemoryStore) CreateEventLog(ctx context.Context, event *models.EventLog) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *MemoryStore) ListEventLogs(ctx context.Context, filters EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.EventLog
	for _, event := range s.events {
		if filters.UserID != nil && (event.UserID == nil || *event.UserID != *filters.UserID) {
			continue
		}
		if filters.CustomerID != "" && event.CustomerID != filters.CustomerID {
			continue
		}
		if filters.LocationID != "" && event.LocationID != filters.LocationID {
			continue
		}
		if filters.Type != nil && event.Type != *filters.Type {
			continue
		}
		if filters.Level != nil && event.Level != *filters.Level {
			continue
		}
		if filters.StartTime != nil && event.CreatedAt.Before(*filters.StartTime) {
			continue
		}
		if filters.EndTime != nil && event.CreatedAt.After(*filters.EndTime) {
			continue
		}
		cp := *event
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return paginate(matched, limit, offset), total, nil
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
