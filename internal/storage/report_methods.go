package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// CreateReportSnapshot stores one analyzer run
func (s *PostgresStore) CreateReportSnapshot(ctx context.Context, snapshot *models.ReportSnapshot) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}

	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO report_snapshots (
			id, created_at, user_id, customer_id, location_id,
			type, summary, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		snapshot.ID, snapshot.CreatedAt, snapshot.UserID, snapshot.CustomerID,
		snapshot.LocationID, snapshot.Type, snapshot.Summary, snapshot.Details,
	)

	return err
}

// ListReportSnapshots lists stored reports with filters
func (s *PostgresStore) ListReportSnapshots(ctx context.Context, filters ReportFilters, limit, offset int) ([]*models.ReportSnapshot, int64, error) {
	query := "SELECT COUNT(*) FROM report_snapshots WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.UserID != nil {
		argCount++
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, *filters.UserID)
	}

	if filters.CustomerID != "" {
		argCount++
		query += fmt.Sprintf(" AND customer_id = $%d", argCount)
		args = append(args, filters.CustomerID)
	}

	if filters.LocationID != "" {
		argCount++
		query += fmt.Sprintf(" AND location_id = $%d", argCount)
		args = append(args, filters.LocationID)
	}

	if filters.Type != nil {
		argCount++
		query += fmt.Sprintf(" AND type = $%d", argCount)
		args = append(args, *filters.Type)
	}

	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	selectQuery := strings.Replace(query, "SELECT COUNT(*)",
		"SELECT id, created_at, user_id, customer_id, location_id, type, summary, details", 1)

	argCount++
	selectQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	argCount++
	selectQuery += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var snapshots []*models.ReportSnapshot
	for rows.Next() {
		snapshot := &models.ReportSnapshot{}

		err := rows.Scan(
			&snapshot.ID, &snapshot.CreatedAt, &snapshot.UserID,
			&snapshot.CustomerID, &snapshot.LocationID, &snapshot.Type,
			&snapshot.Summary, &snapshot.Details,
		)
		if err != nil {
			return nil, 0, err
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, count, nil
}
