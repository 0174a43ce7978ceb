package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/folio-api/internal/models"
)

// LogRepository persists the append-only audit trail.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository constructs the repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// CreateMany appends entries with a single multi-row insert.
func (r *LogRepository) CreateMany(ctx context.Context, entries []models.Log) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO logs (id, user_id, organization_id, action, user_role, target_name, created_at)
VALUES (:id, :user_id, :organization_id, :action, :user_role, :target_name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entries); err != nil {
		return fmt.Errorf("create audit logs: %w", err)
	}
	return nil
}

// List returns one page of the organization's logs newest first with the total count.
func (r *LogRepository) List(ctx context.Context, filter models.LogFilter) ([]models.Log, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := fmt.Sprintf(`SELECT l.id, l.user_id,
       NULLIF(TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, '')), '') AS user_name,
       l.organization_id, l.action, l.user_role, l.target_name, l.created_at
FROM logs l
LEFT JOIN users u ON u.id = l.user_id
WHERE l.organization_id = $1
ORDER BY l.created_at DESC, l.id DESC
LIMIT %d OFFSET %d`, limit, (page-1)*limit)
	var logs []models.Log
	if err := r.db.SelectContext(ctx, &logs, query, filter.OrganizationID); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM logs WHERE organization_id = $1`, filter.OrganizationID); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return logs, total, nil
}
