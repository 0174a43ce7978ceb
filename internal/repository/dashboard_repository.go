package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/folio-api/internal/models"
)

// DashboardRepository exposes read-optimised aggregate queries for the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// DocumentTotals returns the total document count and the count created since the given instant.
func (r *DashboardRepository) DocumentTotals(ctx context.Context, filter models.DocumentFilter, since time.Time) (total int, recent int, err error) {
	where, args := documentConditions(models.DocumentFilter{OrganizationID: filter.OrganizationID, ScopeUserID: filter.ScopeUserID})
	args = append(args, since)
	query := fmt.Sprintf(`SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE d.created_at >= $%d) AS recent FROM documents d WHERE %s`, len(args), where)
	var row struct {
		Total  int `db:"total"`
		Recent int `db:"recent"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return 0, 0, fmt.Errorf("count dashboard documents: %w", err)
	}
	return row.Total, row.Recent, nil
}

// RecentFiles returns the newest documents.
func (r *DashboardRepository) RecentFiles(ctx context.Context, filter models.DocumentFilter, limit int) ([]models.RecentFile, error) {
	where, args := documentConditions(models.DocumentFilter{OrganizationID: filter.OrganizationID, ScopeUserID: filter.ScopeUserID})
	query := fmt.Sprintf(`SELECT d.id, d.title, d.file_type, d.created_at FROM documents d WHERE %s ORDER BY d.created_at DESC LIMIT %d`, where, limit)
	var files []models.RecentFile
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("list recent files: %w", err)
	}
	return files, nil
}

// CountUsers returns the number of organization members.
func (r *DashboardRepository) CountUsers(ctx context.Context, organizationID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE organization_id = $1`, organizationID); err != nil {
		return 0, fmt.Errorf("count organization users: %w", err)
	}
	return total, nil
}

// TopTags returns the most used tags across the visible documents.
func (r *DashboardRepository) TopTags(ctx context.Context, filter models.DocumentFilter, limit int) ([]models.TagUsage, error) {
	where, args := documentConditions(models.DocumentFilter{OrganizationID: filter.OrganizationID, ScopeUserID: filter.ScopeUserID})
	query := fmt.Sprintf(`SELECT t.id, t.name, COUNT(*) AS count
FROM document_tags dt
JOIN documents d ON d.id = dt.document_id
JOIN tags t ON t.id = dt.tag_id
WHERE %s
GROUP BY t.id, t.name
ORDER BY count DESC, t.name ASC
LIMIT %d`, where, limit)
	var usage []models.TagUsage
	if err := r.db.SelectContext(ctx, &usage, query, args...); err != nil {
		return nil, fmt.Errorf("list top tags: %w", err)
	}
	return usage, nil
}

// LifecycleCounts groups the visible documents by derived lifecycle status at now.
func (r *DashboardRepository) LifecycleCounts(ctx context.Context, filter models.DocumentFilter, now time.Time) (map[models.LifecycleStatus]int, error) {
	where, args := documentConditions(models.DocumentFilter{OrganizationID: filter.OrganizationID, ScopeUserID: filter.ScopeUserID})
	args = append(args, now)
	query := fmt.Sprintf(`SELECT %s AS status, COUNT(*) AS count FROM documents d WHERE %s GROUP BY 1`,
		lifecycleCase(fmt.Sprintf("$%d", len(args))), where)
	var rows []struct {
		Status models.LifecycleStatus `db:"status"`
		Count  int                    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count lifecycle statuses: %w", err)
	}
	counts := map[models.LifecycleStatus]int{
		models.LifecycleActive:              0,
		models.LifecycleInactive:            0,
		models.LifecycleReadyForDisposition: 0,
		models.LifecycleArchived:            0,
		models.LifecycleDestroyed:           0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
