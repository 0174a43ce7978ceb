package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

const tagColumns = `t.id, t.name, t.is_global, t.is_locked, t.organization_id, t.created_at`

// TagRepository persists global and organization tags.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository constructs the repository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// ListGlobal returns the seeded global tags.
func (r *TagRepository) ListGlobal(ctx context.Context) ([]models.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags t WHERE t.is_global ORDER BY t.name ASC`
	var tags []models.Tag
	if err := r.db.SelectContext(ctx, &tags, query); err != nil {
		return nil, fmt.Errorf("list global tags: %w", err)
	}
	return tags, nil
}

// ListByOrganization returns the organization's own tags with their document counts.
func (r *TagRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.Tag, error) {
	query := `SELECT ` + tagColumns + `, COUNT(d.id) AS document_count
FROM tags t
LEFT JOIN document_tags dt ON dt.tag_id = t.id
LEFT JOIN documents d ON d.id = dt.document_id AND d.organization_id = $1
WHERE t.organization_id = $1
GROUP BY t.id
ORDER BY t.name ASC`
	var tags []models.Tag
	if err := r.db.SelectContext(ctx, &tags, query, organizationID); err != nil {
		return nil, fmt.Errorf("list organization tags: %w", err)
	}
	return tags, nil
}

// FindByID returns any tag by id.
func (r *TagRepository) FindByID(ctx context.Context, id string) (*models.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags t WHERE t.id = $1`
	var tag models.Tag
	if err := r.db.GetContext(ctx, &tag, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tag: %w", err)
	}
	return &tag, nil
}

// FindUsable returns the requested tags that are global or owned by the organization.
func (r *TagRepository) FindUsable(ctx context.Context, organizationID string, ids []string) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + tagColumns + ` FROM tags t WHERE t.id = ANY($1) AND (t.is_global OR t.organization_id = $2)`
	var tags []models.Tag
	if err := r.db.SelectContext(ctx, &tags, query, pq.Array(ids), organizationID); err != nil {
		return nil, fmt.Errorf("find usable tags: %w", err)
	}
	return tags, nil
}

// Create inserts an organization tag.
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	tag.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO tags (id, name, is_global, is_locked, organization_id, created_at)
VALUES (:id, :name, :is_global, :is_locked, :organization_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tag); err != nil {
		if isUniqueViolation(err, "") {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("tag %q already exists", tag.Name))
		}
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// Rename changes the name of an unlocked organization tag.
func (r *TagRepository) Rename(ctx context.Context, organizationID, id, name string) error {
	const query = `UPDATE tags SET name = $3 WHERE id = $1 AND organization_id = $2 AND NOT is_global AND NOT is_locked`
	res, err := r.db.ExecContext(ctx, query, id, organizationID, name)
	if err != nil {
		if isUniqueViolation(err, "") {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("tag %q already exists", name))
		}
		return fmt.Errorf("rename tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check tag rename rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an organization tag. The tag row stays locked while usage by
// other organizations is checked so no document can attach it in between.
func (r *TagRepository) Delete(ctx context.Context, organizationID, id string) (tag *models.Tag, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tag delete transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked models.Tag
	lockQuery := `SELECT ` + tagColumns + ` FROM tags t WHERE t.id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &locked, lockQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock tag: %w", err)
	}
	if locked.IsProtected() {
		err = appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("tag %q is global or locked and cannot be deleted", locked.Name))
		return nil, err
	}
	if locked.OrganizationID == nil || *locked.OrganizationID != organizationID {
		err = sql.ErrNoRows
		return nil, err
	}

	var foreignUses int
	const usage = `SELECT COUNT(*) FROM document_tags dt JOIN documents d ON d.id = dt.document_id
WHERE dt.tag_id = $1 AND d.organization_id <> $2`
	if err = tx.GetContext(ctx, &foreignUses, usage, id, organizationID); err != nil {
		return nil, fmt.Errorf("check tag usage: %w", err)
	}
	if foreignUses > 0 {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("tag %q is used by %d document(s) of other organizations", locked.Name, foreignUses))
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM document_tags WHERE tag_id = $1`, id); err != nil {
		return nil, fmt.Errorf("detach tag: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete tag: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tag delete: %w", err)
	}
	return &locked, nil
}
