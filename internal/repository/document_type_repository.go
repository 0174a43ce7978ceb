package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

const documentTypeColumns = `id, name, color, active_retention_years, inactive_retention_years, disposition_action, organization_id, created_at, updated_at`

// DocumentTypeRepository persists document classifications.
type DocumentTypeRepository struct {
	db *sqlx.DB
}

// NewDocumentTypeRepository constructs the repository.
func NewDocumentTypeRepository(db *sqlx.DB) *DocumentTypeRepository {
	return &DocumentTypeRepository{db: db}
}

// ListByOrganization returns the organization's types ordered by name.
func (r *DocumentTypeRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.DocumentType, error) {
	query := `SELECT ` + documentTypeColumns + ` FROM document_types WHERE organization_id = $1 ORDER BY name ASC`
	var types []models.DocumentType
	if err := r.db.SelectContext(ctx, &types, query, organizationID); err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	return types, nil
}

// FindByID returns a type only when it belongs to the organization.
func (r *DocumentTypeRepository) FindByID(ctx context.Context, organizationID, id string) (*models.DocumentType, error) {
	query := `SELECT ` + documentTypeColumns + ` FROM document_types WHERE id = $1 AND organization_id = $2`
	var docType models.DocumentType
	if err := r.db.GetContext(ctx, &docType, query, id, organizationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document type: %w", err)
	}
	return &docType, nil
}

// Create inserts a document type.
func (r *DocumentTypeRepository) Create(ctx context.Context, docType *models.DocumentType) error {
	if docType.ID == "" {
		docType.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	docType.CreatedAt, docType.UpdatedAt = now, now
	const query = `INSERT INTO document_types (id, name, color, active_retention_years, inactive_retention_years, disposition_action, organization_id, created_at, updated_at)
VALUES (:id, :name, :color, :active_retention_years, :inactive_retention_years, :disposition_action, :organization_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, docType); err != nil {
		if isUniqueViolation(err, "") {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("document type %q already exists", docType.Name))
		}
		return fmt.Errorf("create document type: %w", err)
	}
	return nil
}

// Update rewrites the type's schedule. Documents keep the snapshot stamped at their creation.
func (r *DocumentTypeRepository) Update(ctx context.Context, docType *models.DocumentType) error {
	docType.UpdatedAt = time.Now().UTC()
	const query = `UPDATE document_types SET name = :name, color = :color, active_retention_years = :active_retention_years,
inactive_retention_years = :inactive_retention_years, disposition_action = :disposition_action, updated_at = :updated_at
WHERE id = :id AND organization_id = :organization_id`
	res, err := r.db.NamedExecContext(ctx, query, docType)
	if err != nil {
		if isUniqueViolation(err, "") {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("document type %q already exists", docType.Name))
		}
		return fmt.Errorf("update document type: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document type update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a type. Documents referencing it keep their snapshot and lose the reference.
func (r *DocumentTypeRepository) Delete(ctx context.Context, organizationID, id string) error {
	const query = `DELETE FROM document_types WHERE id = $1 AND organization_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("delete document type: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document type delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
