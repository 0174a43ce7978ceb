package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/folio-api/internal/models"
)

// RemarkRepository reads a document's review trail.
type RemarkRepository struct {
	db *sqlx.DB
}

// NewRemarkRepository constructs the repository.
func NewRemarkRepository(db *sqlx.DB) *RemarkRepository {
	return &RemarkRepository{db: db}
}

// ListByDocument returns remarks newest first with their author names.
func (r *RemarkRepository) ListByDocument(ctx context.Context, documentID string) ([]models.Remark, error) {
	const query = `SELECT rm.id, rm.document_id, rm.author_id,
       TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, '')) AS author_name,
       rm.status, rm.content, rm.created_at
FROM remarks rm
LEFT JOIN users u ON u.id = rm.author_id
WHERE rm.document_id = $1
ORDER BY rm.created_at DESC`
	var remarks []models.Remark
	if err := r.db.SelectContext(ctx, &remarks, query, documentID); err != nil {
		return nil, fmt.Errorf("list remarks: %w", err)
	}
	return remarks, nil
}
