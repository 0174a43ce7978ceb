package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

const (
	documentColumns = `d.id, d.title, d.storage_key, d.storage_bucket, d.file_type, d.file_size, d.organization_id,
       d.uploaded_by_id, d.held_by_id, d.document_type_id, d.active_retention_snapshot, d.inactive_retention_snapshot,
       d.disposition_action_snapshot, d.disposition_status, d.disposition_executed_at, d.control_number, d.in_transit,
       d.intended_holder_id, d.review_requester_id, d.created_at, d.updated_at`

	controlNumberIndex = "documents_org_control_number_idx"

	defaultDocumentPageSize = 25
	maxDocumentPageSize     = 100
	maxRegisterRows         = 5000

	activeEnds   = "(d.created_at + make_interval(years => d.active_retention_snapshot))"
	inactiveEnds = "(d.created_at + make_interval(years => d.active_retention_snapshot) + make_interval(years => d.inactive_retention_snapshot))"
)

// DocumentRepository persists documents, their tags and their transfer state.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// DocumentTagRow pairs a tag with the document carrying it.
type DocumentTagRow struct {
	DocumentID string `db:"document_id"`
	models.Tag
}

// TransferParams describes a send of one or more documents to a recipient.
type TransferParams struct {
	OrganizationID string
	DocumentIDs    []string
	RecipientID    string
	TagIDs         []string
	// TagsToKeep are currently attached tags that survive the transfer. Every other tag is detached.
	TagsToKeep []string
	// ReviewRequesterID is recorded when the transfer asks the recipient for a review.
	ReviewRequesterID *string
}

// ReviewParams records a review outcome on a document.
type ReviewParams struct {
	Remark      *models.Remark
	StatusTagID string
	// DetachTagIDs are removed before the status tag is attached.
	DetachTagIDs []string
	// Forward puts the reviewed document in transit inside the review transaction.
	Forward *ReviewForward
}

// ReviewForward sends a reviewed document on without touching its tags.
type ReviewForward struct {
	OrganizationID string
	RecipientID    string
	Authorize      func(models.Document) error
}

// Create inserts a document with its retention snapshot.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	const query = `INSERT INTO documents
	(id, title, storage_key, storage_bucket, file_type, file_size, organization_id, uploaded_by_id, held_by_id, document_type_id,
	 active_retention_snapshot, inactive_retention_snapshot, disposition_action_snapshot, control_number, in_transit, created_at, updated_at)
	VALUES (:id, :title, :storage_key, :storage_bucket, :file_type, :file_size, :organization_id, :uploaded_by_id, :held_by_id, :document_type_id,
	 :active_retention_snapshot, :inactive_retention_snapshot, :disposition_action_snapshot, :control_number, :in_transit, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		if isUniqueViolation(err, controlNumberIndex) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("control number %q is already used", derefString(doc.ControlNumber)))
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID returns a document only when it belongs to the organization.
func (r *DocumentRepository) FindByID(ctx context.Context, organizationID, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents d WHERE d.id = $1 AND d.organization_id = $2`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id, organizationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &doc, nil
}

// FindByControlNumber resolves a document by its human-entered control number.
func (r *DocumentRepository) FindByControlNumber(ctx context.Context, organizationID, controlNumber string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents d WHERE d.organization_id = $1 AND d.control_number = $2`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, organizationID, controlNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by control number: %w", err)
	}
	return &doc, nil
}

// List returns one page of documents matching the filter and the total match count.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	where, args := documentConditions(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultDocumentPageSize
	}
	if perPage > maxDocumentPageSize {
		perPage = maxDocumentPageSize
	}

	listQuery := fmt.Sprintf("SELECT %s FROM documents d WHERE %s ORDER BY d.created_at DESC, d.id ASC LIMIT %d OFFSET %d",
		documentColumns, where, perPage, (page-1)*perPage)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM documents d WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return docs, total, nil
}

// ListRegister returns the retention register rows for export.
func (r *DocumentRepository) ListRegister(ctx context.Context, filter models.DocumentFilter) ([]models.RegisterEntry, error) {
	where, args := documentConditions(filter)
	query := fmt.Sprintf(`SELECT %s, dt.name AS document_type_name,
       TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, '')) AS holder_name
FROM documents d
LEFT JOIN document_types dt ON dt.id = d.document_type_id
LEFT JOIN users u ON u.id = d.held_by_id
WHERE %s
ORDER BY d.created_at ASC, d.id ASC
LIMIT %d`, documentColumns, where, maxRegisterRows)
	var entries []models.RegisterEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list retention register: %w", err)
	}
	return entries, nil
}

// documentConditions builds the organization, scope and lifecycle predicates shared by listings.
func documentConditions(filter models.DocumentFilter) (string, []interface{}) {
	args := []interface{}{filter.OrganizationID}
	conditions := []string{"d.organization_id = $1"}

	if filter.ScopeUserID != "" {
		args = append(args, filter.ScopeUserID)
		conditions = append(conditions, fmt.Sprintf("(d.uploaded_by_id = $%d OR d.held_by_id = $%d)", len(args), len(args)))
	}
	if filter.DocumentTypeID != "" {
		args = append(args, filter.DocumentTypeID)
		conditions = append(conditions, fmt.Sprintf("d.document_type_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(d.title ILIKE $%d OR d.control_number ILIKE $%d)", len(args), len(args)))
	}
	if filter.Lifecycle != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		args = append(args, now)
		conditions = append(conditions, lifecycleCondition(*filter.Lifecycle, fmt.Sprintf("$%d", len(args))))
	}
	return strings.Join(conditions, " AND "), args
}

// lifecycleCondition mirrors models.DeriveLifecycleStatus in SQL so filtering happens before pagination.
func lifecycleCondition(status models.LifecycleStatus, now string) string {
	switch status {
	case models.LifecycleArchived:
		return "d.disposition_status = 'ARCHIVED'"
	case models.LifecycleDestroyed:
		return "d.disposition_status = 'DESTROYED'"
	case models.LifecycleInactive:
		return fmt.Sprintf("(d.disposition_status IS NULL AND d.active_retention_snapshot IS NOT NULL AND %s >= %s AND %s < %s)",
			now, activeEnds, now, inactiveEnds)
	case models.LifecycleReadyForDisposition:
		return fmt.Sprintf("(d.disposition_status IS NULL AND d.active_retention_snapshot IS NOT NULL AND %s >= %s)", now, inactiveEnds)
	default:
		return fmt.Sprintf("(d.disposition_status IS NULL AND (d.active_retention_snapshot IS NULL OR %s < %s))", now, activeEnds)
	}
}

// lifecycleCase labels each row with its derived lifecycle status.
func lifecycleCase(now string) string {
	return fmt.Sprintf(`CASE
	WHEN d.disposition_status = 'ARCHIVED' THEN '%s'
	WHEN d.disposition_status = 'DESTROYED' THEN '%s'
	WHEN d.active_retention_snapshot IS NULL OR %s < %s THEN '%s'
	WHEN %s < %s THEN '%s'
	ELSE '%s'
END`, models.LifecycleArchived, models.LifecycleDestroyed,
		now, activeEnds, models.LifecycleActive,
		now, inactiveEnds, models.LifecycleInactive,
		models.LifecycleReadyForDisposition)
}

// TagsFor loads the tags of several documents in one query.
func (r *DocumentRepository) TagsFor(ctx context.Context, documentIDs []string) ([]DocumentTagRow, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT dt.document_id, t.id, t.name, t.is_global, t.is_locked, t.organization_id, t.created_at
FROM document_tags dt
JOIN tags t ON t.id = dt.tag_id
WHERE dt.document_id = ANY($1)
ORDER BY t.name ASC`
	var rows []DocumentTagRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(documentIDs)); err != nil {
		return nil, fmt.Errorf("load document tags: %w", err)
	}
	return rows, nil
}

// Transfer puts every document in transit to the recipient inside one transaction.
// authorize runs against each locked row; the first error aborts the whole batch.
func (r *DocumentRepository) Transfer(ctx context.Context, params TransferParams, authorize func(models.Document) error) (docs []models.Document, err error) {
	if len(params.DocumentIDs) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if docs, err = markInTransit(ctx, tx, params, authorize, now); err != nil {
		return nil, err
	}

	ids := pq.Array(params.DocumentIDs)
	const detach = `DELETE FROM document_tags WHERE document_id = ANY($1) AND NOT (tag_id = ANY($2))`
	if _, err = tx.ExecContext(ctx, detach, ids, pq.Array(nonNil(params.TagsToKeep))); err != nil {
		return nil, fmt.Errorf("detach document tags: %w", err)
	}
	if len(params.TagIDs) > 0 {
		const attach = `INSERT INTO document_tags (document_id, tag_id)
SELECT doc_id, tag_id FROM unnest($1::uuid[]) AS doc_id CROSS JOIN unnest($2::uuid[]) AS tag_id
ON CONFLICT DO NOTHING`
		if _, err = tx.ExecContext(ctx, attach, ids, pq.Array(params.TagIDs)); err != nil {
			return nil, fmt.Errorf("attach document tags: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}
	return docs, nil
}

// markInTransit locks the documents, runs authorize on each and flags them in
// transit to the recipient. The returned rows reflect the update.
func markInTransit(ctx context.Context, tx *sqlx.Tx, params TransferParams, authorize func(models.Document) error, now time.Time) ([]models.Document, error) {
	ids := pq.Array(params.DocumentIDs)
	var docs []models.Document
	lockQuery := `SELECT ` + documentColumns + ` FROM documents d WHERE d.organization_id = $1 AND d.id = ANY($2) ORDER BY d.id FOR UPDATE`
	if err := tx.SelectContext(ctx, &docs, lockQuery, params.OrganizationID, ids); err != nil {
		return nil, fmt.Errorf("lock documents: %w", err)
	}
	if missing := missingIDs(params.DocumentIDs, docs); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found", missing[0]))
	}
	for _, doc := range docs {
		if err := authorize(doc); err != nil {
			return nil, err
		}
	}

	const update = `UPDATE documents SET in_transit = TRUE, intended_holder_id = $2,
review_requester_id = COALESCE($3, review_requester_id), updated_at = $4
WHERE id = ANY($1)`
	if _, err := tx.ExecContext(ctx, update, ids, params.RecipientID, params.ReviewRequesterID, now); err != nil {
		return nil, fmt.Errorf("mark documents in transit: %w", err)
	}

	for i := range docs {
		recipient := params.RecipientID
		docs[i].InTransit = true
		docs[i].IntendedHolderID = &recipient
		if params.ReviewRequesterID != nil {
			requester := *params.ReviewRequesterID
			docs[i].ReviewRequesterID = &requester
		}
		docs[i].UpdatedAt = now
	}
	return docs, nil
}

// Receive completes a transfer for the intended holder. It returns sql.ErrNoRows
// when the document is no longer in transit to the receiver.
func (r *DocumentRepository) Receive(ctx context.Context, organizationID, id, receiverID string) (*models.Document, error) {
	query := `UPDATE documents d SET held_by_id = $3, in_transit = FALSE, intended_holder_id = NULL, updated_at = $4
WHERE d.id = $1 AND d.organization_id = $2 AND d.in_transit AND d.intended_holder_id = $3
RETURNING ` + documentColumns
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id, organizationID, receiverID, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("receive document: %w", err)
	}
	return &doc, nil
}

// RecordReview stores the remark and swaps the status tags in one transaction.
// With a Forward it also puts the document in transit and returns it; a failed
// forward rolls the whole review back.
func (r *DocumentRepository) RecordReview(ctx context.Context, params ReviewParams) (forwarded *models.Document, err error) {
	remark := params.Remark
	if remark.ID == "" {
		remark.ID = uuid.NewString()
	}
	if remark.CreatedAt.IsZero() {
		remark.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertRemark = `INSERT INTO remarks (id, document_id, author_id, status, content, created_at)
VALUES (:id, :document_id, :author_id, :status, :content, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertRemark, remark); err != nil {
		return nil, fmt.Errorf("insert remark: %w", err)
	}
	if len(params.DetachTagIDs) > 0 {
		const detach = `DELETE FROM document_tags WHERE document_id = $1 AND tag_id = ANY($2)`
		if _, err = tx.ExecContext(ctx, detach, remark.DocumentID, pq.Array(params.DetachTagIDs)); err != nil {
			return nil, fmt.Errorf("detach review tags: %w", err)
		}
	}
	const attach = `INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err = tx.ExecContext(ctx, attach, remark.DocumentID, params.StatusTagID); err != nil {
		return nil, fmt.Errorf("attach review status tag: %w", err)
	}
	const clearRequester = `UPDATE documents SET review_requester_id = NULL, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, clearRequester, remark.DocumentID, remark.CreatedAt); err != nil {
		return nil, fmt.Errorf("clear review requester: %w", err)
	}

	if params.Forward != nil {
		var docs []models.Document
		docs, err = markInTransit(ctx, tx, TransferParams{
			OrganizationID: params.Forward.OrganizationID,
			DocumentIDs:    []string{remark.DocumentID},
			RecipientID:    params.Forward.RecipientID,
		}, params.Forward.Authorize, remark.CreatedAt)
		if err != nil {
			return nil, err
		}
		forwarded = &docs[0]
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}
	return forwarded, nil
}

// MarkDisposition records an executed disposition. It returns sql.ErrNoRows when
// a disposition was already recorded.
func (r *DocumentRepository) MarkDisposition(ctx context.Context, organizationID, id string, status models.DispositionStatus, executedAt time.Time) error {
	const query = `UPDATE documents SET disposition_status = $3, disposition_executed_at = $4, updated_at = $4
WHERE id = $1 AND organization_id = $2 AND disposition_status IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, organizationID, status, executedAt)
	if err != nil {
		return fmt.Errorf("mark disposition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check disposition rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the document row. Tags and remarks cascade.
func (r *DocumentRepository) Delete(ctx context.Context, organizationID, id string) error {
	const query = `DELETE FROM documents WHERE id = $1 AND organization_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func missingIDs(want []string, docs []models.Document) []string {
	found := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		found[doc.ID] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
