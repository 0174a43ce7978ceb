package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/repository"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/export"
)

const (
	defaultDocumentPerPage = 25
	maxDocumentPerPage     = 100
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, organizationID, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error)
	ListRegister(ctx context.Context, filter models.DocumentFilter) ([]models.RegisterEntry, error)
	TagsFor(ctx context.Context, documentIDs []string) ([]repository.DocumentTagRow, error)
	MarkDisposition(ctx context.Context, organizationID, id string, status models.DispositionStatus, executedAt time.Time) error
	Delete(ctx context.Context, organizationID, id string) error
}

type documentTypeFinder interface {
	FindByID(ctx context.Context, organizationID, id string) (*models.DocumentType, error)
}

type documentStorage interface {
	Bucket() string
	Exists(ref ObjectRef) (bool, error)
	SignedURL(ref ObjectRef) (*dto.SignedURLResponse, error)
	Remove(ref ObjectRef) error
	RemoveEventually(ref ObjectRef)
}

// ExportResult is a rendered retention register.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// DocumentServiceParams groups constructor dependencies.
type DocumentServiceParams struct {
	Documents documentRepository
	Types     documentTypeFinder
	Storage   documentStorage
	Audit     *AuditService
	Dashboard *DashboardService
	Metrics   *MetricsService
	Exporters map[string]export.Renderer
	Validator *validator.Validate
	Logger    *zap.Logger
}

// DocumentService registers documents, lists them within the caller's scope and
// executes retention dispositions.
type DocumentService struct {
	docs      documentRepository
	types     documentTypeFinder
	storage   documentStorage
	audit     *AuditService
	dashboard *DashboardService
	metrics   *MetricsService
	exporters map[string]export.Renderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDocumentService constructs the document service.
func NewDocumentService(params DocumentServiceParams) *DocumentService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	exporters := params.Exporters
	if exporters == nil {
		exporters = map[string]export.Renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		}
	}
	return &DocumentService{
		docs:      params.Documents,
		types:     params.Types,
		storage:   params.Storage,
		audit:     params.Audit,
		dashboard: params.Dashboard,
		metrics:   params.Metrics,
		exporters: exporters,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateDocumentRecord registers an uploaded object as a document. The type's
// retention schedule is copied onto the document and never changes afterwards.
func (s *DocumentService) CreateDocumentRecord(ctx context.Context, actor *models.Principal, req dto.CreateDocumentRequest) (*models.Document, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid document payload"); err != nil {
		return nil, err
	}
	if req.StorageBucket != s.storage.Bucket() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "storage bucket is not allowed")
	}
	if !strings.HasPrefix(req.StorageKey, actor.UserID+"/") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "storage key does not belong to the caller")
	}
	exists, err := s.storage.Exists(ObjectRef{Bucket: req.StorageBucket, Key: req.StorageKey})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check stored file")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "uploaded file not found")
	}

	doc := &models.Document{
		Title:          strings.TrimSpace(req.Title),
		StorageKey:     req.StorageKey,
		StorageBucket:  req.StorageBucket,
		FileType:       req.FileType,
		FileSize:       req.FileSize,
		OrganizationID: actor.OrganizationID,
		UploadedByID:   actor.UserID,
		HeldByID:       actor.UserID,
	}
	if req.ControlNumber != nil {
		if number := strings.TrimSpace(*req.ControlNumber); number != "" {
			doc.ControlNumber = &number
		}
	}
	if req.DocumentTypeID != nil && *req.DocumentTypeID != "" {
		docType, err := s.types.FindByID(ctx, actor.OrganizationID, *req.DocumentTypeID)
		if err != nil {
			return nil, mapRepoError(err, "document type not found", "failed to load document type")
		}
		doc.DocumentTypeID = &docType.ID
		doc.ApplySnapshot(docType.Snapshot())
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, mapRepoError(err, "document not found", "failed to create document")
	}
	doc.Tags = []models.Tag{}
	doc.LifecycleStatus = doc.Lifecycle(s.now())

	s.metrics.DocumentCreated()
	s.audit.Record(ctx, actor, "Uploaded document", doc.Title)
	s.dashboard.Invalidate(ctx, actor.OrganizationID)
	return doc, nil
}

// GetAll lists one page of the documents visible to the caller.
func (s *DocumentService) GetAll(ctx context.Context, actor *models.Principal, query dto.DocumentQuery) (*dto.DocumentListResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	filter, err := s.scopedFilter(actor, query)
	if err != nil {
		return nil, err
	}
	docs, total, err := s.docs.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list documents")
	}
	if docs == nil {
		docs = []models.Document{}
	}
	if err := s.decorate(ctx, docs); err != nil {
		return nil, err
	}
	return &dto.DocumentListResponse{
		Documents:  docs,
		TotalCount: total,
		Window:     models.NewPagination(filter.Page, filter.PerPage, total),
	}, nil
}

// GetByID returns a document the caller can see.
func (s *DocumentService) GetByID(ctx context.Context, actor *models.Principal, id string) (*models.Document, error) {
	doc, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	docs := []models.Document{*doc}
	if err := s.decorate(ctx, docs); err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// GetSignedDocumentURL issues a short-lived download link.
func (s *DocumentService) GetSignedDocumentURL(ctx context.Context, actor *models.Principal, id string) (*dto.SignedURLResponse, error) {
	doc, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if doc.Lifecycle(s.now()) == models.LifecycleDestroyed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "document content has been destroyed")
	}
	return s.storage.SignedURL(ObjectRef{Bucket: doc.StorageBucket, Key: doc.StorageKey})
}

// Delete removes a document. Stored content removal is retried in the background.
func (s *DocumentService) Delete(ctx context.Context, actor *models.Principal, id string) error {
	if err := requireOrgPermission(actor, models.CapabilityManageDocuments); err != nil {
		return err
	}
	doc, err := s.docs.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return mapRepoError(err, "document not found", "failed to load document")
	}
	if err := s.docs.Delete(ctx, actor.OrganizationID, id); err != nil {
		return mapRepoError(err, "document not found", "failed to delete document")
	}
	s.storage.RemoveEventually(ObjectRef{Bucket: doc.StorageBucket, Key: doc.StorageKey})
	s.audit.Record(ctx, actor, "Deleted document", doc.Title)
	s.dashboard.Invalidate(ctx, actor.OrganizationID)
	return nil
}

// ExecuteDisposition applies the stamped disposition action to a document whose
// retention has ended. Destroy removes the stored content first.
func (s *DocumentService) ExecuteDisposition(ctx context.Context, actor *models.Principal, id string) (*models.Document, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageDocuments); err != nil {
		return nil, err
	}
	doc, err := s.docs.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, mapRepoError(err, "document not found", "failed to load document")
	}
	now := s.now().UTC()
	if status := doc.Lifecycle(now); status != models.LifecycleReadyForDisposition {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("document is %s, not ready for disposition", status))
	}
	snapshot := doc.Snapshot()

	status := models.DispositionStatusArchived
	action := "Archived document"
	if snapshot.Action == models.DispositionDestroy {
		if err := s.storage.Remove(ObjectRef{Bucket: doc.StorageBucket, Key: doc.StorageKey}); err != nil {
			return nil, appErrors.Internal(err, "failed to destroy document content")
		}
		status = models.DispositionStatusDestroyed
		action = "Destroyed document"
	}

	if err := s.docs.MarkDisposition(ctx, actor.OrganizationID, id, status, now); err != nil {
		return nil, mapRepoError(err, "disposition was already executed", "failed to record disposition")
	}
	doc.DispositionStatus = &status
	doc.DispositionExecutedAt = &now
	doc.UpdatedAt = now

	s.metrics.DispositionExecuted(string(snapshot.Action))
	s.audit.Record(ctx, actor, action, doc.Title)
	s.dashboard.Invalidate(ctx, actor.OrganizationID)

	docs := []models.Document{*doc}
	if err := s.decorate(ctx, docs); err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// ExportRetentionRegister renders the caller's visible documents with their
// retention schedule and lifecycle status.
func (s *DocumentService) ExportRetentionRegister(ctx context.Context, actor *models.Principal, format string) (*ExportResult, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	now := s.now().UTC()
	filter := models.DocumentFilter{OrganizationID: actor.OrganizationID, Now: now}
	if !actor.Can(models.CapabilityManageDocuments) {
		filter.ScopeUserID = actor.UserID
	}
	entries, err := s.docs.ListRegister(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load retention register")
	}

	dataset := export.Dataset{
		Title:       "Retention Register",
		GeneratedAt: now,
		Headers:     registerHeaders,
		Rows:        make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, registerRow(entry, now))
	}
	content, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render retention register")
	}
	return &ExportResult{
		Content:     content,
		ContentType: renderer.ContentType(),
		Filename:    "retention-register-" + now.Format("20060102") + renderer.Extension(),
	}, nil
}

var registerHeaders = []string{"Title", "Control Number", "Type", "Holder", "Created", "Active (years)", "Inactive (years)", "Action", "Status"}

func registerRow(entry models.RegisterEntry, now time.Time) map[string]string {
	row := map[string]string{
		"Title":          entry.Title,
		"Control Number": derefOr(entry.ControlNumber, ""),
		"Type":           derefOr(entry.DocumentTypeName, "Unclassified"),
		"Holder":         entry.HolderName,
		"Created":        entry.CreatedAt.UTC().Format("2006-01-02"),
		"Status":         string(entry.Lifecycle(now)),
	}
	if snap := entry.Snapshot(); snap != nil {
		row["Active (years)"] = strconv.Itoa(snap.ActiveYears)
		row["Inactive (years)"] = strconv.Itoa(snap.InactiveYears)
		row["Action"] = string(snap.Action)
	}
	return row
}

func (s *DocumentService) scopedFilter(actor *models.Principal, query dto.DocumentQuery) (models.DocumentFilter, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = defaultDocumentPerPage
	}
	if perPage > maxDocumentPerPage {
		perPage = maxDocumentPerPage
	}
	filter := models.DocumentFilter{
		OrganizationID: actor.OrganizationID,
		Search:         strings.TrimSpace(query.Search),
		DocumentTypeID: strings.TrimSpace(query.DocumentTypeID),
		Page:           page,
		PerPage:        perPage,
		Now:            s.now().UTC(),
	}
	if !actor.Can(models.CapabilityManageDocuments) {
		filter.ScopeUserID = actor.UserID
	}
	if raw := strings.TrimSpace(query.Lifecycle); raw != "" {
		status, err := models.ParseLifecycleStatus(raw)
		if err != nil {
			return filter, validationError(err, "invalid lifecycle filter")
		}
		filter.Lifecycle = &status
	}
	return filter, nil
}

// loadVisible returns the document when it is inside the caller's scope. The
// intended holder of a document in transit can see it before receiving it.
func (s *DocumentService) loadVisible(ctx context.Context, actor *models.Principal, id string) (*models.Document, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	doc, err := s.docs.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, mapRepoError(err, "document not found", "failed to load document")
	}
	if !canSee(actor, doc) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return doc, nil
}

func canSee(actor *models.Principal, doc *models.Document) bool {
	if actor.Can(models.CapabilityManageDocuments) || doc.IsHeldBy(actor.UserID) {
		return true
	}
	return doc.InTransit && doc.IntendedHolderID != nil && *doc.IntendedHolderID == actor.UserID
}

// decorate attaches tags and the derived lifecycle status in place.
func (s *DocumentService) decorate(ctx context.Context, docs []models.Document) error {
	return decorateDocuments(ctx, s.docs, docs, s.now())
}

type documentTagLoader interface {
	TagsFor(ctx context.Context, documentIDs []string) ([]repository.DocumentTagRow, error)
}

func decorateDocuments(ctx context.Context, loader documentTagLoader, docs []models.Document, now time.Time) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	rows, err := loader.TagsFor(ctx, ids)
	if err != nil {
		return appErrors.Internal(err, "failed to load document tags")
	}
	byDoc := make(map[string][]models.Tag, len(docs))
	for _, row := range rows {
		byDoc[row.DocumentID] = append(byDoc[row.DocumentID], row.Tag)
	}
	for i := range docs {
		docs[i].Tags = byDoc[docs[i].ID]
		if docs[i].Tags == nil {
			docs[i].Tags = []models.Tag{}
		}
		docs[i].LifecycleStatus = docs[i].Lifecycle(now)
	}
	return nil
}

func derefOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
