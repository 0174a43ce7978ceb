package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/service"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type documentServiceStub struct {
	lastQuery  dto.DocumentQuery
	lastCreate dto.CreateDocumentRequest
	lastID     string
	lastFormat string
	list       *dto.DocumentListResponse
	doc        *models.Document
	export     *service.ExportResult
	err        error
}

func (s *documentServiceStub) CreateDocumentRecord(_ context.Context, _ *models.Principal, req dto.CreateDocumentRequest) (*models.Document, error) {
	s.lastCreate = req
	return s.doc, s.err
}

func (s *documentServiceStub) GetAll(_ context.Context, _ *models.Principal, query dto.DocumentQuery) (*dto.DocumentListResponse, error) {
	s.lastQuery = query
	return s.list, s.err
}

func (s *documentServiceStub) GetByID(_ context.Context, _ *models.Principal, id string) (*models.Document, error) {
	s.lastID = id
	return s.doc, s.err
}

func (s *documentServiceStub) GetSignedDocumentURL(_ context.Context, _ *models.Principal, id string) (*dto.SignedURLResponse, error) {
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	return &dto.SignedURLResponse{URL: "/api/v1/storage/objects/tok", ExpiresAt: "2026-01-01T00:05:00Z"}, nil
}

func (s *documentServiceStub) Delete(_ context.Context, _ *models.Principal, id string) error {
	s.lastID = id
	return s.err
}

func (s *documentServiceStub) ExecuteDisposition(_ context.Context, _ *models.Principal, id string) (*models.Document, error) {
	s.lastID = id
	return s.doc, s.err
}

func (s *documentServiceStub) ExportRetentionRegister(_ context.Context, _ *models.Principal, format string) (*service.ExportResult, error) {
	s.lastFormat = format
	return s.export, s.err
}

func TestDocumentHandlerListBindsQuery(t *testing.T) {
	stub := &documentServiceStub{list: &dto.DocumentListResponse{
		Documents:  []models.Document{{ID: "doc-1", Title: "Budget", LifecycleStatus: models.LifecycleReadyForDisposition}},
		TotalCount: 1,
		Window:     models.NewPagination(2, 10, 11),
	}}
	h := NewDocumentHandler(stub)
	c, rec := newTestContext(http.MethodGet, "/documents?page=2&perPage=10&lifecycle=ReadyForDisposition&search=bud", "", managerPrincipal())

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.DocumentQuery{Page: 2, PerPage: 10, Lifecycle: "ReadyForDisposition", Search: "bud"}, stub.lastQuery)
	var payload dto.DocumentListResponse
	decodeData(t, rec, &payload)
	assert.Equal(t, 1, payload.TotalCount)
	assert.Equal(t, models.LifecycleReadyForDisposition, payload.Documents[0].LifecycleStatus)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, models.Pagination{Page: 2, PerPage: 10, TotalCount: 11, TotalPages: 2}, *envelope.Pagination)
}

func TestDocumentHandlerListRejectsNonNumericPage(t *testing.T) {
	h := NewDocumentHandler(&documentServiceStub{})
	c, rec := newTestContext(http.MethodGet, "/documents?page=two", "", managerPrincipal())

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandlerRequiresPrincipal(t *testing.T) {
	h := NewDocumentHandler(&documentServiceStub{})
	c, rec := newTestContext(http.MethodGet, "/documents", "", nil)

	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDocumentHandlerCreate(t *testing.T) {
	stub := &documentServiceStub{doc: &models.Document{ID: "doc-9", Title: "Contract"}}
	h := NewDocumentHandler(stub)
	c, rec := newTestContext(http.MethodPost, "/documents",
		`{"title":"Contract","storageKey":"u-manager/abc-contract.pdf","storageBucket":"documents"}`, managerPrincipal())

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Contract", stub.lastCreate.Title)
	assert.Equal(t, "u-manager/abc-contract.pdf", stub.lastCreate.StorageKey)
}

func TestDocumentHandlerCreateMalformedBody(t *testing.T) {
	stub := &documentServiceStub{}
	h := NewDocumentHandler(stub)
	c, rec := newTestContext(http.MethodPost, "/documents", `{"title":`, managerPrincipal())

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
	assert.Empty(t, stub.lastCreate.Title)
}

func TestDocumentHandlerGetMapsNotFound(t *testing.T) {
	stub := &documentServiceStub{err: appErrors.Clone(appErrors.ErrNotFound, "document not found")}
	h := NewDocumentHandler(stub)
	c, rec := newTestContext(http.MethodGet, "/documents/doc-404", "", managerPrincipal())
	c.AddParam("id", "doc-404")

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "doc-404", stub.lastID)
}

func TestDocumentHandlerDispositionPrecondition(t *testing.T) {
	stub := &documentServiceStub{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "retention period has not ended")}
	h := NewDocumentHandler(stub)
	c, rec := newTestContext(http.MethodPost, "/documents/doc-1/disposition", "", managerPrincipal())
	c.AddParam("id", "doc-1")

	h.Disposition(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "PRECONDITION_FAILED", decodeEnvelope(t, rec).Error.Code)
}

func TestDocumentHandlerDeleteNoContent(t *testing.T) {
	stub := &documentServiceStub{}
	h := NewDocumentHandler(stub)
	c, rec := newTestContext(http.MethodDelete, "/documents/doc-1", "", managerPrincipal())
	c.AddParam("id", "doc-1")

	h.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "doc-1", stub.lastID)
}

func TestDocumentHandlerExportWritesAttachment(t *testing.T) {
	stub := &documentServiceStub{export: &service.ExportResult{
		Content:     []byte("Title,Status\nBudget,Ready\n"),
		ContentType: "text/csv",
		Filename:    "retention-register-20260301.csv",
	}}
	h := NewDocumentHandler(stub)
	c, rec := newTestContext(http.MethodGet, "/documents/export?format=csv", "", managerPrincipal())

	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", stub.lastFormat)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=retention-register-20260301.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Title,Status\nBudget,Ready\n", rec.Body.String())
}

func TestDocumentHandlerSignedURL(t *testing.T) {
	h := NewDocumentHandler(&documentServiceStub{})
	c, rec := newTestContext(http.MethodGet, "/documents/doc-1/url", "", managerPrincipal())
	c.AddParam("id", "doc-1")

	h.SignedURL(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var signed dto.SignedURLResponse
	decodeData(t, rec, &signed)
	assert.Equal(t, "/api/v1/storage/objects/tok", signed.URL)
}
