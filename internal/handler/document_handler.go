package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/service"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/response"
)

type documentService interface {
	CreateDocumentRecord(ctx context.Context, actor *models.Principal, req dto.CreateDocumentRequest) (*models.Document, error)
	GetAll(ctx context.Context, actor *models.Principal, query dto.DocumentQuery) (*dto.DocumentListResponse, error)
	GetByID(ctx context.Context, actor *models.Principal, id string) (*models.Document, error)
	GetSignedDocumentURL(ctx context.Context, actor *models.Principal, id string) (*dto.SignedURLResponse, error)
	Delete(ctx context.Context, actor *models.Principal, id string) error
	ExecuteDisposition(ctx context.Context, actor *models.Principal, id string) (*models.Document, error)
	ExportRetentionRegister(ctx context.Context, actor *models.Principal, format string) (*service.ExportResult, error)
}

// DocumentHandler exposes document registration, listing and retention.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// List godoc
// @Summary List documents
// @Description Documents visible to the caller. Members without manage_documents see only what they hold.
// @Tags Documents
// @Produce json
// @Param page query int false "Page number"
// @Param perPage query int false "Page size (default 25, max 100)"
// @Param lifecycle query string false "Active, Inactive, ReadyForDisposition, Archived or Destroyed"
// @Param search query string false "Title or control number"
// @Param documentTypeId query string false "Document type ID"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var query dto.DocumentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.service.GetAll(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result, result.Window)
}

// Create godoc
// @Summary Register document
// @Description Register an uploaded file. The document type's retention schedule is copied onto the document.
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.CreateDocumentRequest true "Document"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.service.CreateDocumentRecord(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Get godoc
// @Summary Get document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	doc, err := h.service.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// SignedURL godoc
// @Summary Signed download link
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /documents/{id}/url [get]
func (h *DocumentHandler) SignedURL(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	signed, err := h.service.GetSignedDocumentURL(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, signed, nil)
}

// Delete godoc
// @Summary Delete document
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Disposition godoc
// @Summary Execute disposition
// @Description Archive or destroy a document whose retention period has ended
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /documents/{id}/disposition [post]
func (h *DocumentHandler) Disposition(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	doc, err := h.service.ExecuteDisposition(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Export godoc
// @Summary Export retention register
// @Tags Documents
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /documents/export [get]
func (h *DocumentHandler) Export(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.ExportRetentionRegister(c.Request.Context(), actor, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Content)
}
