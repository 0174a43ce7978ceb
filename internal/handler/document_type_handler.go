package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/pkg/response"
)

type documentTypeService interface {
	GetAll(ctx context.Context, actor *models.Principal) ([]models.DocumentType, error)
	Create(ctx context.Context, actor *models.Principal, req dto.CreateDocumentTypeRequest) (*models.DocumentType, error)
	Update(ctx context.Context, actor *models.Principal, id string, req dto.UpdateDocumentTypeRequest) (*models.DocumentType, error)
	Delete(ctx context.Context, actor *models.Principal, id string) error
}

// DocumentTypeHandler manages document classifications and their retention schedules.
type DocumentTypeHandler struct {
	service documentTypeService
}

// NewDocumentTypeHandler constructs the handler.
func NewDocumentTypeHandler(svc documentTypeService) *DocumentTypeHandler {
	return &DocumentTypeHandler{service: svc}
}

// List godoc
// @Summary List document types
// @Tags DocumentTypes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /document-types [get]
func (h *DocumentTypeHandler) List(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	types, err := h.service.GetAll(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Create godoc
// @Summary Create document type
// @Tags DocumentTypes
// @Accept json
// @Produce json
// @Param payload body dto.CreateDocumentTypeRequest true "Document type"
// @Success 201 {object} response.Envelope
// @Router /document-types [post]
func (h *DocumentTypeHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateDocumentTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	docType, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, docType)
}

// Update godoc
// @Summary Update document type
// @Description Existing documents keep the retention schedule they were created with
// @Tags DocumentTypes
// @Accept json
// @Produce json
// @Param id path string true "Document type ID"
// @Param payload body dto.UpdateDocumentTypeRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /document-types/{id} [put]
func (h *DocumentTypeHandler) Update(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateDocumentTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	docType, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docType, nil)
}

// Delete godoc
// @Summary Delete document type
// @Tags DocumentTypes
// @Param id path string true "Document type ID"
// @Success 204
// @Router /document-types/{id} [delete]
func (h *DocumentTypeHandler) Delete(c *gin.Context) {
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
