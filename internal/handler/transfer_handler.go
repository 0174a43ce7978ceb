package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/pkg/response"
)

type transferService interface {
	Send(ctx context.Context, actor *models.Principal, documentID string, req dto.SendDocumentRequest) (*models.Document, error)
	SendMultiple(ctx context.Context, actor *models.Principal, req dto.SendMultipleRequest) ([]models.Document, error)
	Receive(ctx context.Context, actor *models.Principal, documentID string) (*models.Document, error)
	Review(ctx context.Context, actor *models.Principal, documentID string, req dto.ReviewDocumentRequest) (*models.Document, error)
	GetRemarks(ctx context.Context, actor *models.Principal, documentID string) ([]models.Remark, error)
	GetByControlNumber(ctx context.Context, actor *models.Principal, controlNumber string) (*models.Document, error)
	SendByControlNumber(ctx context.Context, actor *models.Principal, controlNumber string, req dto.SendDocumentRequest) (*models.Document, error)
	ReceiveByControlNumber(ctx context.Context, actor *models.Principal, controlNumber string) (*models.Document, error)
}

// TransferHandler exposes the send, receive and review workflow.
type TransferHandler struct {
	service transferService
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(svc transferService) *TransferHandler {
	return &TransferHandler{service: svc}
}

// Send godoc
// @Summary Send document
// @Description Put a held document in transit toward a recipient with optional action tags
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.SendDocumentRequest true "Recipient and tags"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/send [post]
func (h *TransferHandler) Send(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.SendDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.service.Send(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// SendMultiple godoc
// @Summary Send several documents
// @Description Either every document is sent or none is
// @Tags Transfers
// @Accept json
// @Produce json
// @Param payload body dto.SendMultipleRequest true "Documents, recipient and tags"
// @Success 200 {object} response.Envelope
// @Router /documents/send [post]
func (h *TransferHandler) SendMultiple(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.SendMultipleRequest
	if !bindJSON(c, &req) {
		return
	}
	docs, err := h.service.SendMultiple(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Receive godoc
// @Summary Receive document
// @Tags Transfers
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/receive [post]
func (h *TransferHandler) Receive(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	doc, err := h.service.Receive(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Review godoc
// @Summary Review document
// @Description Record approved, returned or disapproved with an optional remark and forward
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.ReviewDocumentRequest true "Review outcome"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/review [post]
func (h *TransferHandler) Review(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.ReviewDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.service.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Remarks godoc
// @Summary Review remarks
// @Tags Transfers
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/remarks [get]
func (h *TransferHandler) Remarks(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	remarks, err := h.service.GetRemarks(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, remarks, nil)
}

// GetByControlNumber godoc
// @Summary Find document by control number
// @Tags Transfers
// @Produce json
// @Param number path string true "Control number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/control-number/{number} [get]
func (h *TransferHandler) GetByControlNumber(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	doc, err := h.service.GetByControlNumber(c.Request.Context(), actor, c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// SendByControlNumber godoc
// @Summary Send document by control number
// @Tags Transfers
// @Accept json
// @Produce json
// @Param number path string true "Control number"
// @Param payload body dto.SendDocumentRequest true "Recipient and tags"
// @Success 200 {object} response.Envelope
// @Router /documents/control-number/{number}/send [post]
func (h *TransferHandler) SendByControlNumber(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.SendDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.service.SendByControlNumber(c.Request.Context(), actor, c.Param("number"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// ReceiveByControlNumber godoc
// @Summary Receive document by control number
// @Tags Transfers
// @Produce json
// @Param number path string true "Control number"
// @Success 200 {object} response.Envelope
// @Router /documents/control-number/{number}/receive [post]
func (h *TransferHandler) ReceiveByControlNumber(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	doc, err := h.service.ReceiveByControlNumber(c.Request.Context(), actor, c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
