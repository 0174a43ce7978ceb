package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/response"
)

type tagService interface {
	GetTags(ctx context.Context, actor *models.Principal) ([]models.Tag, error)
	GetGlobalTags(ctx context.Context) ([]models.Tag, error)
	AvailableActionTags(ctx context.Context, actor *models.Principal, recipientID string) ([]models.Tag, error)
	CreateTag(ctx context.Context, actor *models.Principal, req dto.TagRequest) (*models.Tag, error)
	UpdateTag(ctx context.Context, actor *models.Principal, id string, req dto.TagRequest) (*models.Tag, error)
	DeleteTag(ctx context.Context, actor *models.Principal, id string) error
}

// TagHandler exposes organization and workflow tags.
type TagHandler struct {
	service tagService
}

// NewTagHandler constructs the handler.
func NewTagHandler(svc tagService) *TagHandler {
	return &TagHandler{service: svc}
}

// List godoc
// @Summary Tags visible to the organization
// @Description Global workflow tags followed by the organization's own tags
// @Tags Tags
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tags [get]
func (h *TagHandler) List(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	tags, err := h.service.GetTags(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tags, nil)
}

// Global godoc
// @Summary Global workflow tags
// @Tags Tags
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tags/global [get]
func (h *TagHandler) Global(c *gin.Context) {
	tags, err := h.service.GetGlobalTags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tags, nil)
}

// Available godoc
// @Summary Action tags for a recipient
// @Description Global tags the caller may attach when sending to the recipient
// @Tags Tags
// @Produce json
// @Param recipientId query string true "Recipient user ID"
// @Success 200 {object} response.Envelope
// @Router /tags/available [get]
func (h *TagHandler) Available(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	recipientID := strings.TrimSpace(c.Query("recipientId"))
	if recipientID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "recipientId is required"))
		return
	}
	tags, err := h.service.AvailableActionTags(c.Request.Context(), actor, recipientID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tags, nil)
}

// Create godoc
// @Summary Create tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param payload body dto.TagRequest true "Tag"
// @Success 201 {object} response.Envelope
// @Router /tags [post]
func (h *TagHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.TagRequest
	if !bindJSON(c, &req) {
		return
	}
	tag, err := h.service.CreateTag(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tag)
}

// Update godoc
// @Summary Rename tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param payload body dto.TagRequest true "Tag"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tags/{id} [put]
func (h *TagHandler) Update(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.TagRequest
	if !bindJSON(c, &req) {
		return
	}
	tag, err := h.service.UpdateTag(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tag, nil)
}

// Delete godoc
// @Summary Delete tag
// @Tags Tags
// @Param id path string true "Tag ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /tags/{id} [delete]
func (h *TagHandler) Delete(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.service.DeleteTag(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
