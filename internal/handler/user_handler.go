package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/pkg/response"
)

type userService interface {
	GetMe(ctx context.Context, actor *models.Principal) (*dto.MeResponse, error)
	GetUsersWithRoles(ctx context.Context, actor *models.Principal) ([]models.UserWithRoles, error)
	RemoveUserFromOrganization(ctx context.Context, actor *models.Principal, userID string) error
}

// UserHandler serves the caller profile and organization membership endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Me godoc
// @Summary Current user
// @Description Profile, roles and effective capabilities of the caller
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	me, err := h.service.GetMe(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, me, nil)
}

// ListWithRoles godoc
// @Summary Organization members
// @Description Members of the caller's organization with their roles
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /organization/users [get]
func (h *UserHandler) ListWithRoles(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	users, err := h.service.GetUsersWithRoles(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Remove godoc
// @Summary Remove member
// @Description Detach a user from the organization and drop their roles
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /organization/users/{id} [delete]
func (h *UserHandler) Remove(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.service.RemoveUserFromOrganization(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
