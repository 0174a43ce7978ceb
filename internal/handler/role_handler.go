package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/pkg/response"
)

type roleService interface {
	CreateRole(ctx context.Context, actor *models.Principal, req dto.CreateRoleRequest) (*models.Role, error)
	UpdateRole(ctx context.Context, actor *models.Principal, id string, req dto.UpdateRoleRequest) (*models.Role, error)
	DeleteRole(ctx context.Context, actor *models.Principal, id string) error
	GetRolesByCampus(ctx context.Context, actor *models.Principal, campusID string) ([]models.Role, error)
	GetRolesByOrganization(ctx context.Context, actor *models.Principal) ([]models.Role, error)
	GetUserRoles(ctx context.Context, actor *models.Principal, userID string) ([]models.Role, error)
	AssignRoleToUser(ctx context.Context, actor *models.Principal, userID, roleID string, req dto.AssignRoleRequest) error
	UnassignRoleFromUser(ctx context.Context, actor *models.Principal, userID, roleID string) error
}

// RoleHandler exposes role management and assignment.
type RoleHandler struct {
	service roleService
}

// NewRoleHandler constructs the handler.
func NewRoleHandler(svc roleService) *RoleHandler {
	return &RoleHandler{service: svc}
}

// List godoc
// @Summary Organization roles
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	roles, err := h.service.GetRolesByOrganization(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// ListByCampus godoc
// @Summary Campus roles
// @Tags Roles
// @Produce json
// @Param id path string true "Campus ID"
// @Success 200 {object} response.Envelope
// @Router /campuses/{id}/roles [get]
func (h *RoleHandler) ListByCampus(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	roles, err := h.service.GetRolesByCampus(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// Create godoc
// @Summary Create role
// @Description Capabilities omitted from the payload default from the level
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body dto.CreateRoleRequest true "Role"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.service.CreateRole(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}

// Update godoc
// @Summary Update role
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param payload body dto.UpdateRoleRequest true "Role changes"
// @Success 200 {object} response.Envelope
// @Router /roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.service.UpdateRole(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Delete godoc
// @Summary Delete role
// @Tags Roles
// @Param id path string true "Role ID"
// @Success 204
// @Router /roles/{id} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UserRoles godoc
// @Summary Roles held by a user
// @Tags Roles
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/roles [get]
func (h *RoleHandler) UserRoles(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	roles, err := h.service.GetUserRoles(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// Assign godoc
// @Summary Assign role
// @Description Grant a role to a member, optionally placing them in a department
// @Tags Roles
// @Accept json
// @Param id path string true "User ID"
// @Param roleId path string true "Role ID"
// @Param payload body dto.AssignRoleRequest false "Placement"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /users/{id}/roles/{roleId} [post]
func (h *RoleHandler) Assign(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignRoleRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			bindJSONError(c, err)
			return
		}
	}
	if err := h.service.AssignRoleToUser(c.Request.Context(), actor, c.Param("id"), c.Param("roleId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unassign godoc
// @Summary Unassign role
// @Tags Roles
// @Param id path string true "User ID"
// @Param roleId path string true "Role ID"
// @Success 204
// @Router /users/{id}/roles/{roleId} [delete]
func (h *RoleHandler) Unassign(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.service.UnassignRoleFromUser(c.Request.Context(), actor, c.Param("id"), c.Param("roleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
