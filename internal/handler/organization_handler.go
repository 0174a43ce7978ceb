package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/pkg/response"
)

type organizationService interface {
	CreateOrganization(ctx context.Context, actor *models.Principal, req dto.CreateOrganizationRequest) (*models.OrganizationTree, error)
	JoinOrganization(ctx context.Context, actor *models.Principal, organizationID string) (*models.Role, error)
	GetOrganization(ctx context.Context, actor *models.Principal) (*models.OrganizationTree, error)
	CreateCampus(ctx context.Context, actor *models.Principal, req dto.CreateCampusRequest) (*models.Campus, error)
	CreateDepartment(ctx context.Context, actor *models.Principal, campusID string, req dto.CreateDepartmentRequest) (*models.Department, error)
}

// OrganizationHandler manages organizations, campuses and departments.
type OrganizationHandler struct {
	service organizationService
}

// NewOrganizationHandler constructs the handler.
func NewOrganizationHandler(svc organizationService) *OrganizationHandler {
	return &OrganizationHandler{service: svc}
}

// Create godoc
// @Summary Found organization
// @Description Create an organization with a main campus and make the caller its admin
// @Tags Organizations
// @Accept json
// @Produce json
// @Param payload body dto.CreateOrganizationRequest true "Organization"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}
	tree, err := h.service.CreateOrganization(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tree)
}

// Join godoc
// @Summary Join organization
// @Tags Organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /organizations/{id}/join [post]
func (h *OrganizationHandler) Join(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	role, err := h.service.JoinOrganization(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Get godoc
// @Summary Caller organization
// @Description Organization with its campuses and departments
// @Tags Organizations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /organization [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	tree, err := h.service.GetOrganization(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tree, nil)
}

// CreateCampus godoc
// @Summary Create campus
// @Tags Organizations
// @Accept json
// @Produce json
// @Param payload body dto.CreateCampusRequest true "Campus"
// @Success 201 {object} response.Envelope
// @Router /organization/campuses [post]
func (h *OrganizationHandler) CreateCampus(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCampusRequest
	if !bindJSON(c, &req) {
		return
	}
	campus, err := h.service.CreateCampus(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, campus)
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Organizations
// @Accept json
// @Produce json
// @Param id path string true "Campus ID"
// @Param payload body dto.CreateDepartmentRequest true "Department"
// @Success 201 {object} response.Envelope
// @Router /organization/campuses/{id}/departments [post]
func (h *OrganizationHandler) CreateDepartment(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateDepartmentRequest
	if !bindJSON(c, &req) {
		return
	}
	department, err := h.service.CreateDepartment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, department)
}
