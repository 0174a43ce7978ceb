package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/repository"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type roleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	FindByID(ctx context.Context, organizationID, id string) (*models.Role, error)
	ListByCampus(ctx context.Context, campusID string) ([]models.Role, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.Role, error)
	ListByUser(ctx context.Context, userID string) ([]models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, organizationID, id string) error
	Assign(ctx context.Context, params repository.AssignRoleParams) error
	Unassign(ctx context.Context, organizationID, userID, roleID string) error
}

type roleOrgRepository interface {
	FindCampus(ctx context.Context, organizationID, campusID string) (*models.Campus, error)
	FindDepartment(ctx context.Context, organizationID, departmentID string) (*models.Department, error)
}

type orgUserRepository interface {
	FindInOrganization(ctx context.Context, organizationID, id string) (*models.User, error)
}

// RoleService manages campus roles and their assignment. Every operation
// requires the manage-roles capability.
type RoleService struct {
	roles     roleRepository
	orgs      roleOrgRepository
	users     orgUserRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoleService constructs the role service.
func NewRoleService(roles roleRepository, orgs roleOrgRepository, users orgUserRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RoleService{roles: roles, orgs: orgs, users: users, audit: audit, validator: validate, logger: logger}
}

// CreateRole adds a role to a campus of the caller's organization.
func (s *RoleService) CreateRole(ctx context.Context, actor *models.Principal, req dto.CreateRoleRequest) (*models.Role, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageRoles); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid role payload"); err != nil {
		return nil, err
	}
	if _, err := s.orgs.FindCampus(ctx, actor.OrganizationID, req.CampusID); err != nil {
		return nil, mapRepoError(err, "campus not found", "failed to load campus")
	}

	caps := applyCapabilityOverrides(models.DefaultCapabilities(req.Level), req.CanManageUsers, req.CanManageRoles, req.CanManageDocuments)
	role := &models.Role{
		Name:               req.Name,
		Level:              req.Level,
		CanManageUsers:     caps.ManageUsers,
		CanManageRoles:     caps.ManageRoles,
		CanManageDocuments: caps.ManageDocuments,
		CampusID:           req.CampusID,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, mapRepoError(err, "campus not found", "failed to create role")
	}
	s.audit.Record(ctx, actor, "Created role", role.Name)
	return role, nil
}

// UpdateRole patches a role. A level change without explicit capabilities
// re-derives the omitted ones from the new level.
func (s *RoleService) UpdateRole(ctx context.Context, actor *models.Principal, id string, req dto.UpdateRoleRequest) (*models.Role, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageRoles); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid role payload"); err != nil {
		return nil, err
	}
	role, err := s.roles.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, mapRepoError(err, "role not found", "failed to load role")
	}

	if req.Name != nil {
		role.Name = *req.Name
	}
	caps := role.Capabilities()
	if req.Level != nil && *req.Level != role.Level {
		role.Level = *req.Level
		caps = models.DefaultCapabilities(role.Level)
	}
	caps = applyCapabilityOverrides(caps, req.CanManageUsers, req.CanManageRoles, req.CanManageDocuments)
	role.CanManageUsers = caps.ManageUsers
	role.CanManageRoles = caps.ManageRoles
	role.CanManageDocuments = caps.ManageDocuments

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, mapRepoError(err, "role not found", "failed to update role")
	}
	s.audit.Record(ctx, actor, "Updated role", role.Name)
	return role, nil
}

// DeleteRole removes a role and its assignments.
func (s *RoleService) DeleteRole(ctx context.Context, actor *models.Principal, id string) error {
	if err := requireOrgPermission(actor, models.CapabilityManageRoles); err != nil {
		return err
	}
	role, err := s.roles.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return mapRepoError(err, "role not found", "failed to load role")
	}
	if err := s.roles.Delete(ctx, actor.OrganizationID, id); err != nil {
		return mapRepoError(err, "role not found", "failed to delete role")
	}
	s.audit.Record(ctx, actor, "Deleted role", role.Name)
	return nil
}

// GetRolesByCampus lists the roles of one campus of the caller's organization.
func (s *RoleService) GetRolesByCampus(ctx context.Context, actor *models.Principal, campusID string) ([]models.Role, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageRoles); err != nil {
		return nil, err
	}
	if _, err := s.orgs.FindCampus(ctx, actor.OrganizationID, campusID); err != nil {
		return nil, mapRepoError(err, "campus not found", "failed to load campus")
	}
	roles, err := s.roles.ListByCampus(ctx, campusID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list roles")
	}
	return nonNilRoles(roles), nil
}

// GetRolesByOrganization lists roles across the caller's organization.
func (s *RoleService) GetRolesByOrganization(ctx context.Context, actor *models.Principal) ([]models.Role, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageRoles); err != nil {
		return nil, err
	}
	roles, err := s.roles.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list roles")
	}
	return nonNilRoles(roles), nil
}

// GetUserRoles lists the roles held by a member of the caller's organization.
func (s *RoleService) GetUserRoles(ctx context.Context, actor *models.Principal, userID string) ([]models.Role, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageRoles); err != nil {
		return nil, err
	}
	if _, err := s.users.FindInOrganization(ctx, actor.OrganizationID, userID); err != nil {
		return nil, mapRepoError(err, "user not found", "failed to load user")
	}
	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list user roles")
	}
	return nonNilRoles(roles), nil
}

// AssignRoleToUser grants a role. Leader roles are subject to the one leader
// per department rule enforced by the repository transaction.
func (s *RoleService) AssignRoleToUser(ctx context.Context, actor *models.Principal, userID, roleID string, req dto.AssignRoleRequest) error {
	if err := requireOrgPermission(actor, models.CapabilityManageRoles); err != nil {
		return err
	}
	if err := validateStruct(s.validator, req, "invalid role assignment payload"); err != nil {
		return err
	}
	user, err := s.users.FindInOrganization(ctx, actor.OrganizationID, userID)
	if err != nil {
		return mapRepoError(err, "user not found", "failed to load user")
	}
	role, err := s.roles.FindByID(ctx, actor.OrganizationID, roleID)
	if err != nil {
		return mapRepoError(err, "role not found", "failed to load role")
	}
	if req.DepartmentID != nil {
		if _, err := s.orgs.FindDepartment(ctx, actor.OrganizationID, *req.DepartmentID); err != nil {
			return mapRepoError(err, "department not found", "failed to load department")
		}
	}

	params := repository.AssignRoleParams{
		OrganizationID: actor.OrganizationID,
		UserID:         user.ID,
		RoleID:         role.ID,
		DepartmentID:   req.DepartmentID,
	}
	if err := s.roles.Assign(ctx, params); err != nil {
		return mapRepoError(err, "role or user not found", "failed to assign role")
	}
	s.audit.Record(ctx, actor, fmt.Sprintf("Assigned role %s to %s", role.Name, user.FullName()), user.FullName())
	return nil
}

// UnassignRoleFromUser removes a role from a user.
func (s *RoleService) UnassignRoleFromUser(ctx context.Context, actor *models.Principal, userID, roleID string) error {
	if err := requireOrgPermission(actor, models.CapabilityManageRoles); err != nil {
		return err
	}
	user, err := s.users.FindInOrganization(ctx, actor.OrganizationID, userID)
	if err != nil {
		return mapRepoError(err, "user not found", "failed to load user")
	}
	role, err := s.roles.FindByID(ctx, actor.OrganizationID, roleID)
	if err != nil {
		return mapRepoError(err, "role not found", "failed to load role")
	}
	if err := s.roles.Unassign(ctx, actor.OrganizationID, userID, roleID); err != nil {
		return mapRepoError(err, "role assignment not found", "failed to unassign role")
	}
	s.audit.Record(ctx, actor, fmt.Sprintf("Removed role %s from %s", role.Name, user.FullName()), user.FullName())
	return nil
}

func applyCapabilityOverrides(base models.Capabilities, users, roles, documents *bool) models.Capabilities {
	if users != nil {
		base.ManageUsers = *users
	}
	if roles != nil {
		base.ManageRoles = *roles
	}
	if documents != nil {
		base.ManageDocuments = *documents
	}
	return base
}

func nonNilRoles(roles []models.Role) []models.Role {
	if roles == nil {
		return []models.Role{}
	}
	return roles
}
