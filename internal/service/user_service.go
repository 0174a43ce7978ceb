package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/repository"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindInOrganization(ctx context.Context, organizationID, id string) (*models.User, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.User, error)
	RemoveFromOrganization(ctx context.Context, organizationID, userID string) error
}

type userRolesRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Role, error)
	ListByUsers(ctx context.Context, userIDs []string) ([]repository.UserRoleRow, error)
}

// UserService exposes organization membership.
type UserService struct {
	users  userRepository
	roles  userRolesRepository
	audit  *AuditService
	logger *zap.Logger
}

// NewUserService constructs the user service.
func NewUserService(users userRepository, roles userRolesRepository, audit *AuditService, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, roles: roles, audit: audit, logger: logger}
}

// GetMe returns the caller with roles and effective capabilities.
func (s *UserService) GetMe(ctx context.Context, actor *models.Principal) (*dto.MeResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, mapRepoError(err, "user not found", "failed to load user")
	}
	roles, err := s.roles.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load user roles")
	}
	return &dto.MeResponse{User: *user, Roles: nonNilRoles(roles), Capabilities: models.EffectiveCapabilities(roles)}, nil
}

// GetUsersWithRoles lists the organization's members and their roles.
func (s *UserService) GetUsersWithRoles(ctx context.Context, actor *models.Principal) ([]models.UserWithRoles, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	users, err := s.users.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list users")
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	rows, err := s.roles.ListByUsers(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list user roles")
	}
	byUser := make(map[string][]models.Role, len(users))
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row.Role)
	}

	result := make([]models.UserWithRoles, 0, len(users))
	for _, u := range users {
		result = append(result, models.UserWithRoles{User: u, Roles: nonNilRoles(byUser[u.ID])})
	}
	return result, nil
}

// RemoveUserFromOrganization drops a member and their roles. Callers cannot remove themselves.
func (s *UserService) RemoveUserFromOrganization(ctx context.Context, actor *models.Principal, userID string) error {
	if err := requireOrgPermission(actor, models.CapabilityManageUsers); err != nil {
		return err
	}
	if userID == actor.UserID {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "you cannot remove yourself from the organization")
	}
	user, err := s.users.FindInOrganization(ctx, actor.OrganizationID, userID)
	if err != nil {
		return mapRepoError(err, "user not found", "failed to load user")
	}
	if err := s.users.RemoveFromOrganization(ctx, actor.OrganizationID, userID); err != nil {
		return mapRepoError(err, "user not found", "failed to remove user")
	}
	s.audit.Record(ctx, actor, "Removed user from organization", user.FullName())
	return nil
}
