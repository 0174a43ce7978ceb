package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type tagRepository interface {
	ListGlobal(ctx context.Context) ([]models.Tag, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.Tag, error)
	FindByID(ctx context.Context, id string) (*models.Tag, error)
	FindUsable(ctx context.Context, organizationID string, ids []string) ([]models.Tag, error)
	Create(ctx context.Context, tag *models.Tag) error
	Rename(ctx context.Context, organizationID, id, name string) error
	Delete(ctx context.Context, organizationID, id string) (*models.Tag, error)
}

type userRoleLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.Role, error)
}

// FilterAvailableActionTags returns the global tags a sender may attach for a
// recipient with the given capabilities. Review outcome tags are never offered.
func FilterAvailableActionTags(globalTags []models.Tag, recipientCaps models.Capabilities) []models.Tag {
	available := make([]models.Tag, 0, 2)
	for _, tag := range globalTags {
		switch {
		case tag.Is(models.TagCommunication):
			available = append(available, tag)
		case tag.Is(models.TagForReview) && recipientCaps.ManageDocuments:
			available = append(available, tag)
		}
	}
	return available
}

// TagService manages organization tags and gates which tags travel with a transfer.
type TagService struct {
	tags      tagRepository
	users     orgUserRepository
	roles     userRoleLister
	audit     *AuditService
	dashboard *DashboardService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTagService constructs the tag service.
func NewTagService(tags tagRepository, users orgUserRepository, roles userRoleLister, audit *AuditService, dashboard *DashboardService, validate *validator.Validate, logger *zap.Logger) *TagService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TagService{tags: tags, users: users, roles: roles, audit: audit, dashboard: dashboard, validator: validate, logger: logger}
}

// GetTags lists the organization's own tags with usage counts.
func (s *TagService) GetTags(ctx context.Context, actor *models.Principal) ([]models.Tag, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	tags, err := s.tags.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tags")
	}
	return nonNilTags(tags), nil
}

// GetGlobalTags lists the seeded global tags.
func (s *TagService) GetGlobalTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.tags.ListGlobal(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list global tags")
	}
	return nonNilTags(tags), nil
}

// AvailableActionTags returns the global tags the caller may send to the recipient.
func (s *TagService) AvailableActionTags(ctx context.Context, actor *models.Principal, recipientID string) ([]models.Tag, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(recipientID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipientId is required")
	}
	caps, err := s.recipientCapabilities(ctx, actor.OrganizationID, recipientID)
	if err != nil {
		return nil, err
	}
	global, err := s.tags.ListGlobal(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list global tags")
	}
	return FilterAvailableActionTags(global, caps), nil
}

// AuthorizeSendTags resolves the requested tag ids and rejects global tags the
// recipient may not receive. Organization tags always pass.
func (s *TagService) AuthorizeSendTags(ctx context.Context, organizationID string, recipientCaps models.Capabilities, tagIDs []string) ([]models.Tag, error) {
	ids := uniqueStrings(tagIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	tags, err := s.tags.FindUsable(ctx, organizationID, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load tags")
	}
	found := make(map[string]models.Tag, len(tags))
	for _, tag := range tags {
		found[tag.ID] = tag
	}
	allowedGlobal := make(map[string]struct{})
	var globals []models.Tag
	for _, tag := range tags {
		if tag.IsGlobal {
			globals = append(globals, tag)
		}
	}
	for _, tag := range FilterAvailableActionTags(globals, recipientCaps) {
		allowedGlobal[tag.ID] = struct{}{}
	}

	result := make([]models.Tag, 0, len(ids))
	for _, id := range ids {
		tag, ok := found[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("tag %s not found", id))
		}
		if tag.IsGlobal {
			if _, ok := allowedGlobal[tag.ID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("tag %q cannot be sent to this recipient", tag.Name))
			}
		}
		result = append(result, tag)
	}
	return result, nil
}

// CreateTag adds an organization tag.
func (s *TagService) CreateTag(ctx context.Context, actor *models.Principal, req dto.TagRequest) (*models.Tag, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageDocuments); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid tag payload"); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNotReserved(ctx, name); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID
	tag := &models.Tag{Name: name, OrganizationID: &orgID}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, mapRepoError(err, "tag not found", "failed to create tag")
	}
	s.audit.Record(ctx, actor, "Created tag: "+tag.Name, tag.Name)
	return tag, nil
}

// UpdateTag renames an organization tag.
func (s *TagService) UpdateTag(ctx context.Context, actor *models.Principal, id string, req dto.TagRequest) (*models.Tag, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageDocuments); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid tag payload"); err != nil {
		return nil, err
	}
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "tag not found", "failed to load tag")
	}
	if tag.IsProtected() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("tag %q is global or locked", tag.Name))
	}
	if tag.OrganizationID == nil || *tag.OrganizationID != actor.OrganizationID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "tag not found")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNotReserved(ctx, name); err != nil {
		return nil, err
	}
	if err := s.tags.Rename(ctx, actor.OrganizationID, id, name); err != nil {
		return nil, mapRepoError(err, "tag not found", "failed to rename tag")
	}
	previous := tag.Name
	tag.Name = name
	s.audit.Record(ctx, actor, fmt.Sprintf("Renamed tag: %s to %s", previous, name), name)
	s.dashboard.Invalidate(ctx, actor.OrganizationID)
	return tag, nil
}

// DeleteTag removes an organization tag. Global and locked tags are refused
// whatever the caller's capabilities.
func (s *TagService) DeleteTag(ctx context.Context, actor *models.Principal, id string) error {
	if err := requireOrganization(actor); err != nil {
		return err
	}
	existing, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return mapRepoError(err, "tag not found", "failed to load tag")
	}
	if existing.IsProtected() {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("tag %q is global or locked and cannot be deleted", existing.Name))
	}
	if err := RequirePermission(actor, models.CapabilityManageDocuments); err != nil {
		return err
	}
	tag, err := s.tags.Delete(ctx, actor.OrganizationID, id)
	if err != nil {
		return mapRepoError(err, "tag not found", "failed to delete tag")
	}
	s.audit.Record(ctx, actor, "Deleted tag: "+tag.Name, tag.Name)
	s.dashboard.Invalidate(ctx, actor.OrganizationID)
	return nil
}

func (s *TagService) recipientCapabilities(ctx context.Context, organizationID, recipientID string) (models.Capabilities, error) {
	if _, err := s.users.FindInOrganization(ctx, organizationID, recipientID); err != nil {
		return models.Capabilities{}, mapRepoError(err, "recipient not found", "failed to load recipient")
	}
	roles, err := s.roles.ListByUser(ctx, recipientID)
	if err != nil {
		return models.Capabilities{}, appErrors.Internal(err, "failed to load recipient roles")
	}
	return models.EffectiveCapabilities(roles), nil
}

func (s *TagService) ensureNotReserved(ctx context.Context, name string) error {
	global, err := s.tags.ListGlobal(ctx)
	if err != nil {
		return appErrors.Internal(err, "failed to list global tags")
	}
	for _, tag := range global {
		if tag.Is(name) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("tag name %q is reserved", name))
		}
	}
	return nil
}

func nonNilTags(tags []models.Tag) []models.Tag {
	if tags == nil {
		return []models.Tag{}
	}
	return tags
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
