package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/repository"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

const (
	defaultCampusName = "Main"
	adminRoleName     = "Admin"
)

type organizationRepository interface {
	CreateWithFounder(ctx context.Context, params repository.FoundingParams) error
	Join(ctx context.Context, organizationID, userID string) (*models.Role, error)
	FindByID(ctx context.Context, id string) (*models.Organization, error)
	ListCampuses(ctx context.Context, organizationID string) ([]models.Campus, error)
	ListDepartments(ctx context.Context, organizationID string) ([]models.Department, error)
	FindCampus(ctx context.Context, organizationID, campusID string) (*models.Campus, error)
	CreateCampus(ctx context.Context, campus *models.Campus) error
	CreateDepartment(ctx context.Context, department *models.Department) error
}

// OrganizationService founds and joins organizations and manages their structure.
type OrganizationService struct {
	orgs      organizationRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOrganizationService constructs the organization service.
func NewOrganizationService(orgs organizationRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OrganizationService{orgs: orgs, audit: audit, validator: validate, logger: logger}
}

// CreateOrganization founds an organization with a default campus and an Admin
// role held by the caller. The Admin role is a Co-Leader level role so the
// founder does not need a department.
func (s *OrganizationService) CreateOrganization(ctx context.Context, actor *models.Principal, req dto.CreateOrganizationRequest) (*models.OrganizationTree, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.HasOrganization() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "user already belongs to an organization")
	}
	if err := validateStruct(s.validator, req, "invalid organization payload"); err != nil {
		return nil, err
	}

	org := &models.Organization{Name: strings.TrimSpace(req.Name), Acronym: strings.TrimSpace(req.Acronym)}
	campus := &models.Campus{Name: defaultCampusName}
	admin := &models.Role{
		Name:               adminRoleName,
		Level:              models.RoleLevelCoLeader,
		CanManageUsers:     true,
		CanManageRoles:     true,
		CanManageDocuments: true,
	}
	err := s.orgs.CreateWithFounder(ctx, repository.FoundingParams{
		Organization: org,
		Campus:       campus,
		AdminRole:    admin,
		FounderID:    actor.UserID,
	})
	if err != nil {
		return nil, mapRepoError(err, "user not found", "failed to create organization")
	}

	founder := *actor
	founder.OrganizationID = org.ID
	founder.CampusID = campus.ID
	founder.RoleNames = []string{admin.Name}
	s.audit.Record(ctx, &founder, "Created organization", org.Name)

	campus.Departments = []models.Department{}
	return &models.OrganizationTree{Organization: *org, Campuses: []models.Campus{*campus}}, nil
}

// JoinOrganization enrolls the caller with the organization's member role.
func (s *OrganizationService) JoinOrganization(ctx context.Context, actor *models.Principal, organizationID string) (*models.Role, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.HasOrganization() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "user already belongs to an organization")
	}
	org, err := s.orgs.FindByID(ctx, organizationID)
	if err != nil {
		return nil, mapRepoError(err, "organization not found", "failed to load organization")
	}
	role, err := s.orgs.Join(ctx, org.ID, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyMember) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "user already belongs to an organization")
		}
		return nil, mapRepoError(err, "organization has no campus", "failed to join organization")
	}

	member := *actor
	member.OrganizationID = org.ID
	member.CampusID = role.CampusID
	member.RoleNames = []string{role.Name}
	s.audit.Record(ctx, &member, "Joined organization", org.Name)
	return role, nil
}

// GetOrganization returns the caller's organization with campuses and departments.
func (s *OrganizationService) GetOrganization(ctx context.Context, actor *models.Principal) (*models.OrganizationTree, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	org, err := s.orgs.FindByID(ctx, actor.OrganizationID)
	if err != nil {
		return nil, mapRepoError(err, "organization not found", "failed to load organization")
	}
	campuses, err := s.orgs.ListCampuses(ctx, org.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list campuses")
	}
	departments, err := s.orgs.ListDepartments(ctx, org.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list departments")
	}

	byCampus := make(map[string][]models.Department, len(campuses))
	for _, d := range departments {
		byCampus[d.CampusID] = append(byCampus[d.CampusID], d)
	}
	tree := &models.OrganizationTree{Organization: *org, Campuses: make([]models.Campus, 0, len(campuses))}
	for _, campus := range campuses {
		campus.Departments = byCampus[campus.ID]
		if campus.Departments == nil {
			campus.Departments = []models.Department{}
		}
		tree.Campuses = append(tree.Campuses, campus)
	}
	return tree, nil
}

// CreateCampus adds a campus to the caller's organization.
func (s *OrganizationService) CreateCampus(ctx context.Context, actor *models.Principal, req dto.CreateCampusRequest) (*models.Campus, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageUsers); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid campus payload"); err != nil {
		return nil, err
	}
	campus := &models.Campus{Name: strings.TrimSpace(req.Name), OrganizationID: actor.OrganizationID}
	if err := s.orgs.CreateCampus(ctx, campus); err != nil {
		return nil, appErrors.Internal(err, "failed to create campus")
	}
	campus.Departments = []models.Department{}
	s.audit.Record(ctx, actor, "Created campus", campus.Name)
	return campus, nil
}

// CreateDepartment adds a department to one of the organization's campuses.
func (s *OrganizationService) CreateDepartment(ctx context.Context, actor *models.Principal, campusID string, req dto.CreateDepartmentRequest) (*models.Department, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageUsers); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid department payload"); err != nil {
		return nil, err
	}
	campus, err := s.orgs.FindCampus(ctx, actor.OrganizationID, campusID)
	if err != nil {
		return nil, mapRepoError(err, "campus not found", "failed to load campus")
	}
	department := &models.Department{Name: strings.TrimSpace(req.Name), CampusID: campus.ID, Icon: req.Icon}
	if err := s.orgs.CreateDepartment(ctx, department); err != nil {
		return nil, appErrors.Internal(err, "failed to create department")
	}
	s.audit.Record(ctx, actor, "Created department", department.Name)
	return department, nil
}
