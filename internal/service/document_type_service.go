package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type documentTypeRepository interface {
	ListByOrganization(ctx context.Context, organizationID string) ([]models.DocumentType, error)
	FindByID(ctx context.Context, organizationID, id string) (*models.DocumentType, error)
	Create(ctx context.Context, docType *models.DocumentType) error
	Update(ctx context.Context, docType *models.DocumentType) error
	Delete(ctx context.Context, organizationID, id string) error
}

// DocumentTypeService manages document classifications and their retention schedules.
// Edits never reach documents already stamped with a schedule.
type DocumentTypeService struct {
	repo      documentTypeRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentTypeService constructs the service.
func NewDocumentTypeService(repo documentTypeRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *DocumentTypeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentTypeService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// GetAll lists the organization's document types by name.
func (s *DocumentTypeService) GetAll(ctx context.Context, actor *models.Principal) ([]models.DocumentType, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	types, err := s.repo.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list document types")
	}
	if types == nil {
		types = []models.DocumentType{}
	}
	return types, nil
}

// Create adds a document type.
func (s *DocumentTypeService) Create(ctx context.Context, actor *models.Principal, req dto.CreateDocumentTypeRequest) (*models.DocumentType, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageDocuments); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid document type payload"); err != nil {
		return nil, err
	}
	docType := &models.DocumentType{
		Name:                   req.Name,
		Color:                  req.Color,
		ActiveRetentionYears:   req.ActiveRetentionYears,
		InactiveRetentionYears: req.InactiveRetentionYears,
		DispositionAction:      req.DispositionAction,
		OrganizationID:         actor.OrganizationID,
	}
	if err := s.repo.Create(ctx, docType); err != nil {
		return nil, mapRepoError(err, "document type not found", "failed to create document type")
	}
	s.audit.Record(ctx, actor, "Created document type: "+docType.Name, docType.Name)
	return docType, nil
}

// Update patches a document type.
func (s *DocumentTypeService) Update(ctx context.Context, actor *models.Principal, id string, req dto.UpdateDocumentTypeRequest) (*models.DocumentType, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageDocuments); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid document type payload"); err != nil {
		return nil, err
	}
	docType, err := s.repo.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, mapRepoError(err, "document type not found", "failed to load document type")
	}
	if req.Name != nil {
		docType.Name = *req.Name
	}
	if req.Color != nil {
		docType.Color = *req.Color
	}
	if req.ActiveRetentionYears != nil {
		docType.ActiveRetentionYears = *req.ActiveRetentionYears
	}
	if req.InactiveRetentionYears != nil {
		docType.InactiveRetentionYears = *req.InactiveRetentionYears
	}
	if req.DispositionAction != nil {
		docType.DispositionAction = *req.DispositionAction
	}
	if err := s.repo.Update(ctx, docType); err != nil {
		return nil, mapRepoError(err, "document type not found", "failed to update document type")
	}
	s.audit.Record(ctx, actor, "Updated document type: "+docType.Name, docType.Name)
	return docType, nil
}

// Delete removes a document type. Documents keep their stamped schedule.
func (s *DocumentTypeService) Delete(ctx context.Context, actor *models.Principal, id string) error {
	if err := requireOrgPermission(actor, models.CapabilityManageDocuments); err != nil {
		return err
	}
	docType, err := s.repo.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return mapRepoError(err, "document type not found", "failed to load document type")
	}
	if err := s.repo.Delete(ctx, actor.OrganizationID, id); err != nil {
		return mapRepoError(err, "document type not found", "failed to delete document type")
	}
	s.audit.Record(ctx, actor, "Deleted document type: "+docType.Name, docType.Name)
	return nil
}
