package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/repository"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type transferRepository interface {
	FindByID(ctx context.Context, organizationID, id string) (*models.Document, error)
	FindByControlNumber(ctx context.Context, organizationID, controlNumber string) (*models.Document, error)
	TagsFor(ctx context.Context, documentIDs []string) ([]repository.DocumentTagRow, error)
	Transfer(ctx context.Context, params repository.TransferParams, authorize func(models.Document) error) ([]models.Document, error)
	Receive(ctx context.Context, organizationID, id, receiverID string) (*models.Document, error)
	RecordReview(ctx context.Context, params repository.ReviewParams) (*models.Document, error)
}

type remarkRepository interface {
	ListByDocument(ctx context.Context, documentID string) ([]models.Remark, error)
}

type sendTagGate interface {
	AuthorizeSendTags(ctx context.Context, organizationID string, recipientCaps models.Capabilities, tagIDs []string) ([]models.Tag, error)
	GetGlobalTags(ctx context.Context) ([]models.Tag, error)
}

// TransferServiceParams groups constructor dependencies.
type TransferServiceParams struct {
	Documents transferRepository
	Remarks   remarkRepository
	Users     orgUserRepository
	Roles     userRoleLister
	Tags      sendTagGate
	Audit     *AuditService
	Dashboard *DashboardService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// TransferService moves documents between holders and records reviews.
type TransferService struct {
	docs      transferRepository
	remarks   remarkRepository
	users     orgUserRepository
	roles     userRoleLister
	tags      sendTagGate
	audit     *AuditService
	dashboard *DashboardService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTransferService constructs the transfer service.
func NewTransferService(params TransferServiceParams) *TransferService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &TransferService{
		docs:      params.Documents,
		remarks:   params.Remarks,
		users:     params.Users,
		roles:     params.Roles,
		tags:      params.Tags,
		audit:     params.Audit,
		dashboard: params.Dashboard,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

type sendRequest struct {
	documentIDs []string
	recipientID string
	tagIDs      []string
	tagsToKeep  []string
}

// Send puts one document in transit toward a recipient of the caller's organization.
func (s *TransferService) Send(ctx context.Context, actor *models.Principal, documentID string, req dto.SendDocumentRequest) (*models.Document, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid send payload"); err != nil {
		return nil, err
	}
	docs, err := s.send(ctx, actor, sendRequest{
		documentIDs: []string{documentID},
		recipientID: req.RecipientID,
		tagIDs:      req.TagIDs,
		tagsToKeep:  req.TagsToKeep,
	})
	if err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// SendMultiple sends several documents in one transaction. One unauthorized or
// missing document aborts the whole batch.
func (s *TransferService) SendMultiple(ctx context.Context, actor *models.Principal, req dto.SendMultipleRequest) ([]models.Document, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid send payload"); err != nil {
		return nil, err
	}
	return s.send(ctx, actor, sendRequest{
		documentIDs: uniqueStrings(req.DocumentIDs),
		recipientID: req.RecipientID,
		tagIDs:      req.TagIDs,
	})
}

func (s *TransferService) resolveRecipient(ctx context.Context, actor *models.Principal, recipientID string) (*models.User, error) {
	if recipientID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot send a document to yourself")
	}
	recipient, err := s.users.FindInOrganization(ctx, actor.OrganizationID, recipientID)
	if err != nil {
		return nil, mapRepoError(err, "recipient not found", "failed to load recipient")
	}
	return recipient, nil
}

func (s *TransferService) send(ctx context.Context, actor *models.Principal, req sendRequest) ([]models.Document, error) {
	recipient, err := s.resolveRecipient(ctx, actor, req.recipientID)
	if err != nil {
		return nil, err
	}
	recipientRoles, err := s.roles.ListByUser(ctx, recipient.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load recipient roles")
	}
	tags, err := s.tags.AuthorizeSendTags(ctx, actor.OrganizationID, models.EffectiveCapabilities(recipientRoles), req.tagIDs)
	if err != nil {
		return nil, err
	}

	params := repository.TransferParams{
		OrganizationID: actor.OrganizationID,
		DocumentIDs:    req.documentIDs,
		RecipientID:    recipient.ID,
		TagsToKeep:     req.tagsToKeep,
	}
	for _, tag := range tags {
		params.TagIDs = append(params.TagIDs, tag.ID)
		if tag.Is(models.TagForReview) {
			requester := actor.UserID
			params.ReviewRequesterID = &requester
		}
	}

	now := s.now()
	docs, err := s.docs.Transfer(ctx, params, authorizeSend(actor, now))
	if err != nil {
		return nil, mapRepoError(err, "document not found", "failed to send documents")
	}
	if err := decorateDocuments(ctx, s.docs, docs, now); err != nil {
		return nil, err
	}

	action := "Sent Document to " + recipient.FullName()
	entries := make([]AuditEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, AuditEntry{Action: action, Target: doc.Title})
	}
	s.audit.RecordMany(ctx, actor, entries)
	s.metrics.DocumentsTransferred("send", len(docs))
	s.dashboard.Invalidate(ctx, actor.OrganizationID)
	return docs, nil
}

// Receive completes a transfer for the intended holder.
func (s *TransferService) Receive(ctx context.Context, actor *models.Principal, documentID string) (*models.Document, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	doc, err := s.docs.FindByID(ctx, actor.OrganizationID, documentID)
	if err != nil {
		return nil, mapRepoError(err, "document not found", "failed to load document")
	}
	if !doc.InTransit {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "document is not in transit")
	}
	if doc.IntendedHolderID == nil || *doc.IntendedHolderID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document is not addressed to you")
	}

	received, err := s.docs.Receive(ctx, actor.OrganizationID, documentID, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "document is no longer in transit to you")
		}
		return nil, appErrors.Internal(err, "failed to receive document")
	}
	docs := []models.Document{*received}
	if err := decorateDocuments(ctx, s.docs, docs, s.now()); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, "Received Document", received.Title)
	s.metrics.DocumentsTransferred("receive", 1)
	s.dashboard.Invalidate(ctx, actor.OrganizationID)
	return &docs[0], nil
}

// Review records a review outcome, swaps the review tags and optionally sends
// the document on to another user or back to whoever asked for the review.
// The forward target is checked before anything is written, and the review and
// the forward commit together.
func (s *TransferService) Review(ctx context.Context, actor *models.Principal, documentID string, req dto.ReviewDocumentRequest) (*models.Document, error) {
	if err := requireOrgPermission(actor, models.CapabilityManageDocuments); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid review payload"); err != nil {
		return nil, err
	}
	forwardTo := ""
	if req.ForwardTo != nil {
		forwardTo = strings.TrimSpace(*req.ForwardTo)
	}
	if forwardTo != "" && req.ReturnToRequester {
		return nil, appErrors.Clone(appErrors.ErrValidation, "choose either forwardTo or returnToRequester")
	}

	doc, err := s.docs.FindByID(ctx, actor.OrganizationID, documentID)
	if err != nil {
		return nil, mapRepoError(err, "document not found", "failed to load document")
	}
	if req.ReturnToRequester {
		if doc.ReviewRequesterID == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "document has no review requester")
		}
		forwardTo = *doc.ReviewRequesterID
	}

	now := s.now()
	params := repository.ReviewParams{}
	var recipient *models.User
	if forwardTo != "" {
		if recipient, err = s.resolveRecipient(ctx, actor, forwardTo); err != nil {
			return nil, err
		}
		params.Forward = &repository.ReviewForward{
			OrganizationID: actor.OrganizationID,
			RecipientID:    recipient.ID,
			Authorize:      authorizeSend(actor, now),
		}
	}

	global, err := s.tags.GetGlobalTags(ctx)
	if err != nil {
		return nil, err
	}
	for _, tag := range global {
		switch {
		case tag.Is(string(req.Status)):
			params.StatusTagID = tag.ID
		case tag.Is(models.TagForReview) || models.IsReviewOutcomeTag(tag.Name):
			params.DetachTagIDs = append(params.DetachTagIDs, tag.ID)
		}
	}
	if params.StatusTagID == "" {
		return nil, appErrors.Internal(fmt.Errorf("global tag %q missing", req.Status), "review status tag is not configured")
	}

	params.Remark = &models.Remark{
		DocumentID: doc.ID,
		AuthorID:   actor.UserID,
		AuthorName: actor.FullName(),
		Status:     req.Status,
		Content:    req.Remarks,
	}
	forwarded, err := s.docs.RecordReview(ctx, params)
	if err != nil {
		return nil, mapRepoError(err, "document not found", "failed to record review")
	}

	entries := []AuditEntry{{Action: fmt.Sprintf("Reviewed Document: %s", req.Status), Target: doc.Title}}
	s.metrics.DocumentsTransferred("review", 1)
	result := *doc
	result.ReviewRequesterID = nil
	if forwarded != nil {
		result = *forwarded
		entries = append(entries, AuditEntry{Action: "Sent Document to " + recipient.FullName(), Target: doc.Title})
		s.metrics.DocumentsTransferred("send", 1)
	}
	s.audit.RecordMany(ctx, actor, entries)
	s.dashboard.Invalidate(ctx, actor.OrganizationID)

	docs := []models.Document{result}
	if err := decorateDocuments(ctx, s.docs, docs, now); err != nil {
		return nil, err
	}
	return &docs[0], nil
}

func authorizeSend(actor *models.Principal, now time.Time) func(models.Document) error {
	return func(doc models.Document) error {
		if !actor.Can(models.CapabilityManageDocuments) && !doc.IsHeldBy(actor.UserID) {
			return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("not allowed to send document %q (%s)", doc.Title, doc.ID))
		}
		if doc.Lifecycle(now) == models.LifecycleDestroyed {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("document %q (%s) has been destroyed", doc.Title, doc.ID))
		}
		return nil
	}
}

// GetRemarks returns the review trail of a visible document.
func (s *TransferService) GetRemarks(ctx context.Context, actor *models.Principal, documentID string) ([]models.Remark, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	doc, err := s.docs.FindByID(ctx, actor.OrganizationID, documentID)
	if err != nil {
		return nil, mapRepoError(err, "document not found", "failed to load document")
	}
	if !canSee(actor, doc) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	remarks, err := s.remarks.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list remarks")
	}
	if remarks == nil {
		remarks = []models.Remark{}
	}
	return remarks, nil
}

// GetByControlNumber resolves a visible document by its control number.
func (s *TransferService) GetByControlNumber(ctx context.Context, actor *models.Principal, controlNumber string) (*models.Document, error) {
	doc, err := s.resolveControlNumber(ctx, actor, controlNumber)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, doc) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	docs := []models.Document{*doc}
	if err := decorateDocuments(ctx, s.docs, docs, s.now()); err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// SendByControlNumber sends the document carrying the control number.
func (s *TransferService) SendByControlNumber(ctx context.Context, actor *models.Principal, controlNumber string, req dto.SendDocumentRequest) (*models.Document, error) {
	doc, err := s.resolveControlNumber(ctx, actor, controlNumber)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, actor, doc.ID, req)
}

// ReceiveByControlNumber receives the document carrying the control number.
func (s *TransferService) ReceiveByControlNumber(ctx context.Context, actor *models.Principal, controlNumber string) (*models.Document, error) {
	doc, err := s.resolveControlNumber(ctx, actor, controlNumber)
	if err != nil {
		return nil, err
	}
	return s.Receive(ctx, actor, doc.ID)
}

func (s *TransferService) resolveControlNumber(ctx context.Context, actor *models.Principal, controlNumber string) (*models.Document, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	controlNumber = strings.TrimSpace(controlNumber)
	if controlNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "control number is required")
	}
	doc, err := s.docs.FindByControlNumber(ctx, actor.OrganizationID, controlNumber)
	if err != nil {
		return nil, mapRepoError(err, fmt.Sprintf("no document with control number %s", controlNumber), "failed to load document")
	}
	return doc, nil
}
