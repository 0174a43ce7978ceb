package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

const (
	defaultLogLimit = 20
	maxLogLimit     = 100
)

type auditRepository interface {
	CreateMany(ctx context.Context, entries []models.Log) error
	List(ctx context.Context, filter models.LogFilter) ([]models.Log, int, error)
}

// AuditEntry is one action to append to the audit trail.
type AuditEntry struct {
	Action string
	Target string
}

// AuditService appends to and reads the organization audit trail.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record appends one entry. Failures are logged and never surface to the caller.
func (s *AuditService) Record(ctx context.Context, actor *models.Principal, action, target string) {
	s.RecordMany(ctx, actor, []AuditEntry{{Action: action, Target: target}})
}

// RecordMany appends several entries with one insert.
func (s *AuditService) RecordMany(ctx context.Context, actor *models.Principal, entries []AuditEntry) {
	if s == nil || s.repo == nil || actor == nil || !actor.HasOrganization() || len(entries) == 0 {
		return
	}
	userID := actor.UserID
	logs := make([]models.Log, 0, len(entries))
	for _, entry := range entries {
		log := models.Log{
			UserID:         &userID,
			OrganizationID: actor.OrganizationID,
			Action:         entry.Action,
			UserRole:       actor.RoleLabel(),
		}
		if entry.Target != "" {
			target := entry.Target
			log.TargetName = &target
		}
		logs = append(logs, log)
	}
	if err := s.repo.CreateMany(ctx, logs); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("organization_id", actor.OrganizationID),
			zap.String("action", entries[0].Action),
			zap.Int("entries", len(entries)),
			zap.Error(err))
	}
}

// GetLogs returns one page of the caller's organization audit trail.
func (s *AuditService) GetLogs(ctx context.Context, actor *models.Principal, query dto.LogQuery) (*dto.LogListResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit == 0 {
		limit = defaultLogLimit
	}
	if limit < 1 || limit > maxLogLimit {
		return nil, appErrors.Clone(appErrors.ErrValidation, "limit must be between 1 and 100")
	}

	logs, total, err := s.repo.List(ctx, models.LogFilter{OrganizationID: actor.OrganizationID, Page: page, Limit: limit})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list logs")
	}
	if logs == nil {
		logs = []models.Log{}
	}
	window := models.NewPagination(page, limit, total)
	return &dto.LogListResponse{
		Logs:       logs,
		TotalCount: total,
		TotalPages: window.TotalPages,
		Window:     window,
	}, nil
}
