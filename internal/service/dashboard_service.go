package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type dashboardRepository interface {
	DocumentTotals(ctx context.Context, filter models.DocumentFilter, since time.Time) (int, int, error)
	RecentFiles(ctx context.Context, filter models.DocumentFilter, limit int) ([]models.RecentFile, error)
	CountUsers(ctx context.Context, organizationID string) (int, error)
	TopTags(ctx context.Context, filter models.DocumentFilter, limit int) ([]models.TagUsage, error)
	LifecycleCounts(ctx context.Context, filter models.DocumentFilter, now time.Time) (map[models.LifecycleStatus]int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL     time.Duration
	RecentWindow time.Duration
	RecentLimit  int
	TopTagsLimit int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo   dashboardRepository
	Cache  *CacheService
	Logger *zap.Logger
	Config DashboardServiceConfig
}

// DashboardService composes organization statistics and caches them per scope.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 24 * time.Hour
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	if cfg.TopTagsLimit <= 0 {
		cfg.TopTagsLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: params.Repo, cache: params.Cache, logger: logger, now: time.Now, cfg: cfg}
}

// GetStats returns the caller's dashboard and whether it was served from cache.
// Callers without manage-documents see statistics over their own documents only.
func (s *DashboardService) GetStats(ctx context.Context, actor *models.Principal) (*models.DashboardStats, bool, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, false, err
	}
	filter := models.DocumentFilter{OrganizationID: actor.OrganizationID}
	scope := "all"
	if !actor.Can(models.CapabilityManageDocuments) {
		filter.ScopeUserID = actor.UserID
		scope = actor.UserID
	}
	key := dashboardCacheKey(actor.OrganizationID, scope)

	var cached models.DashboardStats
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	now := s.now().UTC()
	total, recent, err := s.repo.DocumentTotals(ctx, filter, now.Add(-s.cfg.RecentWindow))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to count documents")
	}
	files, err := s.repo.RecentFiles(ctx, filter, s.cfg.RecentLimit)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load recent files")
	}
	users, err := s.repo.CountUsers(ctx, actor.OrganizationID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to count users")
	}
	tags, err := s.repo.TopTags(ctx, filter, s.cfg.TopTagsLimit)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load top tags")
	}
	lifecycle, err := s.repo.LifecycleCounts(ctx, filter, now)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to count lifecycle states")
	}

	if files == nil {
		files = []models.RecentFile{}
	}
	if tags == nil {
		tags = []models.TagUsage{}
	}
	stats := &models.DashboardStats{
		TotalDocuments:     total,
		RecentUploadsCount: recent,
		RecentFiles:        files,
		TotalUsers:         users,
		TopTags:            tags,
		Lifecycle:          lifecycle,
		GeneratedAt:        now,
	}
	_ = s.cache.Set(ctx, key, stats, s.cfg.CacheTTL)
	return stats, false, nil
}

// Invalidate drops every cached dashboard of the organization.
func (s *DashboardService) Invalidate(ctx context.Context, organizationID string) {
	if s == nil || organizationID == "" {
		return
	}
	_ = s.cache.Invalidate(ctx, dashboardCacheKey(organizationID, "*"))
}

func dashboardCacheKey(organizationID, scope string) string {
	return CacheKey("dashboard", organizationID, scope)
}
