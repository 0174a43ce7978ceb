package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type memoryCacheRepo struct {
	items    map[string][]byte
	ttls     map[string]time.Duration
	patterns []string
	getErr   error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

type dashboardRepoStub struct {
	filters []models.DocumentFilter
	calls   int
	err     error
}

func (s *dashboardRepoStub) DocumentTotals(ctx context.Context, filter models.DocumentFilter, since time.Time) (int, int, error) {
	s.calls++
	s.filters = append(s.filters, filter)
	return 12, 3, s.err
}

func (s *dashboardRepoStub) RecentFiles(ctx context.Context, filter models.DocumentFilter, limit int) ([]models.RecentFile, error) {
	return []models.RecentFile{{ID: "doc-1", Title: "Budget"}}, nil
}

func (s *dashboardRepoStub) CountUsers(ctx context.Context, organizationID string) (int, error) {
	return 7, nil
}

func (s *dashboardRepoStub) TopTags(ctx context.Context, filter models.DocumentFilter, limit int) ([]models.TagUsage, error) {
	return nil, nil
}

func (s *dashboardRepoStub) LifecycleCounts(ctx context.Context, filter models.DocumentFilter, now time.Time) (map[models.LifecycleStatus]int, error) {
	return map[models.LifecycleStatus]int{models.LifecycleActive: 10, models.LifecycleReadyForDisposition: 2}, nil
}

func newDashboardFixture() (*DashboardService, *dashboardRepoStub, *memoryCacheRepo) {
	repo := &dashboardRepoStub{}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, NewMetricsService(), time.Minute, nil, true)
	svc := NewDashboardService(DashboardServiceParams{Repo: repo, Cache: cache, Config: DashboardServiceConfig{CacheTTL: 2 * time.Minute}})
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, cacheRepo
}

func TestDashboardServiceGetStatsCachesPerScope(t *testing.T) {
	svc, repo, cacheRepo := newDashboardFixture()

	stats, hit, err := svc.GetStats(context.Background(), managerPrincipal())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 12, stats.TotalDocuments)
	assert.Equal(t, 3, stats.RecentUploadsCount)
	assert.Equal(t, 7, stats.TotalUsers)
	assert.NotNil(t, stats.TopTags)
	assert.Equal(t, 2, stats.Lifecycle[models.LifecycleReadyForDisposition])
	assert.Empty(t, repo.filters[0].ScopeUserID)
	assert.Equal(t, 2*time.Minute, cacheRepo.ttls["dashboard:org-1:all"])

	cached, hit, err := svc.GetStats(context.Background(), managerPrincipal())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stats.TotalDocuments, cached.TotalDocuments)
	assert.Equal(t, 1, repo.calls)

	_, hit, err = svc.GetStats(context.Background(), memberPrincipal("u-2"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "u-2", repo.filters[1].ScopeUserID)
	assert.Contains(t, cacheRepo.items, "dashboard:org-1:u-2")
}

func TestDashboardServiceInvalidateDropsOrganizationEntries(t *testing.T) {
	svc, repo, cacheRepo := newDashboardFixture()

	_, _, err := svc.GetStats(context.Background(), managerPrincipal())
	require.NoError(t, err)
	svc.Invalidate(context.Background(), testOrgID)
	assert.Equal(t, []string{"dashboard:org-1:*"}, cacheRepo.patterns)
	assert.Empty(t, cacheRepo.items)

	_, hit, err := svc.GetStats(context.Background(), managerPrincipal())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)

	var nilService *DashboardService
	assert.NotPanics(t, func() { nilService.Invalidate(context.Background(), testOrgID) })
}

func TestDashboardServiceDegradesWhenCacheFails(t *testing.T) {
	svc, repo, cacheRepo := newDashboardFixture()
	cacheRepo.getErr = errors.New("redis down")

	_, hit, err := svc.GetStats(context.Background(), managerPrincipal())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, repo.calls)

	repo.err = errors.New("db down")
	cacheRepo.items = map[string][]byte{}
	_, _, err = svc.GetStats(context.Background(), memberPrincipal("u-2"))
	assertAppError(t, err, appErrors.ErrInternal)
}
