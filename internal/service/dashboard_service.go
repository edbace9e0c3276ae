package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/internal/models"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

const (
	dashboardCacheKey = "dashboard:stats"
	dashboardRecent   = 5
)

type dashboardStatsStore interface {
	Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes lifecycle counters and recent activity.
type DashboardService struct {
	stats  dashboardStatsStore
	reads  Stores
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Stats  dashboardStatsStore
	Reads  Stores
	Cache  *CacheService
	Logger *zap.Logger
	Config DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		stats:  params.Stats,
		reads:  params.Reads,
		cache:  params.Cache,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Summary returns dashboard statistics and whether they came from cache.
// Concurrent misses share one computation.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardStats, bool, error) {
	var cached models.DashboardStats
	value, hit, err := s.cache.Remember(ctx, dashboardCacheKey, &cached, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.compose(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	return value.(*models.DashboardStats), hit, nil
}

// Invalidate drops the cached summary.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context) (*models.DashboardStats, error) {
	now := s.now()
	stats, err := s.stats.Stats(ctx, now)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to compute dashboard statistics")
	}
	last, err := s.reads.Sequences.Current(ctx, now.Year())
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load correlative sequence")
	}
	stats.LastCorrelative = last
	requests, _, err := s.reads.Requests.List(ctx, models.RequestFilter{Page: 1, PageSize: dashboardRecent})
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load recent requests")
	}
	responses, _, err := s.reads.Responses.List(ctx, models.ResponseFilter{Page: 1, PageSize: dashboardRecent})
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load recent responses")
	}
	if requests == nil {
		requests = []models.RequestSummary{}
	}
	if responses == nil {
		responses = []models.ResponseSummary{}
	}
	stats.RecentRequests = requests
	stats.RecentResponses = responses
	return stats, nil
}
