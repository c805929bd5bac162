package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/pkg/config"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

type daySummaryStore interface {
	DaySummary(ctx context.Context, companyID string, day time.Time) (*models.CompanyDaySummary, error)
}

// DashboardService serves per-company day summaries with a Redis
// read-through cache. Cache failures degrade to direct queries.
type DashboardService struct {
	events  daySummaryStore
	cache   *redis.Client
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
}

// NewDashboardService constructs the service. The cache client may be nil.
func NewDashboardService(events daySummaryStore, cache *redis.Client, metrics *MetricsService, logger *zap.Logger, cfg config.DashboardConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{events: events, cache: cache, metrics: metrics, logger: logger, ttl: ttl}
}

// Summary returns the company's punch activity for one day.
func (s *DashboardService) Summary(ctx context.Context, actor *models.JWTClaims, day time.Time) (*models.CompanyDaySummary, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager:
	default:
		return nil, appErrors.ErrForbidden
	}

	key := fmt.Sprintf("dashboard:summary:%s:%s", actor.CompanyID, day.UTC().Format("2006-01-02"))
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			s.metrics.RecordCacheOperation(true)
			var summary models.CompanyDaySummary
			if err := json.Unmarshal([]byte(raw), &summary); err == nil {
				return &summary, nil
			}
			s.logger.Warn("discarding corrupt dashboard cache entry", zap.String("key", key))
		case err == redis.Nil:
			s.metrics.RecordCacheOperation(false)
		default:
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	summary, err := s.events.DaySummary(ctx, actor.CompanyID, day.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build day summary")
	}

	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return summary, nil
}
