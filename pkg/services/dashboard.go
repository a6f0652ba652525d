package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

const (
	dashboardCacheKey = "tramite:dashboard"
	dashboardCacheTTL = 60 * time.Second
)

// Cache is the small key-value surface the dashboard needs. Get reports a
// miss with found=false, not an error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Dashboard serves the aggregate numbers behind the admin overview, cached
// for a short window because every page load asks for them.
type Dashboard struct {
	persistence persistence.Persistence
	cache       Cache
	logger      *slog.Logger
}

// NewDashboard creates a new dashboard service. A nil cache disables
// caching.
func NewDashboard(persistence persistence.Persistence, cache Cache, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		persistence: persistence,
		cache:       cache,
		logger:      logger.With("module", "dashboard_service"),
	}
}

// Summary returns the dashboard aggregates, from cache when fresh. Cache
// failures degrade to a direct query.
func (d *Dashboard) Summary(ctx context.Context) (*models.DashboardData, error) {
	if d.cache != nil {
		cached, found, err := d.cache.Get(ctx, dashboardCacheKey)
		if err != nil {
			d.logger.WarnContext(ctx, "dashboard cache read failed", "error", err)
		} else if found {
			var data models.DashboardData

			err = json.Unmarshal(cached, &data)
			if err == nil {
				return &data, nil
			}

			d.logger.WarnContext(ctx, "dashboard cache entry malformed", "error", err)
		}
	}

	data, err := d.persistence.Dashboard().Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard: %w", err)
	}

	if d.cache != nil {
		encoded, err := json.Marshal(data)
		if err == nil {
			err = d.cache.Set(ctx, dashboardCacheKey, encoded, dashboardCacheTTL)
		}

		if err != nil {
			d.logger.WarnContext(ctx, "dashboard cache write failed", "error", err)
		}
	}

	return data, nil
}
