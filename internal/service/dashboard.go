package service

import (
	"context"
	"time"

	"nine-pos/internal/database"
	"nine-pos/internal/logging"
	"nine-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DashboardSummary is the admin landing-page numbers.
type DashboardSummary struct {
	TotalSales    decimal.Decimal `json:"totalSales"`
	TotalProducts int64           `json:"totalProducts"`
	TotalUsers    int64           `json:"totalUsers"`
}

// SummaryCache stores the dashboard summary between writes. A nil
// SummaryCache disables caching.
type SummaryCache interface {
	Get(ctx context.Context) (*DashboardSummary, bool, error)
	Set(ctx context.Context, summary *DashboardSummary, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

func invalidateSummary(ctx context.Context, cache SummaryCache, log *logrus.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		logging.LogError(log, "service", "invalidateSummary", "dashboard cache", nil, err)
	}
}

type DashboardService struct {
	db    *gorm.DB
	log   *logrus.Logger
	cache SummaryCache
	ttl   time.Duration
}

func NewDashboardService(db *gorm.DB, log *logrus.Logger, cache SummaryCache, ttl time.Duration) *DashboardService {
	return &DashboardService{db: db, log: log, cache: cache, ttl: ttl}
}

// Summary returns lifetime revenue and the product and user counts. Cache
// failures are logged and fall through to the database.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			logging.LogError(s.log, "service", "DashboardService.Summary", "cache get", nil, err)
		} else if ok {
			return cached, nil
		}
	}

	totals, err := database.GetLifetimeSalesTotals(ctx, s.db)
	if err != nil {
		return nil, persistence("sum sales", err)
	}
	products, err := database.CountRows(ctx, s.db, &models.Product{})
	if err != nil {
		return nil, persistence("count products", err)
	}
	users, err := database.CountRows(ctx, s.db, &models.User{})
	if err != nil {
		return nil, persistence("count users", err)
	}

	summary := &DashboardSummary{
		TotalSales:    totals.TotalRevenue,
		TotalProducts: products,
		TotalUsers:    users,
	}
	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, summary, s.ttl); err != nil {
			logging.LogError(s.log, "service", "DashboardService.Summary", "cache set", nil, err)
		}
	}
	return summary, nil
}
