package service

import (
	"context"
	"testing"
	"time"

	"nine-pos/internal/logging"
	"nine-pos/internal/models"
	"nine-pos/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDashboardSummary(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewDashboardService(db, logging.Discard(), nil, 0)

	empty, err := svc.Summary(context.Background())
	require.NoError(t, err)
	requireDecimal(t, "0", empty.TotalSales)
	require.Zero(t, empty.TotalProducts)

	u := testutil.CreateUser(t, db, "Ada", "ada@example.com", "hunter22", models.RoleAdmin)
	p := testutil.CreateProduct(t, db, "Tea", "2", 10)
	testutil.CreateSale(t, db, u.ID, time.Now(), "12.50", map[*models.Product]int{p: 1})
	testutil.CreateSale(t, db, u.ID, time.Now(), "7.25", map[*models.Product]int{p: 1})

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	requireDecimal(t, "19.75", s.TotalSales)
	require.Equal(t, int64(1), s.TotalProducts)
	require.Equal(t, int64(1), s.TotalUsers)
}

func TestDashboardSummaryUsesCache(t *testing.T) {
	db := testutil.NewDB(t)
	cache := &fakeCache{}
	svc := NewDashboardService(db, logging.Discard(), cache, time.Minute)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)

	cache.summary = &DashboardSummary{TotalSales: decimal.NewFromInt(42), TotalProducts: 7}
	second, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), second.TotalProducts)
	require.NotEqual(t, first.TotalProducts, second.TotalProducts)
	require.Equal(t, 1, cache.sets)
}
