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
	"gorm.io/gorm"
)

type fakeCache struct {
	summary     *DashboardSummary
	gets, sets  int
	invalidated int
}

func (c *fakeCache) Get(context.Context) (*DashboardSummary, bool, error) {
	c.gets++
	return c.summary, c.summary != nil, nil
}

func (c *fakeCache) Set(_ context.Context, s *DashboardSummary, _ time.Duration) error {
	c.sets++
	c.summary = s
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidated++
	c.summary = nil
	return nil
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func historyFor(t *testing.T, db *gorm.DB, productID uint) []models.StockHistory {
	t.Helper()
	var rows []models.StockHistory
	require.NoError(t, db.Where("product_id = ?", productID).Order("id").Find(&rows).Error)
	return rows
}

func newSaleService(t *testing.T) (*SaleService, *gorm.DB, *models.User) {
	t.Helper()
	db := testutil.NewDB(t)
	cashier := testutil.CreateUser(t, db, "Cara", "cara@example.com", "secret1", models.RoleCashier)
	return NewSaleService(db, logging.Discard(), nil), db, cashier
}
