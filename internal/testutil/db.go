// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nine-pos/internal/auth"
	"nine-pos/internal/database"
	"nine-pos/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a hashed password.
func CreateUser(t *testing.T, db *gorm.DB, name, email, password, role string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	u := &models.User{Name: name, Email: email, Password: hash, Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateProduct inserts a product.
func CreateProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "General"}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateSale inserts a sale with one line per product, bypassing stock
// checks. Used to seed report fixtures at fixed dates.
func CreateSale(t *testing.T, db *gorm.DB, cashierID uint, date time.Time, total string, lines map[*models.Product]int) *models.Sale {
	t.Helper()
	s := &models.Sale{
		TotalAmount: decimal.RequireFromString(total),
		Date:        date.UTC(),
		CashierID:   cashierID,
	}
	require.NoError(t, db.Omit("Cashier", "SaleItems").Create(s).Error)

	for p, qty := range lines {
		item := models.SaleItem{
			SaleID:    s.ID,
			ProductID: p.ID,
			Quantity:  qty,
			UnitPrice: p.Price,
			Subtotal:  p.Price.Mul(decimal.NewFromInt(int64(qty))),
		}
		require.NoError(t, db.Omit("Product").Create(&item).Error)
	}
	return s
}

// Stock reloads a product's stock.
func Stock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.Stock
}
