package database

import (
	"context"
	"time"

	"nine-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesTotals is the revenue and order count over a set of sales.
type SalesTotals struct {
	TotalRevenue decimal.Decimal
	TotalCount   int64
}

// GetSalesTotals sums sales whose date falls within [start, end].
func GetSalesTotals(ctx context.Context, db *gorm.DB, start, end time.Time) (*SalesTotals, error) {
	q := db.WithContext(ctx).Model(&models.Sale{}).
		Where("date BETWEEN ? AND ?", start.UTC(), end.UTC())
	return salesTotals(q)
}

// GetLifetimeSalesTotals sums every recorded sale.
func GetLifetimeSalesTotals(ctx context.Context, db *gorm.DB) (*SalesTotals, error) {
	return salesTotals(db.WithContext(ctx).Model(&models.Sale{}))
}

func salesTotals(q *gorm.DB) (*SalesTotals, error) {
	var row struct {
		Revenue    decimal.Decimal
		SalesCount int64
	}

	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := q.Select("COALESCE(SUM(total_amount), 0) AS revenue, COUNT(*) AS sales_count").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &SalesTotals{TotalRevenue: row.Revenue, TotalCount: row.SalesCount}, nil
}

// CountRows counts the rows of the model's table.
func CountRows(ctx context.Context, db *gorm.DB, model any) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(model).Count(&n).Error
	return n, err
}
