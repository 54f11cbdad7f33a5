package service

import (
	"context"

	"nine-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddItemRequest appends a product line to an existing sale.
type AddItemRequest struct {
	SaleID    uint `json:"saleId"`
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// AddItem decrements stock, logs a "sale" ledger row and grows the sale
// total by the line subtotal, all in one transaction.
func (s *SaleService) AddItem(ctx context.Context, req AddItemRequest) (*models.SaleItem, error) {
	if req.SaleID == 0 {
		return nil, invalid("saleId", "sale ID must be a valid number")
	}
	if req.ProductID == 0 {
		return nil, invalid("productId", "product ID must be a valid number")
	}
	if req.Quantity < 1 {
		return nil, invalid("quantity", "quantity must be at least 1")
	}

	var item models.SaleItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, req.SaleID).Error; err != nil {
			return notFoundOr("load sale", "sale", req.SaleID, err)
		}

		products, err := lockProducts(tx, []uint{req.ProductID})
		if err != nil {
			return err
		}
		p, ok := products[req.ProductID]
		if !ok {
			return &NotFoundError{Resource: "product", ID: req.ProductID}
		}

		prev := p.Stock
		if _, err := DecreaseStock(tx, p, req.Quantity); err != nil {
			return err
		}
		if err := recordStockChange(tx, p.ID, models.StockActionSale, req.Quantity, prev, p.Stock); err != nil {
			return err
		}

		item = models.SaleItem{
			SaleID:    sale.ID,
			ProductID: p.ID,
			Quantity:  req.Quantity,
			UnitPrice: p.Price,
			Subtotal:  p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		}
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return persistence("create sale item", err)
		}

		total := sale.TotalAmount.Add(item.Subtotal)
		if err := tx.Model(&sale).Update("total_amount", total).Error; err != nil {
			return persistence("update sale total", err)
		}
		item.Product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"saleId": req.SaleID, "productId": req.ProductID, "quantity": req.Quantity}).Info("sale item added")
	invalidateSummary(ctx, s.cache, s.log)
	return &item, nil
}

// SaleItemPage is one page of a sale's items.
type SaleItemPage struct {
	SaleItems      []models.SaleItem `json:"saleItems"`
	TotalSaleItems int64             `json:"totalSaleItems"`
	TotalPages     int               `json:"totalPages"`
	CurrentPage    int               `json:"currentPage"`
}

// ListItems pages through the items of one sale, optionally matching
// product names against search.
func (s *SaleService) ListItems(ctx context.Context, saleID uint, search string, p Page) (*SaleItemPage, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		q = q.Where("sale_items.sale_id = ?", saleID)
		if search != "" {
			q = q.Joins("JOIN products ON products.id = sale_items.product_id").
				Where("products.name LIKE ?", "%"+search+"%")
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.SaleItem{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, persistence("count sale items", err)
	}

	page := p.normalize()
	var items []models.SaleItem
	err := s.db.WithContext(ctx).Model(&models.SaleItem{}).Scopes(filter).
		Preload("Product").
		Order("sale_items.id").
		Limit(page.Limit).Offset(page.offset()).
		Find(&items).Error
	if err != nil {
		return nil, persistence("list sale items", err)
	}
	return &SaleItemPage{
		SaleItems:      items,
		TotalSaleItems: total,
		TotalPages:     page.totalPages(total),
		CurrentPage:    page.Number,
	}, nil
}

// DeleteItem removes one line from a sale, restoring its stock with a
// "refund" ledger row and shrinking the sale total. The sale itself stays,
// even when this was its last line.
func (s *SaleService) DeleteItem(ctx context.Context, itemID uint) (*RestoredItem, error) {
	var restored RestoredItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.SaleItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return notFoundOr("load sale item", "sale item", itemID, err)
		}

		// Sale first, then the item again under lock.
		var sale models.Sale
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, item.SaleID).Error; err != nil {
			return notFoundOr("load sale", "sale", item.SaleID, err)
		}
		item = models.SaleItem{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Product").First(&item, itemID).Error; err != nil {
			return notFoundOr("load sale item", "sale item", itemID, err)
		}

		products, err := lockProducts(tx, []uint{item.ProductID})
		if err != nil {
			return err
		}
		if p, ok := products[item.ProductID]; ok {
			prev := p.Stock
			if _, err := IncreaseStock(tx, p, item.Quantity); err != nil {
				return err
			}
			if err := recordStockChange(tx, p.ID, models.StockActionRefund, item.Quantity, prev, p.Stock); err != nil {
				return err
			}
		}

		res := tx.Delete(&models.SaleItem{}, item.ID)
		if res.Error != nil {
			return persistence("delete sale item", res.Error)
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Resource: "sale item", ID: item.ID}
		}
		total := decimal.Max(decimal.Zero, sale.TotalAmount.Sub(item.Subtotal))
		if err := tx.Model(&sale).Update("total_amount", total).Error; err != nil {
			return persistence("update sale total", err)
		}

		restored = RestoredItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.UnitPrice, ProductName: "Unknown Product"}
		if item.Product != nil {
			restored.ProductName = item.Product.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateSummary(ctx, s.cache, s.log)
	return &restored, nil
}
