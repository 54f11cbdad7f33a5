package service

import (
	"context"
	"time"

	"nine-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var hundred = decimal.NewFromInt(100)

// SaleLine is one requested basket entry.
type SaleLine struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// Discount is applied once to the basket subtotal.
type Discount struct {
	Type   string          `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Reason string          `json:"reason"`
}

// SaleRequest is the input of the sale workflow.
type SaleRequest struct {
	Items    []SaleLine `json:"items"`
	Discount *Discount  `json:"discount,omitempty"`
}

func (r SaleRequest) validate() error {
	if len(r.Items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for _, it := range r.Items {
		if it.ProductID == 0 {
			return invalid("items.productId", "invalid product ID")
		}
		if it.Quantity < 1 {
			return invalid("items.quantity", "quantity must be at least 1")
		}
	}
	if d := r.Discount; d != nil {
		switch d.Type {
		case models.DiscountPercentage:
			if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
				return invalid("discount.value", "percentage must be between 0 and 100")
			}
		case models.DiscountFixed:
			if d.Value.IsNegative() {
				return invalid("discount.value", "fixed discount cannot be negative")
			}
		default:
			return invalid("discount.type", "type must be percentage or fixed")
		}
	}
	return nil
}

// amount is the money taken off subtotal, never more than subtotal.
func (d *Discount) amount(subtotal decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	var off decimal.Decimal
	switch d.Type {
	case models.DiscountPercentage:
		off = subtotal.Mul(d.Value).Div(hundred)
	case models.DiscountFixed:
		off = decimal.Min(d.Value, subtotal)
	}
	return off.Round(2)
}

// mergeLines folds repeated productIds into one line, keeping first-seen order.
func mergeLines(items []SaleLine) []SaleLine {
	idx := make(map[uint]int, len(items))
	out := make([]SaleLine, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

// SaleService runs the sale, refund and sale-item workflows.
type SaleService struct {
	db    *gorm.DB
	log   *logrus.Logger
	cache SummaryCache
	now   func() time.Time
}

func NewSaleService(db *gorm.DB, log *logrus.Logger, cache SummaryCache) *SaleService {
	return &SaleService{db: db, log: log, cache: cache, now: time.Now}
}

// Create records a sale for cashierID. Stock checks, stock decrements, the
// ledger rows, the sale and its items commit together or not at all.
func (s *SaleService) Create(ctx context.Context, cashierID uint, req SaleRequest) (*models.Sale, error) {
	if cashierID == 0 {
		return nil, &AuthorizationError{Message: "a cashier is required to record a sale"}
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	lines := mergeLines(req.Items)

	ids := make([]uint, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	var saleID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := lockProducts(tx, ids)
		if err != nil {
			return err
		}
		if len(products) != len(ids) {
			var missing []uint
			for _, id := range ids {
				if _, ok := products[id]; !ok {
					missing = append(missing, id)
				}
			}
			return &NotFoundError{Resource: "product", Missing: missing}
		}

		// Check every line before touching any stock.
		for _, l := range lines {
			p := products[l.ProductID]
			if p.Stock < l.Quantity {
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Available:   p.Stock,
					Requested:   l.Quantity,
				}
			}
		}

		subtotal := decimal.Zero
		items := make([]models.SaleItem, 0, len(lines))
		for _, l := range lines {
			p := products[l.ProductID]
			prev := p.Stock
			if _, err := DecreaseStock(tx, p, l.Quantity); err != nil {
				return err
			}
			if err := recordStockChange(tx, p.ID, models.StockActionSale, l.Quantity, prev, p.Stock); err != nil {
				return err
			}

			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			items = append(items, models.SaleItem{
				ProductID: p.ID,
				Quantity:  l.Quantity,
				UnitPrice: p.Price,
				Subtotal:  lineTotal,
			})
		}

		off := req.Discount.amount(subtotal)
		sale := models.Sale{
			TotalAmount: subtotal.Sub(off).Round(2),
			Discount:    off,
			Date:        s.now().UTC(),
			CashierID:   cashierID,
		}
		if d := req.Discount; d != nil {
			sale.DiscountType = d.Type
			sale.DiscountValue = d.Value
			sale.DiscountReason = d.Reason
		}
		if err := tx.Omit(clause.Associations).Create(&sale).Error; err != nil {
			return persistence("create sale", err)
		}

		for i := range items {
			items[i].SaleID = sale.ID
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return persistence("create sale items", err)
		}
		saleID = sale.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"saleId": saleID, "cashierId": cashierID, "lines": len(lines)}).Info("sale recorded")
	invalidateSummary(ctx, s.cache, s.log)
	return s.Get(ctx, saleID)
}

// Get loads a sale with its cashier and items, each with its product.
func (s *SaleService) Get(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.WithContext(ctx).
		Preload("Cashier").
		Preload("SaleItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("SaleItems.Product").
		First(&sale, id).Error
	if err != nil {
		return nil, notFoundOr("load sale", "sale", id, err)
	}
	return &sale, nil
}

// RestoredItem is one line given back to inventory by a refund.
type RestoredItem struct {
	ProductID   uint            `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// RefundResult is returned by Refund on every path. RestoredItems is never
// nil so callers can render it unconditionally.
type RefundResult struct {
	Message       string          `json:"message"`
	RefundAmount  decimal.Decimal `json:"refundAmount"`
	RestoredItems []RestoredItem  `json:"restoredItems"`
}

// Refund reverses a sale: restores stock, logs "refund" ledger rows, deletes
// the items and the sale.
func (s *SaleService) Refund(ctx context.Context, saleID uint) (*RefundResult, error) {
	var (
		amount   decimal.Decimal
		restored []RestoredItem
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Concurrent refunds of one sale queue on this lock.
		var sale models.Sale
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, saleID).Error; err != nil {
			return notFoundOr("load sale", "sale", saleID, err)
		}
		if err := tx.Preload("Product").Where("sale_id = ?", sale.ID).Order("id").Find(&sale.SaleItems).Error; err != nil {
			return persistence("load sale items", err)
		}

		ids := make([]uint, 0, len(sale.SaleItems))
		for _, it := range sale.SaleItems {
			ids = append(ids, it.ProductID)
		}
		products := map[uint]*models.Product{}
		if len(ids) > 0 {
			var err error
			if products, err = lockProducts(tx, ids); err != nil {
				return err
			}
		}

		restored = make([]RestoredItem, 0, len(sale.SaleItems))
		for _, it := range sale.SaleItems {
			name := "Unknown Product"
			if it.Product != nil {
				name = it.Product.Name
			}
			restored = append(restored, RestoredItem{
				ProductID:   it.ProductID,
				ProductName: name,
				Quantity:    it.Quantity,
				Price:       it.UnitPrice,
			})

			p, ok := products[it.ProductID]
			if !ok {
				continue
			}
			prev := p.Stock
			if _, err := IncreaseStock(tx, p, it.Quantity); err != nil {
				return err
			}
			if err := recordStockChange(tx, p.ID, models.StockActionRefund, it.Quantity, prev, p.Stock); err != nil {
				return err
			}
		}

		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			return persistence("delete sale items", err)
		}
		res := tx.Delete(&models.Sale{}, sale.ID)
		if res.Error != nil {
			return persistence("delete sale", res.Error)
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Resource: "sale", ID: sale.ID}
		}
		amount = sale.TotalAmount
		return nil
	})
	if err != nil {
		return &RefundResult{Message: "Failed to process refund", RestoredItems: []RestoredItem{}}, err
	}

	s.log.WithFields(logrus.Fields{"saleId": saleID, "refundAmount": amount.StringFixed(2)}).Info("sale refunded")
	invalidateSummary(ctx, s.cache, s.log)
	return &RefundResult{
		Message:       "Sale refunded successfully",
		RefundAmount:  amount,
		RestoredItems: restored,
	}, nil
}

// SaleFilter narrows List. Zero values mean "no constraint".
type SaleFilter struct {
	SaleID    uint
	CashierID uint
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Page      Page
}

// SalePage is one page of sales.
type SalePage struct {
	Sales       []models.Sale `json:"sales"`
	TotalSales  int64         `json:"totalSales"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
}

// List returns sales newest first. A SaleID short-circuits every other filter.
func (s *SaleService) List(ctx context.Context, f SaleFilter) (*SalePage, error) {
	if f.SaleID != 0 {
		sale, err := s.Get(ctx, f.SaleID)
		if err != nil {
			return nil, err
		}
		return &SalePage{Sales: []models.Sale{*sale}, TotalSales: 1, TotalPages: 1, CurrentPage: 1}, nil
	}

	filter := func(q *gorm.DB) *gorm.DB {
		if f.CashierID != 0 {
			q = q.Where("cashier_id = ?", f.CashierID)
		}
		if f.StartDate != nil {
			q = q.Where("date >= ?", f.StartDate.UTC())
		}
		if f.EndDate != nil {
			q = q.Where("date <= ?", f.EndDate.UTC())
		}
		if f.MinAmount != nil {
			q = q.Where("total_amount >= ?", *f.MinAmount)
		}
		if f.MaxAmount != nil {
			q = q.Where("total_amount <= ?", *f.MaxAmount)
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Sale{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, persistence("count sales", err)
	}

	page := f.Page.normalize()
	var sales []models.Sale
	err := s.db.WithContext(ctx).Scopes(filter).
		Preload("Cashier").
		Preload("SaleItems.Product").
		Order("date DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.offset()).
		Find(&sales).Error
	if err != nil {
		return nil, persistence("list sales", err)
	}
	return &SalePage{
		Sales:       sales,
		TotalSales:  total,
		TotalPages:  page.totalPages(total),
		CurrentPage: page.Number,
	}, nil
}

// CashierSales is List scoped to one cashier, with the cashier attached.
type CashierSales struct {
	Cashier *models.User `json:"cashier"`
	SalePage
}

// ListByCashier fails with NotFoundError when the cashier does not exist.
func (s *SaleService) ListByCashier(ctx context.Context, cashierID uint, f SaleFilter) (*CashierSales, error) {
	var cashier models.User
	if err := s.db.WithContext(ctx).First(&cashier, cashierID).Error; err != nil {
		return nil, notFoundOr("load cashier", "cashier", cashierID, err)
	}
	f.CashierID = cashierID
	f.SaleID = 0
	page, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &CashierSales{Cashier: &cashier, SalePage: *page}, nil
}
