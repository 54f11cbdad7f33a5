package service

import (
	"context"
	"sort"
	"time"

	"nine-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	lowStockThreshold  = 5
	recentRestockSince = 7 * 24 * time.Hour
)

// DecreaseStock takes quantity units out of product inside tx. The product
// must already be locked by the caller.
func DecreaseStock(tx *gorm.DB, product *models.Product, quantity int) (*models.Product, error) {
	if quantity < 1 {
		return nil, invalid("quantity", "quantity must be at least 1")
	}
	if quantity > product.Stock {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   quantity,
		}
	}
	return setStock(tx, product, product.Stock-quantity)
}

// IncreaseStock puts quantity units back into product inside tx.
func IncreaseStock(tx *gorm.DB, product *models.Product, quantity int) (*models.Product, error) {
	if quantity < 1 {
		return nil, invalid("quantity", "quantity must be at least 1")
	}
	return setStock(tx, product, product.Stock+quantity)
}

func setStock(tx *gorm.DB, product *models.Product, stock int) (*models.Product, error) {
	prev := product.Stock
	// The save hook inspects the model, so the new value goes on it first.
	product.Stock = stock
	if err := tx.Model(product).Update("stock", stock).Error; err != nil {
		product.Stock = prev
		return nil, persistence("update stock", err)
	}
	return product, nil
}

// recordStockChange appends one ledger row.
func recordStockChange(tx *gorm.DB, productID uint, action models.StockAction, quantity, previous, next int) error {
	entry := models.StockHistory{
		ProductID:     productID,
		Action:        action,
		Quantity:      quantity,
		PreviousStock: previous,
		NewStock:      next,
	}
	if err := tx.Omit(clause.Associations).Create(&entry).Error; err != nil {
		return persistence("write stock history", err)
	}
	return nil
}

// lockProducts loads the given products with SELECT ... FOR UPDATE, in id
// order so concurrent baskets acquire row locks in the same sequence.
func lockProducts(tx *gorm.DB, ids []uint) (map[uint]*models.Product, error) {
	var products []models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, persistence("lock products", err)
	}

	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

// InventoryService handles stock changes that are not part of a sale.
type InventoryService struct {
	db    *gorm.DB
	log   *logrus.Logger
	cache SummaryCache
	now   func() time.Time
}

func NewInventoryService(db *gorm.DB, log *logrus.Logger, cache SummaryCache) *InventoryService {
	return &InventoryService{db: db, log: log, cache: cache, now: time.Now}
}

// Restock adds quantity to a product and logs a "restock" ledger entry.
func (s *InventoryService) Restock(ctx context.Context, productID uint, quantity int) (*models.Product, error) {
	if productID == 0 {
		return nil, invalid("productId", "invalid product ID")
	}
	if quantity < 1 {
		return nil, invalid("quantity", "quantity must be at least 1")
	}

	var product *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockProducts(tx, []uint{productID})
		if err != nil {
			return err
		}
		p, ok := locked[productID]
		if !ok {
			return &NotFoundError{Resource: "product", ID: productID}
		}

		prev := p.Stock
		if _, err := IncreaseStock(tx, p, quantity); err != nil {
			return err
		}
		if err := recordStockChange(tx, p.ID, models.StockActionRestock, quantity, prev, p.Stock); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"productId": productID, "quantity": quantity, "stock": product.Stock}).Info("product restocked")
	invalidateSummary(ctx, s.cache, s.log)
	return product, nil
}

// StockHistoryEntry is a ledger row with its product name.
type StockHistoryEntry struct {
	models.StockHistory
	ProductName string `json:"productName"`
}

// StockHistory lists the ledger, newest first. productID 0 means all.
func (s *InventoryService) StockHistory(ctx context.Context, productID uint) ([]StockHistoryEntry, error) {
	var rows []models.StockHistory
	q := s.db.WithContext(ctx).Preload("Product").Order("created_at DESC").Order("id DESC")
	if productID != 0 {
		q = q.Where("product_id = ?", productID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, persistence("list stock history", err)
	}

	out := make([]StockHistoryEntry, 0, len(rows))
	for _, r := range rows {
		e := StockHistoryEntry{StockHistory: r}
		if r.Product != nil {
			e.ProductName = r.Product.Name
		}
		e.Product = nil
		out = append(out, e)
	}
	return out, nil
}

// StockLevel is a compact product row for stock reports.
type StockLevel struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StockReport summarizes inventory health.
type StockReport struct {
	TotalProducts       int64           `json:"totalProducts"`
	LowStockProducts    []StockLevel    `json:"lowStockProducts"`
	OutOfStockProducts  []StockLevel    `json:"outOfStockProducts"`
	RecentlyRestocked   []StockLevel    `json:"recentlyRestocked"`
	TotalInventoryValue decimal.Decimal `json:"totalInventoryValue"`
}

// StockReport returns NotFoundError when there are no products at all.
func (s *InventoryService) StockReport(ctx context.Context) (*StockReport, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, persistence("load products", err)
	}
	if len(products) == 0 {
		return nil, &NotFoundError{Resource: "product"}
	}

	since := s.now().Add(-recentRestockSince)
	report := &StockReport{
		TotalProducts:       int64(len(products)),
		LowStockProducts:    []StockLevel{},
		OutOfStockProducts:  []StockLevel{},
		RecentlyRestocked:   []StockLevel{},
		TotalInventoryValue: decimal.Zero,
	}
	for _, p := range products {
		lvl := StockLevel{ID: p.ID, Name: p.Name, Stock: p.Stock, UpdatedAt: p.UpdatedAt}
		if p.Stock <= lowStockThreshold {
			report.LowStockProducts = append(report.LowStockProducts, lvl)
		}
		if p.Stock == 0 {
			report.OutOfStockProducts = append(report.OutOfStockProducts, lvl)
		}
		if !p.UpdatedAt.Before(since) {
			report.RecentlyRestocked = append(report.RecentlyRestocked, lvl)
		}
		report.TotalInventoryValue = report.TotalInventoryValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	sort.SliceStable(report.RecentlyRestocked, func(i, j int) bool {
		return report.RecentlyRestocked[i].UpdatedAt.After(report.RecentlyRestocked[j].UpdatedAt)
	})
	return report, nil
}
