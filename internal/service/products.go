package service

import (
	"context"
	"strings"

	"nine-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProductInput creates a product.
type ProductInput struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
}

// ProductUpdate changes only the fields that are set.
type ProductUpdate struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int             `json:"stock"`
	Category *string          `json:"category"`
}

// ProductFilter narrows List. Nil bounds are open.
type ProductFilter struct {
	Search   string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	MinStock *int
	MaxStock *int
	Page     Page
}

// ProductPage is one page of products.
type ProductPage struct {
	Products      []models.Product `json:"products"`
	TotalProducts int64            `json:"totalProducts"`
	TotalPages    int              `json:"totalPages"`
	CurrentPage   int              `json:"currentPage"`
}

type ProductService struct {
	db    *gorm.DB
	log   *logrus.Logger
	cache SummaryCache
}

func NewProductService(db *gorm.DB, log *logrus.Logger, cache SummaryCache) *ProductService {
	return &ProductService{db: db, log: log, cache: cache}
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	if in.Price.IsNegative() {
		return nil, invalid("price", "price cannot be negative")
	}
	if in.Stock < 0 {
		return nil, invalid("stock", "stock cannot be negative")
	}

	p := &models.Product{
		Name:     name,
		Price:    in.Price.Round(2),
		Stock:    in.Stock,
		Category: strings.TrimSpace(in.Category),
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, persistence("create product", err)
	}
	invalidateSummary(ctx, s.cache, s.log)
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFoundOr("load product", "product", id, err)
	}
	return &p, nil
}

// List returns products newest first.
func (s *ProductService) List(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if f.Search != "" {
			q = q.Where("name LIKE ?", "%"+f.Search+"%")
		}
		if f.Category != "" {
			q = q.Where("category = ?", f.Category)
		}
		if f.MinPrice != nil {
			q = q.Where("price >= ?", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			q = q.Where("price <= ?", *f.MaxPrice)
		}
		if f.MinStock != nil {
			q = q.Where("stock >= ?", *f.MinStock)
		}
		if f.MaxStock != nil {
			q = q.Where("stock <= ?", *f.MaxStock)
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, persistence("count products", err)
	}

	page := f.Page.normalize()
	var products []models.Product
	err := s.db.WithContext(ctx).Scopes(filter).
		Order("created_at DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.offset()).
		Find(&products).Error
	if err != nil {
		return nil, persistence("list products", err)
	}
	return &ProductPage{
		Products:      products,
		TotalProducts: total,
		TotalPages:    page.totalPages(total),
		CurrentPage:   page.Number,
	}, nil
}

// Update applies the set fields. A stock change goes through the inventory
// primitives and is logged as an "adjustment" ledger entry.
func (s *ProductService) Update(ctx context.Context, id uint, upd ProductUpdate) (*models.Product, error) {
	var product *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockProducts(tx, []uint{id})
		if err != nil {
			return err
		}
		p, ok := locked[id]
		if !ok {
			return &NotFoundError{Resource: "product", ID: id}
		}

		fields := map[string]any{}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return invalid("name", "name is required")
			}
			p.Name = name
			fields["name"] = name
		}
		if upd.Price != nil {
			if upd.Price.IsNegative() {
				return invalid("price", "price cannot be negative")
			}
			p.Price = upd.Price.Round(2)
			fields["price"] = p.Price
		}
		if upd.Category != nil {
			p.Category = strings.TrimSpace(*upd.Category)
			fields["category"] = p.Category
		}
		if len(fields) > 0 {
			if err := tx.Model(p).Updates(fields).Error; err != nil {
				return persistence("update product", err)
			}
		}

		if upd.Stock != nil && *upd.Stock != p.Stock {
			target := *upd.Stock
			if target < 0 {
				return invalid("stock", "stock cannot be negative")
			}
			prev := p.Stock
			var err error
			if target > prev {
				_, err = IncreaseStock(tx, p, target-prev)
			} else {
				_, err = DecreaseStock(tx, p, prev-target)
			}
			if err != nil {
				return err
			}
			delta := target - prev
			if delta < 0 {
				delta = -delta
			}
			if err := recordStockChange(tx, p.ID, models.StockActionAdjustment, delta, prev, p.Stock); err != nil {
				return err
			}
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateSummary(ctx, s.cache, s.log)
	return product, nil
}

// Delete removes a product. Sale items and ledger rows referencing it go
// with it through the foreign-key cascade.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return persistence("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "product", ID: id}
	}
	s.log.WithField("productId", id).Info("product deleted")
	invalidateSummary(ctx, s.cache, s.log)
	return nil
}

// Inventory returns every product, for callers that need the full list.
func (s *ProductService) Inventory(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, persistence("list inventory", err)
	}
	return products, nil
}
