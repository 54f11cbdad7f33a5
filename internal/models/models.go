package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Roles a User can hold.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// StockAction classifies a StockHistory entry.
type StockAction string

const (
	StockActionRestock    StockAction = "restock"
	StockActionSale       StockAction = "sale"
	StockActionRefund     StockAction = "refund"
	StockActionAdjustment StockAction = "adjustment"
)

// Discount kinds accepted on a Sale.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// ErrNegativeStock is returned by the Product save hook when a write would
// leave stock below zero.
var ErrNegativeStock = errors.New("stock cannot be negative")

// User - staff account. Sales reference a User as their cashier.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never plaintext
	Role      string    `gorm:"size:20;not null;default:cashier;check:role IN ('admin','cashier')" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product - The Inventory
type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock     int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Category  string          `gorm:"size:100" json:"category"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// BeforeSave rejects any write that would leave stock negative, whichever
// path issued it.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// Sale - The Transaction Header
type Sale struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalAmount"`
	Discount       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	DiscountType   string          `gorm:"size:20" json:"discountType,omitempty"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discountValue"`
	DiscountReason string          `gorm:"size:255" json:"discountReason,omitempty"`
	Date           time.Time       `gorm:"not null;index" json:"date"`
	CashierID      uint            `gorm:"column:cashier_id;not null;index" json:"cashierId"`
	Cashier        *User           `gorm:"foreignKey:CashierID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"cashier,omitempty"`
	SaleItems      []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"saleItems"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SaleItem - one product line of a Sale
type SaleItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	SaleID    uint            `gorm:"not null;index" json:"saleId"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Product   *Product        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"product,omitempty"`
	Quantity  int             `gorm:"not null;check:quantity >= 1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unitPrice"` // Snapshot of price at time of sale
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// StockHistory - append-only inventory ledger
type StockHistory struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	ProductID     uint        `gorm:"not null;index" json:"productId"`
	Product       *Product    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"product,omitempty"`
	Action        StockAction `gorm:"size:20;not null;check:action IN ('restock','sale','refund','adjustment')" json:"action"`
	Quantity      int         `gorm:"not null" json:"quantity"`
	PreviousStock int         `gorm:"not null" json:"previousStock"`
	NewStock      int         `gorm:"not null" json:"newStock"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Sale{},
		&SaleItem{},
		&StockHistory{},
	}
}
